// Package auth resolves bearer tokens to the caller's user id.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the standard claims plus an explicit user id. Tokens
// minted by an external identity provider only set sub, which is used as
// the fallback.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
}

func (c *Claims) userID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetUserIDFromToken validates an HS256 token and returns its user id.
// Every failure is reported as common.ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", invalid(err)
	}

	if !token.Valid || claims.userID() == "" {
		return "", common.ErrInvalidToken
	}

	return claims.userID(), nil
}

func invalid(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: token expired", common.ErrInvalidToken)
	}
	return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
}
