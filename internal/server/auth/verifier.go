package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier turns a bearer token into a user id.
type Verifier interface {
	Verify(token string) (string, error)
}

// HMACVerifier accepts HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(token string) (string, error) {
	return GetUserIDFromToken(token, v.secret)
}

// JWKSVerifier accepts asymmetric tokens whose keys are published as a JWK set.
type JWKSVerifier struct {
	jwks keyfunc.Keyfunc
}

func NewJWKSVerifierFromKeyfunc(k keyfunc.Keyfunc) *JWKSVerifier {
	return &JWKSVerifier{jwks: k}
}

// NewJWKSVerifier fetches the key set at url and keeps it refreshed in
// the background until ctx is done.
func NewJWKSVerifier(ctx context.Context, url string) (*JWKSVerifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{url})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS keyfunc: %w", err)
	}
	return &JWKSVerifier{jwks: k}, nil
}

func (v *JWKSVerifier) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc, jwt.WithExpirationRequired())
	if err != nil {
		return "", invalid(err)
	}
	if !token.Valid || claims.userID() == "" {
		return "", common.ErrInvalidToken
	}
	return claims.userID(), nil
}

// Chain tries each verifier in order and returns the first success.
type Chain []Verifier

func (c Chain) Verify(token string) (string, error) {
	errs := make([]error, 0, len(c))
	for _, v := range c {
		id, err := v.Verify(token)
		if err == nil {
			return id, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", common.ErrInvalidToken
	}
	return "", errors.Join(errs...)
}
