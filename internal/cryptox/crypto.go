// Package cryptox holds the upload-token primitives: minting a single-use
// token and the digest under which the server stores it.
package cryptox

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/pontos/internal/common"
	"golang.org/x/crypto/blake2b"
)

// UploadTokenBytes is the entropy of a freshly minted upload token.
const UploadTokenBytes = 32

// NewUploadToken returns a random hex-encoded upload token.
func NewUploadToken() (string, error) {
	token, err := common.MakeRandHexString(UploadTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate upload token: %w", err)
	}
	return token, nil
}

// DigestToken returns the hex blake2b-256 digest of token. Only the digest
// is persisted, so a leaked table row cannot be replayed as a token.
func DigestToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenMatches compares token against a stored digest in constant time.
func TokenMatches(token, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(DigestToken(token)), []byte(digest)) == 1
}
