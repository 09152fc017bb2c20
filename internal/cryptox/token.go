package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// ResetTokenBytes is the amount of randomness in a password reset token.
const ResetTokenBytes = 32

// GenerateToken returns a random hex token and its SHA-256 hex digest. Only
// the digest is meant to be stored.
func GenerateToken() (token, digest string, err error) {
	token, err = common.MakeRandHexString(ResetTokenBytes)
	if err != nil {
		return "", "", err
	}
	return token, HashToken(token), nil
}

// HashToken returns the SHA-256 hex digest of token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyToken compares token against a stored digest in constant time.
func VerifyToken(token, digest string) bool {
	if token == "" || digest == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(digest)) == 1
}
