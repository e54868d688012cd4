package protocol

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// nonceBytes is the length of the random challenge value.
const nonceBytes = 20

// NewNonce returns a fresh hex-encoded random challenge value. Each nonce
// is used for exactly one proof.
func NewNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Proof computes the hex-encoded HMAC-SHA1 of the nonce under the shared
// secret. Proving knowledge of the secret, not confidentiality, is the whole
// of this scheme.
func Proof(secret, nonce string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyProof reports whether proof matches the expected proof for nonce
// under secret, in constant time.
func VerifyProof(secret, nonce, proof string) bool {
	return hmac.Equal([]byte(Proof(secret, nonce)), []byte(proof))
}
