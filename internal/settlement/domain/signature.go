package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex HMAC-SHA256 checksum of a raw webhook body with
// the shared gateway secret.
func Sign(checksumKey string, rawBody []byte) string {
	mac := hmac.New(sha256.New, []byte(checksumKey))
	_, _ = mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time; any byte of the body
// changing invalidates the signature.
func VerifySignature(checksumKey string, rawBody []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(checksumKey, rawBody)
	return hmac.Equal([]byte(signature), []byte(expected))
}
