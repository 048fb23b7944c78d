package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
)

// VerifySignature reports whether presented is the hex HMAC-SHA1 of body
// keyed by secret.
//
// An empty secret accepts every request (open mode, used before a channel
// secret is provisioned). A missing or malformed digest simply compares
// unequal. The comparison is constant-time over the hex text.
func VerifySignature(body []byte, secret, presented string) bool {
	if secret == "" {
		return true
	}

	expected := ComputeSignature(body, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

// ComputeSignature returns the lowercase hex HMAC-SHA1 of body keyed by secret.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
