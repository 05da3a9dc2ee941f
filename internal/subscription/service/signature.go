package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HeaderSignature carries the provider's HMAC of the raw request body.
const HeaderSignature = "X-Signature"

// VerifySignature checks the hex-encoded HMAC-SHA256 of body against
// the header value in constant time. Callers must reject the request
// before touching storage when this returns false.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
