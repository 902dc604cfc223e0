package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Compute возвращает hex(HMAC-SHA256(secret, body))
func Compute(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify сравнивает подпись за постоянное время. prefix снимается перед сравнением
// (GitHub присылает "sha256=<hex>", Linear только hex).
func Verify(secret, body []byte, header, prefix string) error {
	if len(secret) == 0 || header == "" {
		return ErrInvalidSignature
	}
	if !strings.HasPrefix(header, prefix) {
		return ErrInvalidSignature
	}

	expected := Compute(secret, body)
	got := strings.TrimPrefix(header, prefix)
	if !hmac.Equal([]byte(expected), []byte(got)) {
		return ErrInvalidSignature
	}
	return nil
}
