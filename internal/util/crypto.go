package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const tokenBytes = 32

func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func HmacSHA256(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// FingerprintFallback derives a pseudo-identifier for clients that did not
// supply a fingerprint at login. It is best-effort only: the client-reported
// fingerprint, when present, always wins.
func FingerprintFallback(userAgent, ip string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%s", userAgent, ip)))
	return "fb-" + hex.EncodeToString(hash[:8])
}

func MaskEmail(email string) string {
	if len(email) <= 3 {
		return "***"
	}
	return email[:3] + "***"
}
