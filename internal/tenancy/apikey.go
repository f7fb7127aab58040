package tenancy

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"feedbackhub/backend/internal/config"
)

// GenerateAPIKey returns a new plaintext key, its storage hash and its display prefix.
func GenerateAPIKey() (key, hash, prefix string, err error) {
	buf := make([]byte, config.APIKeyBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", "", err
	}
	key = config.APIKeyPrefix + base64.RawURLEncoding.EncodeToString(buf)
	return key, HashAPIKey(key), DisplayPrefix(key), nil
}

// HashAPIKey is the only form in which keys are persisted or cached.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// DisplayPrefix is the part of a key that may be shown or logged.
func DisplayPrefix(key string) string {
	if len(key) <= config.APIKeyDisplayLen {
		return key
	}
	return key[:config.APIKeyDisplayLen]
}

// LooksLikeAPIKey is a cheap format check done before any lookup.
func LooksLikeAPIKey(key string) bool {
	return strings.HasPrefix(key, config.APIKeyPrefix) && len(key) > len(config.APIKeyPrefix)
}

func hashesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
