package utils

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// APIKeyPrefix marks keys minted by this service so they are easy to
// recognize in request logs and secret scanners.
const APIKeyPrefix = "sf_"

func GenerateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

// GenerateAPIKey mints a prefixed bearer credential. 24 random bytes
// encode to 32 characters with no base64 padding.
func GenerateAPIKey() (string, error) {
	key, err := GenerateRandomKey(24)
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + key, nil
}

// MaskAPIKey hides all but the prefix and the last four characters.
func MaskAPIKey(key string) string {
	const tail = 4
	if len(key) <= tail {
		return strings.Repeat("*", len(key))
	}
	prefix := ""
	if strings.HasPrefix(key, APIKeyPrefix) {
		prefix = APIKeyPrefix
	}
	return prefix + "..." + key[len(key)-tail:]
}
