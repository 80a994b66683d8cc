package mockapi

import (
	"crypto/sha256"
	"encoding/binary"
	"net/url"
	"strconv"
	"strings"
)

// Base62 character set for short code generation
const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	shortCodeLen     = 6
	shortCodeRetries = 3
)

// Canonicalize normalizes a long URL for hashing and comparison.
// It lowercases the host, removes default ports, strips a trailing
// slash and removes URL fragments.
func Canonicalize(longURL string) (string, error) {
	u, err := url.Parse(longURL)
	if err != nil {
		return "", err
	}
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""

	return u.String(), nil
}

// HashURL hashes a canonical URL into the number base62 encodes.
func HashURL(s string) uint64 {
	h := sha256.Sum256([]byte(s))
	return binary.BigEndian.Uint64(h[:8])
}

// EncodeBase62 encodes a number to Base62 string
func EncodeBase62(num uint64) string {
	if num == 0 {
		return string(base62Chars[0])
	}
	encoded := ""
	for num > 0 {
		remainder := num % 62
		encoded = string(base62Chars[remainder]) + encoded
		num = num / 62
	}
	return encoded
}

// generateCode derives a short code for the URL, salting with the
// attempt number so collisions can be retried deterministically.
func generateCode(longURL string, attempt int) (string, error) {
	canonical, err := Canonicalize(longURL)
	if err != nil {
		return "", err
	}
	encoded := EncodeBase62(HashURL(canonical + strconv.Itoa(attempt)))
	if len(encoded) < shortCodeLen {
		return encoded, nil
	}
	return encoded[:shortCodeLen], nil
}
