package utils

import (
	"crypto/rand"
)

const (
	ShortCodeLength = 8
	alphabet        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Largest multiple of len(alphabet) that fits in a byte; bytes above it
	// are rejected to keep the distribution uniform.
	maxUnbiasedByte = 256 - 256%len(alphabet)
)

// GenerateShortCode returns a ShortCodeLength code drawn uniformly from the
// 62-character alphanumeric alphabet using crypto/rand.
func GenerateShortCode() string {
	return GenerateShortCodeWithLength(ShortCodeLength)
}

func GenerateShortCodeWithLength(length int) string {
	code := make([]byte, 0, length)
	buf := make([]byte, length*2)

	for len(code) < length {
		// crypto/rand.Read never returns an error since Go 1.24.
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if int(b) >= maxUnbiasedByte {
				continue
			}
			code = append(code, alphabet[int(b)%len(alphabet)])
			if len(code) == length {
				break
			}
		}
	}

	return string(code)
}
