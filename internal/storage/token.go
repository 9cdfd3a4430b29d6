package storage

import (
	"crypto/rand"
	"fmt"
)

// TokenLength is the number of characters in a share token.
const TokenLength = 10

// tokenAlphabet is the URL-safe nanoid alphabet; its 64 symbols map exactly
// onto six random bits.
const tokenAlphabet = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"

// NewShareToken returns a random URL-safe share token.
func NewShareToken() (string, error) {
	return newToken(TokenLength)
}

func newToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[b&63]
	}
	return string(buf), nil
}
