package domain

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionTokenBytes gives tokens 256 bits of entropy.
const sessionTokenBytes = 32

// NewSessionToken returns a fresh opaque, URL-safe session token.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
