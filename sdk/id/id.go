package id

import (
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// TokenSize is the number of random bytes in a token from NewToken.
const TokenSize = 32

// New generates a random ID with an optional prefix.
func New(optionalPrefix string) (string, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}

// NewToken generates a url-safe random token suitable for cookies and form
// fields.
func NewToken() (string, error) {
	b, err := uuid.GenerateRandomBytes(TokenSize)
	if err != nil {
		return "", fmt.Errorf("unable to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
