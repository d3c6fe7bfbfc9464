// internal/auth/gate.go
package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredential is returned when a password or token does not match.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrNoConfiguredSecret is returned when no admin hash is configured; every edit is refused.
	ErrNoConfiguredSecret = errors.New("no admin secret configured")
)

// Gate guards administrative edits with a single configured Argon2id hash.
type Gate struct {
	hash string
}

// NewGate validates encodedHash and returns a gate for it. An empty hash yields a
// gate that refuses everything.
func NewGate(encodedHash string) (*Gate, error) {
	encodedHash = strings.TrimSpace(encodedHash)
	if encodedHash != "" {
		if _, _, _, err := DecodeHash(encodedHash); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
	}
	return &Gate{hash: encodedHash}, nil
}

// Configured reports whether an admin hash is set.
func (g *Gate) Configured() bool {
	return g != nil && g.hash != ""
}

// Check compares password against the configured hash.
func (g *Gate) Check(password string) error {
	if !g.Configured() {
		return ErrNoConfiguredSecret
	}
	ok, err := ComparePasswordAndHash(password, g.hash)
	if err != nil {
		return fmt.Errorf("compare admin hash: %w", err)
	}
	if !ok {
		return ErrInvalidCredential
	}
	return nil
}
