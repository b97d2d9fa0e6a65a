package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// SessionIDPrefix identifies sitepanel browser session ids
	SessionIDPrefix = "sps_"
	// SessionIDLength is the number of random bytes in a session id (256 bits)
	SessionIDLength = 32
)

// NewSessionID creates a browser session id.
// Format: sps_<base64url(32 random bytes)>
func NewSessionID() (string, error) {
	randomBytes := make([]byte, SessionIDLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return SessionIDPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// HashSessionID computes the SHA256 hash of a session id. Stores key
// records by this hash so raw cookie values are never persisted.
func HashSessionID(sid string) string {
	hash := sha256.Sum256([]byte(sid))
	return hex.EncodeToString(hash[:])
}

// ValidateSessionID checks that a cookie value has the session id format
func ValidateSessionID(sid string) error {
	if !strings.HasPrefix(sid, SessionIDPrefix) {
		return fmt.Errorf("session id must start with %q", SessionIDPrefix)
	}

	encoded := strings.TrimPrefix(sid, SessionIDPrefix)
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("invalid session id encoding: %w", err)
	}
	if len(raw) != SessionIDLength {
		return fmt.Errorf("session id has %d bytes, want %d", len(raw), SessionIDLength)
	}
	return nil
}
