package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const signingKeyFile = "jwt.key"

// minSigningKeyLen is the shortest accepted HS256 key, in bytes.
const minSigningKeyLen = 32

// LoadOrCreateSigningKey reads the JWT signing key from dir/jwt.key, or
// generates and persists a new 256-bit hex-encoded key if the file is
// missing or empty.
func LoadOrCreateSigningKey(dir string) (string, error) {
	path := filepath.Join(dir, signingKeyFile)

	data, err := os.ReadFile(path)
	if err == nil {
		if key := strings.TrimSpace(string(data)); key != "" {
			return key, nil
		}
	}

	return RotateSigningKey(dir)
}

// RotateSigningKey generates a new key, replacing the existing one.
// Every issued token stops verifying once the key changes.
func RotateSigningKey(dir string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating signing key: %w", err)
	}
	key := hex.EncodeToString(b)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating key dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, signingKeyFile), []byte(key), 0600); err != nil {
		return "", fmt.Errorf("writing signing key: %w", err)
	}
	return key, nil
}

// ResolveSigningKey returns the configured key when set, otherwise the key
// persisted under dir.
func ResolveSigningKey(configured, dir string) (string, error) {
	if configured != "" {
		if len(configured) < minSigningKeyLen {
			return "", fmt.Errorf("jwt secret must be at least %d bytes", minSigningKeyLen)
		}
		return configured, nil
	}
	return LoadOrCreateSigningKey(dir)
}
