package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateSigningKey_CreatesKeyFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "taskhub")

	key, err := LoadOrCreateSigningKey(dir)
	require.NoError(t, err)
	assert.Len(t, key, 64, "32 random bytes, hex encoded")
	assertHexString(t, key)

	info, err := os.Stat(filepath.Join(dir, signingKeyFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadOrCreateSigningKey_IsStable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := LoadOrCreateSigningKey(dir)
	require.NoError(t, err)
	second, err := LoadOrCreateSigningKey(dir)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadOrCreateSigningKey_TrimsExistingKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	existing := strings.Repeat("ab", 32)
	require.NoError(t, os.WriteFile(filepath.Join(dir, signingKeyFile), []byte(existing+"\n"), 0600))

	key, err := LoadOrCreateSigningKey(dir)
	require.NoError(t, err)
	assert.Equal(t, existing, key)
}

func TestLoadOrCreateSigningKey_EmptyFileRegenerates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, signingKeyFile), []byte("  \n"), 0600))

	key, err := LoadOrCreateSigningKey(dir)
	require.NoError(t, err)
	assert.Len(t, key, 64)
}

func TestRotateSigningKey_ReplacesKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	original, err := LoadOrCreateSigningKey(dir)
	require.NoError(t, err)
	rotated, err := RotateSigningKey(dir)
	require.NoError(t, err)
	assert.NotEqual(t, original, rotated)

	loaded, err := LoadOrCreateSigningKey(dir)
	require.NoError(t, err)
	assert.Equal(t, rotated, loaded)
}

func TestResolveSigningKey(t *testing.T) {
	t.Parallel()

	configured := strings.Repeat("k", 40)
	key, err := ResolveSigningKey(configured, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, configured, key)

	_, err = ResolveSigningKey("short", t.TempDir())
	assert.Error(t, err)

	dir := t.TempDir()
	key, err = ResolveSigningKey("", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, signingKeyFile))
	assert.Len(t, key, 64)
}

func assertHexString(t *testing.T, s string) {
	t.Helper()
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Errorf("non-hex character %q in string %q", c, s)
			return
		}
	}
}
