package storage_manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWriteReadRoundTrip(t *testing.T) {
	p := NewLocalFileProvider(t.TempDir())
	ctx := context.Background()

	require.NoError(t, p.Write(ctx, "sessions/wa-1/metadata.json", []byte(`{"id":"wa-1"}`)))

	data, err := p.Read(ctx, "sessions/wa-1/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"wa-1"}`, string(data))

	exists, err := p.Exists(ctx, "sessions/wa-1/metadata.json")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = p.Exists(ctx, "sessions/wa-2/metadata.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalFileProvider(dir)
	ctx := context.Background()

	require.NoError(t, p.Write(ctx, "stats.json", []byte(`{}`)))
	require.NoError(t, p.Write(ctx, "stats.json", []byte(`{"totalMessagesSent":1}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "stats.json", entries[0].Name())

	data, err := p.Read(ctx, "stats.json")
	require.NoError(t, err)
	assert.Equal(t, `{"totalMessagesSent":1}`, string(data))
}

func TestLocalDeleteIsIdempotent(t *testing.T) {
	p := NewLocalFileProvider(t.TempDir())
	ctx := context.Background()

	require.NoError(t, p.Write(ctx, "a.json", []byte("x")))
	require.NoError(t, p.Delete(ctx, "a.json"))
	require.NoError(t, p.Delete(ctx, "a.json"))
}

func TestLocalListDirs(t *testing.T) {
	p := NewLocalFileProvider(t.TempDir())
	ctx := context.Background()

	require.NoError(t, p.Write(ctx, "sessions/wa-1/metadata.json", []byte("{}")))
	require.NoError(t, p.Write(ctx, "sessions/wa-2/metadata.json", []byte("{}")))
	require.NoError(t, p.Write(ctx, "sessions/stray.json", []byte("{}")))

	dirs, err := p.ListDirs(ctx, "sessions")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"wa-1", "wa-2"}, dirs)

	// Missing prefix is not an error
	dirs, err = p.ListDirs(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, dirs)
}

func TestLocalDeleteAll(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalFileProvider(dir)
	ctx := context.Background()

	require.NoError(t, p.Write(ctx, "sessions/wa-1/creds/blob.bin", []byte("secret")))
	require.NoError(t, p.Write(ctx, "sessions/wa-1/metadata.json", []byte("{}")))

	require.NoError(t, p.DeleteAll(ctx, "sessions/wa-1"))

	_, err := os.Stat(filepath.Join(dir, "sessions", "wa-1"))
	assert.True(t, os.IsNotExist(err))

	// Root deletion is refused
	assert.Error(t, p.DeleteAll(ctx, ""))
}

func TestPrefixedProviderIsolation(t *testing.T) {
	base := NewLocalFileProvider(t.TempDir())
	ctx := context.Background()

	sessions := NewPrefixedFileProvider(base, "sessions")
	stats := NewPrefixedFileProvider(base, "stats")

	require.NoError(t, sessions.Write(ctx, "wa-1/metadata.json", []byte("a")))
	require.NoError(t, stats.Write(ctx, "stats.json", []byte("b")))

	files, err := sessions.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"wa-1/metadata.json"}, files)

	data, err := base.Read(ctx, "sessions/wa-1/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestStorageManagerValidation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name: "valid local",
			config: Config{
				Backend:     BackendLocal,
				LocalConfig: &LocalConfig{BaseDir: t.TempDir()},
			},
			expectError: false,
		},
		{
			name:        "local without config",
			config:      Config{Backend: BackendLocal},
			expectError: true,
		},
		{
			name: "s3 without bucket",
			config: Config{
				Backend:  BackendS3,
				S3Config: &S3Config{},
			},
			expectError: true,
		},
		{
			name:        "unknown backend",
			config:      Config{Backend: "ftp"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
