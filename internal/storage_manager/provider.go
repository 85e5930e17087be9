// Package storage_manager provides unified storage abstraction for gateway
// persistence. It supports local filesystem and S3 backends, allowing
// different components (session metadata, stats, credentials) to get
// prefix-scoped file providers for isolated storage.
package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// FileProvider defines the interface for file storage operations.
// Implementations can support local filesystem, S3, or other storage backends.
type FileProvider interface {
	// Read reads the entire content of a file
	Read(ctx context.Context, path string) ([]byte, error)

	// Write writes data to a file atomically, creating it if it doesn't exist.
	// A reader must never observe a half-written file.
	Write(ctx context.Context, path string, data []byte) error

	// Exists checks if a file exists
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes a file
	Delete(ctx context.Context, path string) error

	// List returns a list of files matching a prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// ListDirs returns the immediate subdirectories under a prefix
	ListDirs(ctx context.Context, prefix string) ([]string, error)

	// DeleteAll removes everything under a prefix
	DeleteAll(ctx context.Context, prefix string) error
}

// LocalFileProvider implements FileProvider for the local filesystem.
// Writes go through a temp-file-then-rename sequence so an interrupted
// write never leaves a truncated file behind.
type LocalFileProvider struct {
	baseDir string
}

// NewLocalFileProvider creates a new local file provider.
func NewLocalFileProvider(baseDir string) *LocalFileProvider {
	return &LocalFileProvider{
		baseDir: baseDir,
	}
}

// BaseDir returns the root directory of this provider.
func (p *LocalFileProvider) BaseDir() string {
	return p.baseDir
}

// Read reads a file from the local filesystem.
func (p *LocalFileProvider) Read(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.baseDir, path)) //nolint:gosec // G304: Path is constructed from trusted baseDir
}

// Write writes data to a local file atomically.
func (p *LocalFileProvider) Write(ctx context.Context, path string, data []byte) error {
	fullPath := filepath.Join(p.baseDir, path)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// renameio handles: temp file creation, fsync, atomic rename, cleanup on error
	if err := renameio.WriteFile(fullPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Exists checks if a file exists on the local filesystem.
func (p *LocalFileProvider) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(p.baseDir, path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Delete removes a file from the local filesystem.
func (p *LocalFileProvider) Delete(ctx context.Context, path string) error {
	err := os.Remove(filepath.Join(p.baseDir, path))
	if os.IsNotExist(err) {
		return nil // File doesn't exist, consider it deleted
	}
	return err
}

// List returns files matching a prefix in the local filesystem.
func (p *LocalFileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	searchPath := filepath.Join(p.baseDir, prefix)

	var result []string
	err := filepath.Walk(searchPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if !info.IsDir() {
			rel, err := filepath.Rel(p.baseDir, path)
			if err == nil {
				result = append(result, rel)
			}
		}

		return nil
	})

	if err != nil && os.IsNotExist(err) {
		return []string{}, nil
	}

	return result, err
}

// ListDirs returns the immediate subdirectories under a prefix.
func (p *LocalFileProvider) ListDirs(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.baseDir, prefix))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var result []string
	for _, entry := range entries {
		if entry.IsDir() {
			result = append(result, entry.Name())
		}
	}
	return result, nil
}

// DeleteAll removes everything under a prefix.
func (p *LocalFileProvider) DeleteAll(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("refusing to delete storage root")
	}
	return os.RemoveAll(filepath.Join(p.baseDir, prefix))
}

// PrefixedFileProvider wraps a FileProvider to add a prefix to all paths.
// This allows multiple components to share the same underlying storage
// while maintaining isolated namespaces.
type PrefixedFileProvider struct {
	provider FileProvider
	prefix   string
}

// NewPrefixedFileProvider creates a new prefixed file provider.
func NewPrefixedFileProvider(provider FileProvider, prefix string) *PrefixedFileProvider {
	return &PrefixedFileProvider{
		provider: provider,
		prefix:   prefix,
	}
}

// Read reads a file with the prefix applied.
func (p *PrefixedFileProvider) Read(ctx context.Context, path string) ([]byte, error) {
	return p.provider.Read(ctx, p.prefixPath(path))
}

// Write writes data with the prefix applied.
func (p *PrefixedFileProvider) Write(ctx context.Context, path string, data []byte) error {
	return p.provider.Write(ctx, p.prefixPath(path), data)
}

// Exists checks if a file exists with the prefix applied.
func (p *PrefixedFileProvider) Exists(ctx context.Context, path string) (bool, error) {
	return p.provider.Exists(ctx, p.prefixPath(path))
}

// Delete removes a file with the prefix applied.
func (p *PrefixedFileProvider) Delete(ctx context.Context, path string) error {
	return p.provider.Delete(ctx, p.prefixPath(path))
}

// List returns files matching a prefix, with the provider prefix applied.
func (p *PrefixedFileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	files, err := p.provider.List(ctx, p.prefixPath(prefix))
	if err != nil {
		return nil, err
	}

	var result []string
	prefixLen := len(p.prefixPath(""))
	for _, file := range files {
		if len(file) >= prefixLen {
			result = append(result, file[prefixLen:])
		}
	}

	return result, nil
}

// ListDirs returns subdirectories with the provider prefix applied.
func (p *PrefixedFileProvider) ListDirs(ctx context.Context, prefix string) ([]string, error) {
	return p.provider.ListDirs(ctx, p.prefixPath(prefix))
}

// DeleteAll removes everything under a prefix, with the provider prefix applied.
func (p *PrefixedFileProvider) DeleteAll(ctx context.Context, prefix string) error {
	return p.provider.DeleteAll(ctx, p.prefixPath(prefix))
}

// prefixPath combines the prefix with the given path.
func (p *PrefixedFileProvider) prefixPath(path string) string {
	if p.prefix == "" {
		return path
	}
	return p.prefix + "/" + path
}
