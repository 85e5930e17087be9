package storage_manager

import (
	"context"
	"errors"
	"strings"
)

// S3FileProvider implements FileProvider for AWS S3.
// S3 object puts are atomic by nature, so Write needs no rename dance.
type S3FileProvider struct {
	bucket   string
	prefix   string
	s3Client S3Client
}

// NewS3FileProvider creates a new S3 file provider.
func NewS3FileProvider(bucket, prefix string, s3Client S3Client) *S3FileProvider {
	return &S3FileProvider{
		bucket:   bucket,
		prefix:   prefix,
		s3Client: s3Client,
	}
}

// Read reads a file from S3.
func (p *S3FileProvider) Read(ctx context.Context, path string) ([]byte, error) {
	return p.s3Client.GetObject(ctx, p.bucket, p.getKey(path))
}

// Write writes data to S3.
func (p *S3FileProvider) Write(ctx context.Context, path string, data []byte) error {
	return p.s3Client.PutObject(ctx, p.bucket, p.getKey(path), data)
}

// Exists checks if a file exists in S3.
// Returns (false, nil) only for "not found" errors.
// Returns (false, error) for real errors (network, permissions, etc.).
func (p *S3FileProvider) Exists(ctx context.Context, path string) (bool, error) {
	err := p.s3Client.HeadObject(ctx, p.bucket, p.getKey(path))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes a file from S3.
func (p *S3FileProvider) Delete(ctx context.Context, path string) error {
	return p.s3Client.DeleteObject(ctx, p.bucket, p.getKey(path))
}

// List returns files matching a prefix in S3.
func (p *S3FileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := p.s3Client.ListObjects(ctx, p.bucket, p.getKey(prefix))
	if err != nil {
		return nil, err
	}

	var result []string
	prefixLen := len(p.getKey(""))
	for _, key := range keys {
		if len(key) > prefixLen {
			result = append(result, key[prefixLen:])
		}
	}

	return result, nil
}

// ListDirs returns the immediate "subdirectories" under a prefix.
func (p *S3FileProvider) ListDirs(ctx context.Context, prefix string) ([]string, error) {
	key := p.getKey(prefix)
	if key != "" && !strings.HasSuffix(key, "/") {
		key += "/"
	}

	prefixes, err := p.s3Client.ListCommonPrefixes(ctx, p.bucket, key)
	if err != nil {
		return nil, err
	}

	var result []string
	for _, cp := range prefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(cp, key), "/")
		if name != "" {
			result = append(result, name)
		}
	}
	return result, nil
}

// DeleteAll removes every object under a prefix.
func (p *S3FileProvider) DeleteAll(ctx context.Context, prefix string) error {
	keys, err := p.s3Client.ListObjects(ctx, p.bucket, p.getKey(prefix))
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := p.s3Client.DeleteObject(ctx, p.bucket, key); err != nil {
			return err
		}
	}
	return nil
}

// getKey constructs the full S3 key by combining prefix and path.
func (p *S3FileProvider) getKey(path string) string {
	if p.prefix == "" {
		return path
	}
	return p.prefix + "/" + path
}
