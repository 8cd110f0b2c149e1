// Package media stores video and image blobs in S3-compatible object storage
// and reports playback metadata for uploaded videos.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultRequestTimeout = 30 * time.Second

// Asset describes a stored blob: its public URL and, for videos, the probed
// duration in whole seconds.
type Asset struct {
	URL             string
	DurationSeconds int
}

// Uploader moves a local file into object storage. Implementations must leave
// the local file in place; callers own its lifecycle and remove it whether the
// upload succeeds or fails.
type Uploader interface {
	Enabled() bool
	Upload(ctx context.Context, kind, localPath, contentType string) (Asset, error)
}

// Config holds the object-storage connection settings. An empty bucket or
// endpoint disables uploads entirely.
type Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	PublicEndpoint string
	Prefix         string
	RequestTimeout time.Duration
}

// Store implements Uploader against an S3-compatible endpoint.
type Store struct {
	client objectClient
}

// NewStore builds an uploader from the configuration. With no endpoint or
// bucket configured the store is disabled and every upload reports that.
func NewStore(cfg Config) *Store {
	return &Store{client: newObjectClient(cfg)}
}

// Enabled reports whether uploads are configured.
func (s *Store) Enabled() bool {
	return s.client.Enabled()
}

// Upload reads the local file, pushes it under a fresh key namespaced by
// kind, and returns the public URL. MP4 payloads additionally get their
// duration probed from the container metadata. The local file is not removed.
func (s *Store) Upload(ctx context.Context, kind, localPath, contentType string) (Asset, error) {
	if !s.client.Enabled() {
		return Asset{}, fmt.Errorf("media storage is not configured")
	}

	body, err := os.ReadFile(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("read upload %s: %w", localPath, err)
	}
	if len(body) == 0 {
		return Asset{}, fmt.Errorf("upload %s is empty", localPath)
	}

	key := objectKey(kind, localPath)
	ref, err := s.client.Upload(ctx, key, contentType, body)
	if err != nil {
		return Asset{}, err
	}

	asset := Asset{URL: ref.URL}
	if isVideoContentType(contentType, localPath) {
		asset.DurationSeconds = probeMP4Duration(body)
	}
	return asset, nil
}

func objectKey(kind, localPath string) string {
	kind = strings.Trim(strings.TrimSpace(kind), "/")
	if kind == "" {
		kind = "uploads"
	}
	ext := strings.ToLower(filepath.Ext(localPath))
	return kind + "/" + uuid.NewString() + ext
}

func isVideoContentType(contentType, localPath string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "video/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".mp4", ".m4v", ".mov":
		return true
	}
	return false
}
