// Package storage keeps uploaded files in named buckets and hands out their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	BucketPostImages = "post-images"
	BucketAvatars    = "avatars"
)

var (
	ErrUnknownBucket = errors.New("unknown bucket")
	ErrInvalidPath   = errors.New("invalid object path")
	ErrTooLarge      = errors.New("file too large")
	ErrNotImage      = errors.New("file is not an image")
)

// ValidBucket reports whether name is a bucket clients may upload to.
func ValidBucket(name string) bool {
	return name == BucketPostImages || name == BucketAvatars
}

// BlobStore stores objects and returns a URL under which they are publicly readable.
type BlobStore interface {
	Put(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error)
}

// ObjectPath builds "<userID>/<unix nanos><ext>" for a new upload.
func ObjectPath(userID, ext string, now time.Time) string {
	return fmt.Sprintf("%s/%d%s", userID, now.UnixNano(), ext)
}

// LocalStore writes objects below Root/<bucket>/ and serves them from PublicBase/<bucket>/.
type LocalStore struct {
	Root       string
	PublicBase string
	logger     *zap.Logger
}

func NewLocalStore(root, publicBase string, logger *zap.Logger) *LocalStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStore{Root: root, PublicBase: strings.TrimRight(publicBase, "/"), logger: logger}
}

func (s *LocalStore) Put(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error) {
	if !ValidBucket(bucket) {
		return "", fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	clean := path.Clean("/" + objectPath)[1:]
	if clean == "" || clean != objectPath {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, objectPath)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(s.Root, bucket, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	s.logger.Debug("stored object", zap.String("bucket", bucket), zap.String("path", clean))
	return s.PublicBase + "/" + bucket + "/" + clean, nil
}

// SniffImage reads data, rejects non-images and anything over maxBytes,
// and returns the content with the file extension matching its detected type.
func SniffImage(r io.Reader, maxBytes int64) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxBytes {
		return nil, "", ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", fmt.Errorf("%w: %s", ErrNotImage, mt.String())
	}
	return data, mt.Extension(), nil
}
