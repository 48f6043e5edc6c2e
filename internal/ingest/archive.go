package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	gcsapi "google.golang.org/api/storage/v1"
)

const defaultArchivePrefix = "chat-uploads"

var filenameSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectStore receives raw uploads for archival.
type ObjectStore interface {
	Backend() string
	PutObject(ctx context.Context, objectPath, contentType string, data []byte) error
}

type GCSStore struct {
	bucketName string
	service    *gcsapi.Service
}

func NewGCSStore(ctx context.Context, bucketName string) (*GCSStore, error) {
	trimmedBucket := strings.TrimSpace(bucketName)
	if trimmedBucket == "" {
		return nil, errors.New("gcs bucket is required")
	}

	service, err := gcsapi.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs service: %w", err)
	}
	if _, err := service.Buckets.Get(trimmedBucket).Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("read gcs bucket attrs: %w", err)
	}
	return &GCSStore{bucketName: trimmedBucket, service: service}, nil
}

func (s *GCSStore) Backend() string {
	return "gcs"
}

func (s *GCSStore) PutObject(ctx context.Context, objectPath, contentType string, data []byte) error {
	cleanPath := strings.Trim(strings.TrimSpace(objectPath), "/")
	if cleanPath == "" {
		return errors.New("object path is required")
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}

	object := &gcsapi.Object{Name: cleanPath, ContentType: contentType}
	if _, err := s.service.Objects.Insert(s.bucketName, object).Media(bytes.NewReader(data)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("write gcs object %q: %w", cleanPath, err)
	}
	return nil
}

// Archiver copies uploads of signed-in users to an ObjectStore.
type Archiver struct {
	store  ObjectStore
	prefix string
}

func NewArchiver(store ObjectStore, prefix string) *Archiver {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = defaultArchivePrefix
	}
	return &Archiver{store: store, prefix: prefix}
}

// Archive stores data under <prefix>/users/<userID>/<uuid>/<filename> and
// returns the object path.
func (a *Archiver) Archive(ctx context.Context, userID, filename string, data []byte) (string, error) {
	if a == nil || a.store == nil {
		return "", nil
	}
	name := sanitizeFilename(filename)
	objectPath := path.Join(a.prefix, "users", userID, uuid.NewString(), name)
	if err := a.store.PutObject(ctx, objectPath, contentTypeFor(name), data); err != nil {
		return "", err
	}
	return objectPath, nil
}

func contentTypeFor(name string) string {
	ext := extension(name)
	if isImage(ext) {
		return imageMIMEType(ext)
	}
	return documentMIMEType(ext)
}

func sanitizeFilename(raw string) string {
	base := strings.TrimSpace(filepath.Base(raw))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "file"
	}

	ext := filepath.Ext(base)
	namePart := strings.TrimSuffix(base, ext)
	namePart = filenameSanitizer.ReplaceAllString(namePart, "_")
	namePart = strings.Trim(namePart, "._")
	if namePart == "" {
		namePart = "file"
	}

	ext = filenameSanitizer.ReplaceAllString(strings.ToLower(ext), "")
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return trimToRunes(namePart+ext, 180)
}
