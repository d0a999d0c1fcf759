package storage

import (
	"context"
	"io"
)

// Object is a stored media object. URL is publicly fetchable; PublicID is
// the opaque handle accepted by Delete.
type Object struct {
	URL      string
	PublicID string
	Size     int64
}

// UploadOptions conveys metadata about the incoming file.
type UploadOptions struct {
	Filename    string
	ContentType string
}

// Service stores uploaded image bytes and deletes them by handle.
// Deleting a handle whose object is already gone is not an error.
type Service interface {
	Upload(ctx context.Context, r io.Reader, opts UploadOptions) (Object, error)
	Delete(ctx context.Context, publicID string) error
}
