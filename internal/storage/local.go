package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalService writes images to a local directory. Files are expected to
// be served statically under urlPrefix (see the /uploads route).
type LocalService struct {
	dir       string
	urlPrefix string
}

func NewLocalService(dir, publicBaseURL string) *LocalService {
	prefix := strings.TrimSuffix(publicBaseURL, "/") + "/uploads"
	return &LocalService{
		dir:       filepath.Clean(dir),
		urlPrefix: prefix,
	}
}

func (s *LocalService) Upload(ctx context.Context, r io.Reader, opts UploadOptions) (Object, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Object{}, fmt.Errorf("create upload dir: %w", err)
	}

	publicID := uuid.NewString() + strings.ToLower(path.Ext(opts.Filename))
	dst := filepath.Join(s.dir, publicID)

	f, err := os.Create(dst)
	if err != nil {
		return Object{}, fmt.Errorf("create file %s: %w", dst, err)
	}

	n, err := io.Copy(f, r)
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(dst)
		return Object{}, fmt.Errorf("write file %s: %w", dst, err)
	}
	if closeErr != nil {
		_ = os.Remove(dst)
		return Object{}, fmt.Errorf("close file %s: %w", dst, closeErr)
	}

	return Object{
		URL:      s.urlPrefix + "/" + publicID,
		PublicID: publicID,
		Size:     n,
	}, nil
}

func (s *LocalService) Delete(ctx context.Context, publicID string) error {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return fmt.Errorf("public id is required")
	}
	// handles are generated basenames; reject anything path-like
	if publicID != filepath.Base(publicID) {
		return fmt.Errorf("invalid public id")
	}

	if err := os.Remove(filepath.Join(s.dir, publicID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Dir returns the directory served under /uploads.
func (s *LocalService) Dir() string { return s.dir }

var _ Service = (*LocalService)(nil)
