// Package upload stores tenant images on local disk.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const DefaultMaxBytes = 2 << 20

var allowed = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

type Service struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
	Logger   *logger.Logger
}

type Result struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Save sniffs the content, rejecting anything but the allowed image types,
// and writes it under <Dir>/<tenantID>/ with a fresh name.
func (s *Service) Save(ctx context.Context, tenantID, filename string, r io.Reader) (*Result, error) {
	if tenantID == "" || filepath.Base(tenantID) != tenantID || strings.HasPrefix(tenantID, ".") {
		return nil, apperr.NewValidation("Invalid tenant")
	}
	limit := s.Limit()

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, apperr.NewValidation("File is empty")
	}
	if int64(len(data)) > limit {
		return nil, apperr.NewValidation(fmt.Sprintf("File exceeds %d MB", limit>>20))
	}

	mtype := mimetype.Detect(data)
	if !mimetype.EqualsAny(mtype.String(), allowed...) {
		s.Logger.LogSecurity("UPLOAD_REJECTED", fmt.Sprintf("tenant=%s file=%q type=%s", tenantID, filename, mtype.String()))
		return nil, apperr.NewValidation("Only JPEG, PNG, WebP and GIF images are allowed")
	}

	dir := filepath.Join(s.Dir, tenantID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.NewString() + mtype.Extension()
	if err := writeFile(filepath.Join(dir, name), data); err != nil {
		return nil, err
	}

	s.Logger.Info("UPLOAD", fmt.Sprintf("Stored %s (%s, %d bytes) for tenant %s", name, mtype.String(), len(data), tenantID))
	return &Result{
		URL:         strings.TrimRight(s.BaseURL, "/") + "/uploads/" + tenantID + "/" + name,
		ContentType: mtype.String(),
		Size:        int64(len(data)),
	}, nil
}

// Limit is the effective size cap.
func (s *Service) Limit() int64 {
	if s.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return s.MaxBytes
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write upload: %w", err)
	}
	return f.Close()
}
