package evidence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/config"
	"github.com/staturevogue/storefront/pkg/errors"
)

// sniffLen is how much of the upload mimetype inspects
const sniffLen = 3072

// Store keeps evidence videos for order item actions on local disk
type Store struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// NewStore creates the evidence directory if needed
func NewStore(cfg config.EvidenceConfig, logger *zap.Logger) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("evidence directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create evidence directory: %w", err)
	}
	return &Store{dir: cfg.Dir, maxBytes: cfg.MaxBytes, logger: logger}, nil
}

// MaxBytes is the largest upload Save accepts
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save writes r under itemID and returns the stored path. Empty uploads,
// uploads above MaxBytes and anything that does not sniff as video are
// rejected with a ValidationError and leave nothing on disk.
func (s *Store) Save(ctx context.Context, itemID uuid.UUID, filename string, r io.Reader) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read evidence: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", &errors.ValidationError{Field: "evidence", Message: "evidence video is empty"}
	}

	mt := mimetype.Detect(head)
	if !isVideo(mt) {
		return "", &errors.ValidationError{
			Field:   "evidence",
			Message: fmt.Sprintf("evidence must be a video, got %s", mt.String()),
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	itemDir := filepath.Join(s.dir, itemID.String())
	if err := os.MkdirAll(itemDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create evidence directory: %w", err)
	}

	tmp, err := os.CreateTemp(itemDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create evidence file: %w", err)
	}
	defer os.Remove(tmp.Name())

	body := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(tmp, io.LimitReader(body, s.maxBytes+1))
	closeErr := tmp.Close()
	if err != nil {
		return "", fmt.Errorf("failed to write evidence: %w", err)
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to write evidence: %w", closeErr)
	}
	if written > s.maxBytes {
		return "", &errors.ValidationError{
			Field:   "evidence",
			Message: fmt.Sprintf("evidence exceeds the %d MB limit", s.maxBytes>>20),
		}
	}

	path := filepath.Join(itemDir, uuid.NewString()+mt.Extension())
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to store evidence: %w", err)
	}

	s.logger.Info("Evidence stored",
		zap.String("item_id", itemID.String()),
		zap.String("original_name", filepath.Base(filename)),
		zap.String("mime", mt.String()),
		zap.Int64("bytes", written),
	)
	return path, nil
}

// Delete removes a stored evidence file. A missing file is not an error.
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func isVideo(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}
