package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vigil-ai/vigil-backend/internal/logger"
)

var (
	// ErrImageNotFound is the I/O-not-found class: a persisted image that
	// cannot be read back. The submission pipeline treats it as fatal.
	ErrImageNotFound = errors.New("image file not found")
	ErrInvalidField  = errors.New("invalid image field")

	customLog = logger.NewLogger()
)

const uploadSubdir = "change_detection"

// Store persists analysis image pairs on local disk, keyed by log id and
// field name. Paths returned are relative to the store root so records stay
// valid if the media directory moves.
type Store struct {
	Root string
}

// NewStore ensures the media root exists and returns a store over it.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, uploadSubdir), 0750); err != nil {
		customLog.Warnf("Media: Error creating media directory '%s': %v", root, err)
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Store{Root: root}, nil
}

func validField(field string) bool {
	return field == "image1" || field == "image2"
}

// Save writes one uploaded image durably and returns its store-relative path.
func (s *Store) Save(logId, field string, r io.Reader) (string, error) {
	if !validField(field) {
		return "", ErrInvalidField
	}

	dir := filepath.Join(s.Root, uploadSubdir, logId)
	if err := os.MkdirAll(dir, 0750); err != nil {
		customLog.Warnf("Media: Error creating upload directory '%s': %v", dir, err)
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	relPath := filepath.Join(uploadSubdir, logId, field+".jpg")
	f, err := os.Create(filepath.Join(s.Root, relPath))
	if err != nil {
		customLog.Warnf("Media: Error creating image file '%s': %v", relPath, err)
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		customLog.Warnf("Media: Error writing image file '%s': %v", relPath, err)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return relPath, nil
}

// Read returns the bytes of a previously saved image.
func (s *Store) Read(relPath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, relPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrImageNotFound
		}
		customLog.Warnf("Media: Error reading image file '%s': %v", relPath, err)
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// Remove deletes all images stored for a log. Used when rolling back a
// failed submission; missing files are not an error.
func (s *Store) Remove(logId string) error {
	dir := filepath.Join(s.Root, uploadSubdir, logId)
	if err := os.RemoveAll(dir); err != nil {
		customLog.Warnf("Media: Error removing images for log '%s': %v", logId, err)
		return fmt.Errorf("failed to remove images: %w", err)
	}
	return nil
}
