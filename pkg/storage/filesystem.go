package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrOutsideBase is returned for stored paths that escape the storage root.
var ErrOutsideBase = errors.New("path escapes archive storage")

// LocalStorage keeps student archive files on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./archives"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archives directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Import copies the file at src into the store under the owner's folder and
// returns the relative path to record.
func (s *LocalStorage) Import(ownerID int64, src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open archive source: %w", err)
	}
	defer in.Close() //nolint:errcheck

	rel := filepath.Join(strconv.FormatInt(ownerID, 10), uuid.NewString()+strings.ToLower(filepath.Ext(src)))
	return s.SaveStream(rel, in)
}

// SaveStream copies from reader into the target relative path.
func (s *LocalStorage) SaveStream(rel string, r io.Reader) (string, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare archive directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write archive file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close archive file: %w", err)
	}
	return rel, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(rel string) (*os.File, error) {
	path, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	path, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete archive file: %w", err)
	}
	return nil
}

// Path exposes the on-disk location of a stored file.
func (s *LocalStorage) Path(rel string) string {
	path, err := s.resolve(rel)
	if err != nil {
		return ""
	}
	return path
}

func (s *LocalStorage) resolve(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", ErrOutsideBase
	}
	path := filepath.Join(s.baseDir, rel)
	back, err := filepath.Rel(s.baseDir, path)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", ErrOutsideBase
	}
	return path, nil
}
