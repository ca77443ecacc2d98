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
	"github.com/rs/zerolog"
)

// LocalConfig configures the public-disk storage driver.
type LocalConfig struct {
	// Root is the directory blobs are written under.
	Root string
	// BaseURL is prepended to references when building public URLs.
	BaseURL string
	// Folder namespaces the generated references, e.g. "students".
	Folder string
}

// Local stores blobs on the local public disk. References are
// folder-relative paths with generated filenames.
type Local struct {
	root    string
	baseURL string
	folder  string
	logger  zerolog.Logger
}

// NewLocal constructs the local-disk storage driver and ensures the
// namespace directory exists.
func NewLocal(cfg LocalConfig, logger zerolog.Logger) (*Local, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("storage root must not be empty")
	}

	folder := strings.Trim(cfg.Folder, "/")
	if folder == "" {
		folder = "students"
	}

	if err := os.MkdirAll(filepath.Join(cfg.Root, folder), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Local{
		root:    cfg.Root,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		folder:  folder,
		logger:  logger.With().Str("component", "storage_local").Logger(),
	}, nil
}

// Store writes the blob under a generated unique filename and returns
// its namespace-relative reference.
func (l *Local) Store(_ context.Context, filename string, reader io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ref := path.Join(l.folder, uuid.NewString()+ext)

	target := filepath.Join(l.root, filepath.FromSlash(ref))
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to flush blob: %w", err)
	}

	l.logger.Info().Str("ref", ref).Msg("blob stored")

	return ref, nil
}

// Delete removes the referenced blob. Absent blobs are not an error.
func (l *Local) Delete(_ context.Context, ref string) error {
	target, err := l.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	return nil
}

// Exists reports whether the referenced blob is present on disk.
func (l *Local) Exists(_ context.Context, ref string) bool {
	target, err := l.resolve(ref)
	if err != nil {
		return false
	}

	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}

// URL returns the public URL for a stored reference.
func (l *Local) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return l.baseURL + "/" + strings.TrimLeft(ref, "/")
}

// resolve maps a reference to an on-disk path, rejecting anything that
// escapes the storage root.
func (l *Local) resolve(ref string) (string, error) {
	cleaned := path.Clean(ref)
	if cleaned == "." || path.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidReference
	}

	return filepath.Join(l.root, filepath.FromSlash(cleaned)), nil
}
