// Package storage manages uploaded photo files on disk.
package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublicPrefix is the URL prefix under which stored files are served.
const PublicPrefix = "/uploads"

// Uploads writes photo files under a single root directory. Files are
// staged under a hidden temporary name first and only renamed into place
// once the owning database row is committed, so a failed insert never
// leaves a published file behind.
type Uploads struct {
	root string
}

// New ensures the upload directory exists and returns an Uploads rooted
// there.
func New(root string) (*Uploads, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Uploads{root: root}, nil
}

// Root returns the upload directory path.
func (u *Uploads) Root() string {
	return u.root
}

// Staged is a file written to the staging area but not yet published.
type Staged struct {
	tempPath  string
	finalPath string

	// PublicPath is the URL path the file will be served under once
	// published, e.g. /uploads/20240101T120000_ab12cd34_photo.jpg.
	PublicPath string
}

// Stage streams src into a temporary file and reserves a collision
// resistant final name derived from the current time and the original
// filename.
func (u *Uploads) Stage(src io.Reader, originalName string) (*Staged, error) {
	name := fmt.Sprintf("%s_%s_%s",
		time.Now().UTC().Format("20060102T150405"),
		strings.Split(uuid.NewString(), "-")[0],
		sanitizeName(originalName),
	)

	tmp, err := os.CreateTemp(u.root, ".staged-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to close staging file: %w", err)
	}

	return &Staged{
		tempPath:   tmp.Name(),
		finalPath:  filepath.Join(u.root, name),
		PublicPath: path.Join(PublicPrefix, name),
	}, nil
}

// Publish renames the staged file to its final name, making it visible to
// the static file server.
func (s *Staged) Publish() error {
	if err := os.Rename(s.tempPath, s.finalPath); err != nil {
		return fmt.Errorf("failed to publish upload: %w", err)
	}
	return nil
}

// Discard removes the staged file. Safe to call after Publish, where it is
// a no-op.
func (s *Staged) Discard() {
	os.Remove(s.tempPath)
}

// sanitizeName strips path components and replaces characters that are
// unsafe in a filename or a URL path segment.
func sanitizeName(name string) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "upload"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
