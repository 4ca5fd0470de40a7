// Package filex holds small filesystem helpers used by the CLI: the local
// data directory and image attachments read from disk.
package filex

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxImageSize bounds attachments read by ReadImage.
const MaxImageSize = 10 << 20

var (
	ErrNotImage      = errors.New("file is not an image")
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// EnsureDir creates dir (and parents) if needed and returns its absolute
// path. Relative paths are resolved against the working directory.
func EnsureDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// ImageFile is an image loaded from disk.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadImage loads the file at path, sniffs its content type and rejects
// anything that is not image/* or is larger than MaxImageSize.
func ReadImage(path string) (*ImageFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%s (%s): %w", path, ct, ErrNotImage)
	}

	return &ImageFile{Name: filepath.Base(path), ContentType: ct, Data: data}, nil
}
