// Package storage holds uploaded profile photos on local disk and serves
// them back under a public URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath = errors.New("storage: invalid object path")
	ErrExists      = errors.New("storage: object already exists")
	ErrTooLarge    = errors.New("storage: object too large")
)

type Disk struct {
	root    string
	baseURL string
	maxSize int64
}

// NewDisk stores objects under root and serves them at baseURL + "/uploads/".
// maxSize <= 0 disables the size check.
func NewDisk(root, baseURL string, maxSize int64) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{root: root, baseURL: strings.TrimRight(baseURL, "/"), maxSize: maxSize}, nil
}

func (d *Disk) Root() string { return d.root }

// Clean validates an object path such as "<owner>/profile.jpg".
func Clean(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned != p || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidPath
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == "" || part == "." || part == ".." {
			return "", ErrInvalidPath
		}
	}
	return cleaned, nil
}

// Upload writes body to the object path and returns the cleaned path.
// Without overwrite an existing object is left alone and ErrExists returned.
func (d *Disk) Upload(ctx context.Context, objectPath string, body io.Reader, overwrite bool) (string, error) {
	key, err := Clean(objectPath)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if !overwrite {
		if _, err := os.Stat(dst); err == nil {
			return "", ErrExists
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := body
	if d.maxSize > 0 {
		src = io.LimitReader(body, d.maxSize+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	if d.maxSize > 0 && n > d.maxSize {
		return "", ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store object: %w", err)
	}
	return key, nil
}

func (d *Disk) PublicURL(objectPath string) string {
	return d.baseURL + "/uploads/" + strings.TrimLeft(objectPath, "/")
}
