// Package storage writes captured screenshots to the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

var (
	// ErrInvalidPath is returned when the target path cannot be resolved.
	ErrInvalidPath = errors.New("invalid path")

	// ErrEncode is returned when the image cannot be encoded for its extension.
	ErrEncode = errors.New("unable to encode image")
)

// ImageExtensions are the extensions that make a target path a literal file path.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".tiff", ".bmp"}

const (
	namePrefix  = "screenshot_"
	nameLayout  = "20060102_150405"
	defaultExt  = ".png"
	jpegQuality = 95
	dirPerm     = 0755
	filePerm    = 0644
)

// IsImagePath reports whether path ends in a recognized image extension.
func IsImagePath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Persister saves images, resolving where they go from the target path.
type Persister struct {
	now func() time.Time
	wd  func() (string, error)
}

func NewPersister() *Persister {
	return &Persister{
		now: time.Now,
		wd:  os.Getwd,
	}
}

// WithClock fixes the time used for generated names.
func (p *Persister) WithClock(now func() time.Time) *Persister {
	p.now = now
	return p
}

// DefaultName is the generated file name, e.g. screenshot_20230101_120000.png.
func (p *Persister) DefaultName() string {
	return namePrefix + p.now().Format(nameLayout) + defaultExt
}

// DefaultPath is DefaultName inside the current working directory.
func (p *Persister) DefaultPath() (string, error) {
	wd, err := p.wd()
	if err != nil {
		return "", fmt.Errorf("%w: unable to get working directory: %w", ErrInvalidPath, err)
	}
	return filepath.Join(wd, p.DefaultName()), nil
}

// Resolve turns a target path into the file path an image is written to,
// creating the directories it needs.
//
// A path with an image extension is used verbatim. Any other path is a
// directory that receives a generated name. An empty path means the working directory.
func (p *Persister) Resolve(path string) (string, error) {
	if path == "" {
		return p.DefaultPath()
	}

	if IsImagePath(path) {
		if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
		return path, nil
	}

	if err := os.MkdirAll(path, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	return filepath.Join(path, p.DefaultName()), nil
}

// Save writes img to the resolved path and returns it.
func (p *Persister) Save(img image.Image, path string) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: nil image", ErrEncode)
	}

	target, err := p.Resolve(path)
	if err != nil {
		return "", err
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := Encode(file, img, filepath.Ext(target)); err != nil {
		file.Close()
		os.Remove(target)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return target, nil
}

// Encode writes img in the format named by ext.
func Encode(w io.Writer, img image.Image, ext string) error {
	var err error
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case ".bmp":
		err = bmp.Encode(w, img)
	case ".tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case ".png", "":
		err = png.Encode(w, img)
	default:
		return fmt.Errorf("%w: unsupported extension %q", ErrEncode, ext)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return nil
}
