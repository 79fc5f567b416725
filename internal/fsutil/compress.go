// Package fsutil opens and creates data files, transparently handling zstd
// and gzip compression by file extension.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies a file's compression by its final extension.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

// CompressionFor returns the compression implied by path's extension.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return Zstd
	case ".gz":
		return Gzip
	}
	return None
}

// StripCompressionExt removes a trailing .zst, .zstd or .gz from path.
func StripCompressionExt(path string) string {
	if CompressionFor(path) == None {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenReader opens path for reading, decompressing when the extension says
// so. The caller must close the returned reader.
func OpenReader(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	switch CompressionFor(path) {
	case Zstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		return &readCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			f.Close,
		}}, nil
	case Gzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return &readCloser{Reader: gz, closers: []func() error{gz.Close, f.Close}}, nil
	}
	return f, nil
}

type writeCloser struct {
	io.Writer
	closers []func() error
}

// Close finalises the compressed stream before closing the file.
func (w *writeCloser) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CreateWriter creates or truncates path, compressing when the extension
// says so. Parent directories are created as needed. Close must be called to
// flush the compressed stream.
func CreateWriter(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	switch CompressionFor(path) {
	case Zstd:
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		return &writeCloser{Writer: enc, closers: []func() error{enc.Close, f.Close}}, nil
	case Gzip:
		gz := gzip.NewWriter(f)
		return &writeCloser{Writer: gz, closers: []func() error{gz.Close, f.Close}}, nil
	}
	return f, nil
}
