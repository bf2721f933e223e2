package codec

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/geokit/databroker/errors"
)

// wrappedReader closes both the decompressor and the underlying file.
type wrappedReader struct {
	io.Reader
	closers []io.Closer
}

func (w *wrappedReader) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens name for reading, transparently decompressing .gz and
// .zst files by extension.
func Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound(name)
		}
		if os.IsPermission(err) {
			return nil, errors.BadPermission(name)
		}
		return nil, errors.OpenFailed(name, err)
	}

	switch {
	case strings.HasSuffix(name, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.OpenFailed(name, err)
		}
		return &wrappedReader{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.OpenFailed(name, err)
		}
		return &wrappedReader{Reader: zr, closers: []io.Closer{closerFunc(func() error { zr.Close(); return nil }), f}}, nil
	default:
		return f, nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// wrappedWriter closes the compressor before the underlying file so
// trailing blocks are flushed.
type wrappedWriter struct {
	io.Writer
	closers []io.Closer
}

func (w *wrappedWriter) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Create opens name for writing, transparently compressing .gz and
// .zst files by extension.
func Create(name string) (io.WriteCloser, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseStream, errors.CodeCreateFailed, err, name)
	}

	switch {
	case strings.HasSuffix(name, ".gz"):
		zw := gzip.NewWriter(f)
		return &wrappedWriter{Writer: zw, closers: []io.Closer{zw, f}}, nil
	case strings.HasSuffix(name, ".zst"):
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(errors.PhaseStream, errors.CodeCreateFailed, err, name)
		}
		return &wrappedWriter{Writer: zw, closers: []io.Closer{zw, f}}, nil
	default:
		return f, nil
	}
}

// Remote reports whether name refers to a URL or cache entry whose
// existence cannot be checked locally; the fetch is deferred to open
// time.
func Remote(name string) bool {
	return strings.HasPrefix(name, "http://") ||
		strings.HasPrefix(name, "https://") ||
		strings.HasPrefix(name, "ftp://") ||
		strings.HasPrefix(name, "@")
}
