package core

// streaming.go prepares uploaded bytes for the XML parser.
//
// Workbooks exported on Windows frequently start with a byte-order mark.
// The reader chain deals with it while the upload is read:
//
//   - sizeLimitedReader: fails once the raw input exceeds the upload limit
//   - BOM override: strips a UTF-8 BOM and transcodes UTF-16 input that
//     carries one; anything else passes through untouched so that the
//     declared encoding can be honoured by ParseDocument
//   - CountingReader: tracks bytes consumed for logging
//
// Use ReadDocument to apply all of them in the correct order.

import (
	"io"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewDocumentReader wraps r with the size limit and BOM handling.
// A limit <= 0 disables the size check.
func NewDocumentReader(r io.Reader, limit int64) io.Reader {
	if limit > 0 {
		r = &sizeLimitedReader{reader: r, remaining: limit, limit: limit}
	}
	return transform.NewReader(r, unicode.BOMOverride(transform.Nop))
}

// ReadDocument reads the whole upload through NewDocumentReader.
func ReadDocument(r io.Reader, limit int64) ([]byte, *CountingReader, error) {
	counter := NewCountingReader(r)
	data, err := io.ReadAll(NewDocumentReader(counter, limit))
	if err != nil {
		return nil, counter, err
	}
	return data, counter, nil
}

// sizeLimitedReader behaves like http.MaxBytesReader without a ResponseWriter.
type sizeLimitedReader struct {
	reader    io.Reader
	remaining int64
	limit     int64
	err       error
}

func (l *sizeLimitedReader) Read(p []byte) (int, error) {
	if l.err != nil {
		return 0, l.err
	}
	if len(p) == 0 {
		return 0, nil
	}

	// Read one byte past the limit so an exact-size file is not rejected.
	if int64(len(p))-1 > l.remaining {
		p = p[:l.remaining+1]
	}
	n, err := l.reader.Read(p)

	if int64(n) <= l.remaining {
		l.remaining -= int64(n)
		l.err = err
		return n, err
	}

	n = int(l.remaining)
	l.remaining = 0
	l.err = rejectAs(ErrFileTooLarge, "exceeds %s", humanize.IBytes(uint64(l.limit)))
	return n, l.err
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}
