// Package storage keeps the ephemeral files of each conversion.
//
// Every conversion gets a uuid; its raw upload is stored as <id>.xml and its
// report as <id>.csv inside a single directory. Files are removed once the
// report has been sent, and a background sweeper deletes anything left
// behind by interrupted requests.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	uploadExt = ".xml"
	reportExt = ".csv"
)

// TempStore stores conversion files under Dir.
type TempStore struct {
	Dir string
	now func() time.Time
}

// NewTempStore creates dir if needed and returns a store rooted there.
func NewTempStore(dir string) (*TempStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "calcfields")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create temp dir %s: %w", dir, err)
	}
	return &TempStore{Dir: dir, now: time.Now}, nil
}

// SaveUpload writes r to <id>.xml and returns its path.
func (s *TempStore) SaveUpload(id string, r io.Reader) (string, error) {
	path, err := s.path(id, uploadExt)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return path, nil
}

// CreateReport opens <id>.csv for writing.
func (s *TempStore) CreateReport(id string) (io.WriteCloser, string, error) {
	path, err := s.path(id, reportExt)
	if err != nil {
		return nil, "", err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, "", fmt.Errorf("create report file: %w", err)
	}
	return f, path, nil
}

// OpenReport opens a previously written report for reading.
func (s *TempStore) OpenReport(id string) (io.ReadCloser, error) {
	path, err := s.path(id, reportExt)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Remove deletes both files of a conversion. Missing files are not an error.
func (s *TempStore) Remove(id string) error {
	var errs []error
	for _, ext := range []string{uploadExt, reportExt} {
		path, err := s.path(id, ext)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sweep deletes conversion files last modified more than maxAge ago and
// returns how many were removed. Files not named <uuid>.xml or <uuid>.csv
// are left alone.
func (s *TempStore) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return 0, fmt.Errorf("read temp dir: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	var errs []error

	for _, entry := range entries {
		if entry.IsDir() || !isConversionFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// path validates id so callers can't escape Dir.
func (s *TempStore) path(id, ext string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid conversion id %q", id)
	}
	return filepath.Join(s.Dir, id+ext), nil
}

func isConversionFile(name string) bool {
	ext := filepath.Ext(name)
	if ext != uploadExt && ext != reportExt {
		return false
	}
	_, err := uuid.Parse(strings.TrimSuffix(name, ext))
	return err == nil
}
