package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/JonMunkholm/calcfields/internal/config"
	"github.com/JonMunkholm/calcfields/internal/logging"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// AcceptedContentTypes lists the declared media types the service converts.
var AcceptedContentTypes = []string{"application/xml", "text/xml"}

// Store persists the per-conversion temp files.
// Satisfied by *storage.TempStore.
type Store interface {
	SaveUpload(id string, r io.Reader) (string, error)
	CreateReport(id string) (io.WriteCloser, string, error)
	OpenReport(id string) (io.ReadCloser, error)
	Remove(id string) error
}

// Service runs conversions for the web layer.
type Service struct {
	store       Store
	limiter     *Limiter
	maxFileSize int64
	keepFiles   bool
}

// NewService creates a Service backed by store.
func NewService(store Store, cfg config.UploadConfig) (*Service, error) {
	if store == nil {
		return nil, errors.New("core: nil store")
	}
	return &Service{
		store:       store,
		limiter:     NewLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		maxFileSize: cfg.MaxFileSize,
		keepFiles:   cfg.KeepFiles,
	}, nil
}

// IsXMLContentType reports whether a declared content type is accepted.
// Media type parameters such as charset are ignored.
func IsXMLContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, accepted := range AcceptedContentTypes {
		if mediaType == accepted {
			return true
		}
	}
	return false
}

// ValidateUpload performs the checks made before any bytes are read.
func (s *Service) ValidateUpload(u Upload) error {
	if u.Body == nil {
		return reject("no file provided")
	}
	if strings.TrimSpace(u.FileName) == "" {
		return reject("empty filename")
	}
	if !IsXMLContentType(u.ContentType) {
		return rejectAs(ErrUnsupportedType, "%q", u.ContentType)
	}
	if s.maxFileSize > 0 && u.Size > s.maxFileSize {
		return rejectAs(ErrFileTooLarge, "%s exceeds %s",
			humanize.IBytes(uint64(u.Size)), humanize.IBytes(uint64(s.maxFileSize)))
	}
	return nil
}

// Convert validates, stores and converts an upload, leaving the CSV report in
// the store. Call Discard with the result ID once the report has been sent.
// A parse failure removes the stored upload and produces no report.
func (s *Service) Convert(ctx context.Context, u Upload) (*Result, error) {
	if err := s.ValidateUpload(u); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	id := uuid.NewString()
	logger := logging.WithFields(ctx, "conversion_id", id, "file", u.FileName)

	data, counter, err := ReadDocument(u.Body, s.maxFileSize)
	if err != nil {
		return nil, err
	}
	logger.Debug("upload read", "bytes", counter.BytesRead, "size", humanize.IBytes(uint64(counter.BytesRead)))

	if _, err := s.store.SaveUpload(id, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	records, err := ExtractBytes(data)
	if err != nil {
		s.Discard(ctx, id)
		return nil, err
	}

	path, err := s.writeReport(id, records)
	if err != nil {
		s.Discard(ctx, id)
		return nil, err
	}

	counts := CountByLabel(records)
	result := &Result{
		ID:         id,
		FileName:   u.FileName,
		CSVPath:    path,
		Records:    records,
		Parameters: counts[LabelParameter],
		Calculated: counts[LabelCalculatedField],
		Duration:   time.Since(start),
	}

	logger.Info("conversion completed",
		"records", len(records),
		"parameters", result.Parameters,
		"calculated_fields", result.Calculated,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (s *Service) writeReport(id string, records []Record) (string, error) {
	w, path, err := s.store.CreateReport(id)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := WriteReport(w, records); err != nil {
		w.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}

// OpenReport opens the CSV report written by Convert.
func (s *Service) OpenReport(id string) (io.ReadCloser, error) {
	rc, err := s.store.OpenReport(id)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	return rc, nil
}

// Discard removes the temp files of a conversion unless KeepFiles is set.
func (s *Service) Discard(ctx context.Context, id string) {
	if s.keepFiles {
		return
	}
	if err := s.store.Remove(id); err != nil {
		logging.FromContext(ctx).Warn("failed to remove temp files", "conversion_id", id, "error", err)
	}
}

// LimiterStatus returns the current state of the conversion limiter.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForConversions blocks until in-flight conversions finish or ctx is done.
func (s *Service) WaitForConversions(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
