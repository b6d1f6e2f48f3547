package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/calcfields/internal/core"
	"github.com/JonMunkholm/calcfields/internal/logging"
	"github.com/JonMunkholm/calcfields/internal/web/templates"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to disk.
const multipartMemory = 8 << 20

// multipartOverhead allows for boundaries and headers around the file part.
const multipartOverhead = 1 << 20

// handleIndex renders the upload form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.UploadPage(templates.UploadPageParams{
		MaxFileSize:  s.cfg.Upload.MaxFileSize,
		ContentTypes: core.AcceptedContentTypes,
	})
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render upload page", "error", err)
	}
}

// handleUpload converts an uploaded workbook and returns the CSV report as
// an attachment.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: no file provided (%v)", core.ErrInputRejected, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: no file provided", core.ErrInputRejected), http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := s.service.Convert(r.Context(), core.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer s.service.Discard(r.Context(), result.ID)

	if err := s.serveReport(w, result); err != nil {
		logging.FromContext(r.Context()).Error("failed to send report",
			"conversion_id", result.ID,
			"error", err,
		)
	}
}

// serveReport streams the CSV report written by the service.
func (s *Server) serveReport(w http.ResponseWriter, result *core.Result) error {
	f, err := s.service.OpenReport(result.ID)
	if err != nil {
		return err
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, reportFileName(result.FileName, time.Now())))
	w.Header().Set("X-Record-Count", strconv.Itoa(len(result.Records)))
	_, err = io.Copy(w, f)
	return err
}

// reportFileName derives the download name from the uploaded file name.
func reportFileName(uploaded string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(uploaded), filepath.Ext(uploaded))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "_" || base == "." {
		base = "calculations"
	}
	return fmt.Sprintf("%s_%s.csv", base, now.Format("20060102_150405"))
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus returns the current state of the conversion limiter.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LimiterStatus())
}
