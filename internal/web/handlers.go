package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/custload/internal/core"
	"github.com/go-chi/chi/v5"
)

var (
	errNoFile       = errors.New("no file provided")
	errFileTooLarge = errors.New("file too large")
)

// handleUpload ingests the multipart "file" part synchronously.
// A request without a file is ingested as an empty upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	fileName, content, closeFile, err := s.uploadFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer closeFile()

	result, err := s.service.Upload(r.Context(), fileName, content)
	if err != nil {
		s.respondUploadError(w, r, err, result.UploadID)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// uploadFile returns the multipart "file" part of r, capped at the configured
// size. A missing part yields empty content so the service reports an empty
// upload.
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) (string, io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		return header.Filename, file, func() { file.Close() }, nil
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return "", strings.NewReader(""), func() {}, nil
	}

	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return "", nil, nil, fmt.Errorf("%w: %w", errFileTooLarge, err)
	}
	return "", nil, nil, fmt.Errorf("%w: %w", errNoFile, err)
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.service.ListCustomers(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if customers == nil {
		customers = []core.Customer{}
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, r, fmt.Errorf("customer %q: %w", chi.URLParam(r, "id"), core.ErrNotFound))
		return
	}

	customer, err := s.service.GetCustomer(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.service.ListAddresses(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if addrs == nil {
		addrs = []core.Address{}
	}
	writeJSON(w, http.StatusOK, addrs)
}

// handleListUploads returns upload history. ?limit= overrides the configured cap.
func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", s.cfg.Upload.HistoryLimit)

	records, err := s.service.ListUploads(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.UploadRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Reset(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleHealth reports database connectivity and whether an upload is running.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"error":  core.MapError(err).Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"active_uploads": s.service.UploadLimiterStatus().Active,
	})
}

// parseIntParam reads a positive integer query parameter, or returns defaultVal.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}
