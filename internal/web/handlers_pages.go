package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/custload/internal/core"
	"github.com/JonMunkholm/custload/internal/web/templates"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
)

// handleIndex renders the upload form with store counts and recent uploads.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	params, err := s.uploadPageParams(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render(w, r, http.StatusOK, templates.UploadPage(params))
}

// handleUploadForm ingests a file posted from the upload form. HTMX requests
// get the result partial; plain form posts get the whole page back.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	fileName, content, closeFile, err := s.uploadFile(w, r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	defer closeFile()

	result, uploadErr := s.service.Upload(r.Context(), fileName, content)
	if isHTMX(r) {
		if uploadErr != nil {
			s.renderError(w, r, uploadErr)
			return
		}
		render(w, r, http.StatusOK, templates.UploadSummary(result))
		return
	}

	params, err := s.uploadPageParams(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	status := http.StatusOK
	if uploadErr != nil {
		var msg core.UserMessage
		status, msg = logRequestError(r, uploadErr)
		params.Alert = &templates.Alert{Message: msg.Message, Action: msg.Action, Code: msg.Code}
	} else {
		params.Result = &result
	}
	render(w, r, status, templates.UploadPage(params))
}

func (s *Server) uploadPageParams(r *http.Request) (templates.UploadPageParams, error) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		return templates.UploadPageParams{}, err
	}
	history, err := s.service.ListUploads(r.Context(), s.cfg.Upload.HistoryLimit)
	if err != nil {
		return templates.UploadPageParams{}, err
	}
	return templates.UploadPageParams{Stats: stats, History: history}, nil
}

func (s *Server) handleCustomersPage(w http.ResponseWriter, r *http.Request) {
	customers, err := s.service.ListCustomers(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render(w, r, http.StatusOK, templates.CustomerList(customers))
}

func (s *Server) handleCustomerPage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.renderError(w, r, fmt.Errorf("customer %q: %w", chi.URLParam(r, "id"), core.ErrNotFound))
		return
	}

	customer, err := s.service.GetCustomer(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render(w, r, http.StatusOK, templates.CustomerDetail(customer))
}

// render writes c as HTML with the given status.
// Logs render errors since headers are already sent.
func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("template render error", "error", err)
	}
}
