package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/custload/internal/config"
	"github.com/JonMunkholm/custload/internal/core"
)

// fakeService records the upload it receives and returns canned results.
type fakeService struct {
	gotFileName string
	gotContent  string

	uploadResult core.UploadResult
	uploadErr    error

	customers   []core.Customer
	customerErr error
	history     []core.UploadRecord
	uploadLimit int
	pingErr     error
	active      int
	resetCalled bool
}

func (f *fakeService) Upload(ctx context.Context, fileName string, content io.Reader) (core.UploadResult, error) {
	b, err := io.ReadAll(content)
	if err != nil {
		return core.UploadResult{}, err
	}
	f.gotFileName = fileName
	f.gotContent = string(b)
	return f.uploadResult, f.uploadErr
}

func (f *fakeService) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	return f.customers, nil
}

func (f *fakeService) GetCustomer(ctx context.Context, id int64) (core.Customer, error) {
	if f.customerErr != nil {
		return core.Customer{}, f.customerErr
	}
	for _, c := range f.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Customer{}, core.ErrNotFound
}

func (f *fakeService) ListAddresses(ctx context.Context) ([]core.Address, error) {
	return nil, nil
}

func (f *fakeService) ListUploads(ctx context.Context, limit int) ([]core.UploadRecord, error) {
	f.uploadLimit = limit
	return f.history, nil
}

func (f *fakeService) Stats(ctx context.Context) (core.Stats, error) {
	return core.Stats{Customers: int64(len(f.customers))}, nil
}

func (f *fakeService) Reset(ctx context.Context) error {
	f.resetCalled = true
	return nil
}

func (f *fakeService) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeService) UploadLimiterStatus() core.UploadLimiterStatus {
	return core.UploadLimiterStatus{Active: f.active}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.Upload.MaxFileSize = 1024
	cfg.Upload.HistoryLimit = 100
	return cfg
}

func newTestServer(svc *fakeService) *Server {
	return NewServer(svc, testConfig())
}

// multipartBody builds a request body with one "file" part.
func multipartBody(t *testing.T, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v (body %q)", err, rr.Body.String())
	}
	return resp
}

func TestHandleUpload_Committed(t *testing.T) {
	svc := &fakeService{uploadResult: core.UploadResult{
		UploadID: "u1",
		FileName: "Workbook2.csv",
		Phase:    core.PhaseCommitted,
		Stats:    core.IngestStats{Format: core.FormatDelimited, Lines: 1, Customers: 1, AddressesCreated: 1},
	}}
	body, ct := multipartBody(t, "Workbook2.csv", "header\nline\n")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)

	rr := serve(newTestServer(svc), req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if svc.gotFileName != "Workbook2.csv" || svc.gotContent != "header\nline\n" {
		t.Errorf("service got %q / %q", svc.gotFileName, svc.gotContent)
	}

	var res core.UploadResult
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.UploadID != "u1" || res.Phase != core.PhaseCommitted || res.Stats.Customers != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestHandleUpload_Rejected(t *testing.T) {
	svc := &fakeService{
		uploadResult: core.UploadResult{UploadID: "u2", Phase: core.PhaseRejected},
		uploadErr: &core.IngestError{
			Kind:    core.KindInvalidDate,
			Message: "Column Birthday has incorrect format (should be dd/MM/yyyy): 31/02/1965",
			Line:    3,
		},
	}
	body, ct := multipartBody(t, "bad.csv", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)

	rr := serve(newTestServer(svc), req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Kind != core.KindInvalidDate || resp.Line != 3 || resp.UploadID != "u2" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Code != "VAL005" {
		t.Errorf("Code = %q, want VAL005", resp.Code)
	}
	if resp.Message == "" || resp.Action == "" {
		t.Errorf("message and action must be set: %+v", resp)
	}
}

func TestHandleUpload_NoFileIsEmptyUpload(t *testing.T) {
	svc := &fakeService{uploadErr: &core.IngestError{Kind: core.KindEmptyUpload, Message: "empty"}}
	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)

	rr := serve(newTestServer(svc), req)

	if svc.gotFileName != "" || svc.gotContent != "" {
		t.Errorf("service got %q / %q, want empty upload", svc.gotFileName, svc.gotContent)
	}
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Kind != core.KindEmptyUpload {
		t.Errorf("Kind = %q, want %q", resp.Kind, core.KindEmptyUpload)
	}
}

func TestHandleUpload_TooLarge(t *testing.T) {
	svc := &fakeService{}
	body, ct := multipartBody(t, "big.csv", string(bytes.Repeat([]byte("a"), 4096)))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)

	rr := serve(newTestServer(svc), req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != "FILE003" {
		t.Errorf("Code = %q, want FILE003", resp.Code)
	}
}

func TestHandleUpload_Busy(t *testing.T) {
	svc := &fakeService{uploadErr: core.ErrTooManyUploads}
	body, ct := multipartBody(t, "a.csv", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)

	rr := serve(newTestServer(svc), req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "5" {
		t.Errorf("Retry-After = %q, want 5", got)
	}
}

func TestHandleGetCustomer(t *testing.T) {
	svc := &fakeService{customers: []core.Customer{
		{ID: 7, FirstName: "Paul", LastName: "Anderson", Address: &core.Address{ID: 1, Street: "Dorpsplein 3A", Postcode: "4532 AA"}},
	}}
	s := newTestServer(svc)

	tests := []struct {
		path string
		want int
	}{
		{"/api/customers/7", http.StatusOK},
		{"/api/customers/8", http.StatusNotFound},
		{"/api/customers/abc", http.StatusNotFound},
		{"/api/customers/-1", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := serve(s, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}

	svc.customerErr = errors.New("connection refused")
	rr := serve(s, httptest.NewRequest(http.MethodGet, "/api/customers/7", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != "DB001" {
		t.Errorf("Code = %q, want DB001", resp.Code)
	}
}

func TestHandleList_EmptyIsArray(t *testing.T) {
	s := newTestServer(&fakeService{})

	for _, path := range []string{"/api/customers", "/api/addresses", "/api/uploads"} {
		t.Run(path, func(t *testing.T) {
			rr := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if got := bytes.TrimSpace(rr.Body.Bytes()); string(got) != "[]" {
				t.Errorf("body = %s, want []", got)
			}
		})
	}
}

func TestHandleListUploads_Limit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 100},
		{"?limit=5", 5},
		{"?limit=0", 100},
		{"?limit=abc", 100},
	}
	for _, tt := range tests {
		svc := &fakeService{}
		serve(newTestServer(svc), httptest.NewRequest(http.MethodGet, "/api/uploads"+tt.query, nil))
		if svc.uploadLimit != tt.want {
			t.Errorf("%q: limit = %d, want %d", tt.query, svc.uploadLimit, tt.want)
		}
	}
}

func TestHandleReset(t *testing.T) {
	svc := &fakeService{}
	rr := serve(newTestServer(svc), httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	if rr.Code != http.StatusOK || !svc.resetCalled {
		t.Errorf("status = %d, reset called = %v", rr.Code, svc.resetCalled)
	}
}

func TestHandleHealth(t *testing.T) {
	svc := &fakeService{active: 1}
	s := newTestServer(svc)

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["active_uploads"] != float64(1) {
		t.Errorf("body = %v", body)
	}

	svc.pingErr = errors.New("dial tcp: connection refused")
	rr = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rr := serve(newTestServer(&fakeService{}), httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("X-Frame-Options = %q", rr.Header().Get("X-Frame-Options"))
	}
}

func TestWriteRoutes_RequireAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"k1"}
	svc := &fakeService{}
	s := NewServer(svc, cfg)

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		want   int
	}{
		{"reset without key", http.MethodPost, "/api/reset", "", http.StatusUnauthorized},
		{"reset with wrong key", http.MethodPost, "/api/reset", "nope", http.StatusForbidden},
		{"reset with key", http.MethodPost, "/api/reset", "k1", http.StatusOK},
		{"reads stay open", http.MethodGet, "/api/stats", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			if rr := serve(s, req); rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
