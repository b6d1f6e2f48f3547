package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/calcfields/internal/config"
	"github.com/JonMunkholm/calcfields/internal/core"
	"github.com/JonMunkholm/calcfields/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWorkbook = `<?xml version='1.0' encoding='utf-8' ?>
<workbook>
  <datasources>
    <datasource caption="Orders">
      <column name="[Calculation_1]" caption="Margin" datatype="real">
        <calculation class="tableau" formula="[Sales] - [Cost]" />
      </column>
      <column name="[Calculation_2]" caption="Margin Ratio" datatype="real">
        <calculation class="tableau" formula="[Calculation_1] / [Sales]" />
      </column>
    </datasource>
  </datasources>
</workbook>`

type testServer struct {
	*Server
	tempDir string
}

func newTestServer(t *testing.T, env map[string]string) *testServer {
	t.Helper()

	tempDir := t.TempDir()
	base := map[string]string{
		"UPLOAD_TEMP_DIR":    tempDir,
		"RATE_LIMIT_ENABLED": "false",
	}
	for k, v := range env {
		base[k] = v
	}

	cfg, err := config.LoadFrom(config.MapLookup(base))
	require.NoError(t, err)

	store, err := storage.NewTempStore(cfg.Upload.TempDir)
	require.NoError(t, err)
	svc, err := core.NewService(store, cfg.Upload)
	require.NoError(t, err)

	s := NewServer(svc, cfg)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return &testServer{Server: s, tempDir: tempDir}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

// uploadRequest builds a multipart POST /upload with one file part.
func uploadRequest(t *testing.T, filename, contentType, body string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return resp
}

func TestHandleUpload_Success(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(uploadRequest(t, "Sales Report.twb", "application/xml", testWorkbook))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="Sales_Report_`)
	assert.Equal(t, "2", rec.Header().Get("X-Record-Count"))

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "\uFEFF"))

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(body, "\uFEFF"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Caption", "Formula", "Data Type", "Label", "Datasource"}, rows[0])
	assert.Equal(t, []string{"Margin", "[Sales] - [Cost]", "real", "Calculated Field", "Orders"}, rows[1])
	assert.Equal(t, []string{"Margin Ratio", "Margin / [Sales]", "real", "Calculated Field", "Orders"}, rows[2])

	entries, err := os.ReadDir(ts.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files should be removed after download")
}

func TestHandleUpload_TextXMLWithCharset(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(uploadRequest(t, "a.twb", "text/xml; charset=utf-8", `<workbook/>`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("X-Record-Count"))
	assert.Equal(t, "\uFEFFCaption,Formula,Data Type,Label,Datasource\n", rec.Body.String())
}

func TestHandleUpload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantCode   string
	}{
		{
			name:       "wrong content type",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "a.csv", "text/csv", "a,b") },
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   "FILE006",
		},
		{
			name:       "missing part content type",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "a.twb", "", testWorkbook) },
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   "FILE006",
		},
		{
			name:       "blank filename",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "  ", "application/xml", testWorkbook) },
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE005",
		},
		{
			name:       "malformed xml",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "a.twb", "application/xml", `<workbook><datasource`) },
			wantStatus: http.StatusBadRequest,
			wantCode:   "XML002",
		},
		{
			name: "no file field",
			req: func(t *testing.T) *http.Request {
				var buf bytes.Buffer
				mw := multipart.NewWriter(&buf)
				require.NoError(t, mw.WriteField("other", "value"))
				require.NoError(t, mw.Close())
				req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
				req.Header.Set("Content-Type", mw.FormDataContentType())
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(testWorkbook))
				req.Header.Set("Content-Type", "application/xml")
				return req
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			req := tt.req(t)
			req.Header.Set("Accept", "application/json")

			rec := ts.do(req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)

			entries, err := os.ReadDir(ts.tempDir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestHandleUpload_ParseFailureIncludesDetail(t *testing.T) {
	ts := newTestServer(t, nil)
	req := uploadRequest(t, "a.twb", "application/xml", `<workbook><datasource></workbook>`)
	req.Header.Set("Accept", "application/json")

	rec := ts.do(req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "XML002", resp.Code)
	assert.Contains(t, resp.Detail, "datasource")
}

func TestHandleUpload_TooLarge(t *testing.T) {
	ts := newTestServer(t, map[string]string{"UPLOAD_MAX_FILE_SIZE": "1KiB"})
	body := "<workbook>" + strings.Repeat("x", 2048) + "</workbook>"
	req := uploadRequest(t, "big.twb", "application/xml", body)
	req.Header.Set("Accept", "application/json")

	rec := ts.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestHandleUpload_HTMLError(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(uploadRequest(t, "a.csv", "text/csv", "a,b"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Error code: FILE006")
	assert.Contains(t, rec.Body.String(), `href="/"`)
}

func TestHandleIndex(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, `action="/upload"`)
	assert.Contains(t, body, `name="file"`)
	assert.Contains(t, body, "50 MiB")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleStatus(t *testing.T) {
	ts := newTestServer(t, map[string]string{"UPLOAD_MAX_CONCURRENT": "3"})

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active":0,"available":3,"max_concurrent":3}`, rec.Body.String())
}

func TestAPIKeyRequired(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"REQUIRE_API_KEY": "true",
		"API_KEYS":        "alpha,beta",
	})

	rec := ts.do(uploadRequest(t, "a.twb", "application/xml", testWorkbook))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := uploadRequest(t, "a.twb", "application/xml", testWorkbook)
	req.Header.Set("X-API-Key", "gamma")
	assert.Equal(t, http.StatusForbidden, ts.do(req).Code)

	req = uploadRequest(t, "a.twb", "application/xml", testWorkbook)
	req.Header.Set("X-API-Key", "beta")
	assert.Equal(t, http.StatusOK, ts.do(req).Code)

	// The form and health check stay public.
	assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestUploadRateLimit(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"RATE_LIMIT_ENABLED": "true",
		"RATE_LIMIT_UPLOAD":  "1",
	})

	first := ts.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := ts.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decodeError(t, second).Code)

	// Other routes use the general limit.
	assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestReportFileName(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	tests := []struct {
		uploaded string
		want     string
	}{
		{"Sales.twb", "Sales_20240305_140709.csv"},
		{"My Workbook (v2).twb", "My_Workbook__v2__20240305_140709.csv"},
		{"../../etc/passwd", "passwd_20240305_140709.csv"},
		{".twb", "calculations_20240305_140709.csv"},
		{"", "calculations_20240305_140709.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.uploaded, func(t *testing.T) {
			assert.Equal(t, tt.want, reportFileName(tt.uploaded, now))
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"max bytes", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"rejected", fmt.Errorf("%w: empty filename", core.ErrInputRejected), http.StatusBadRequest},
		{"too large", fmt.Errorf("%w: %w: 2 MiB", core.ErrInputRejected, core.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{"bad type", fmt.Errorf("%w: %w: %q", core.ErrInputRejected, core.ErrUnsupportedType, "text/csv"), http.StatusUnsupportedMediaType},
		{"wording alone is not a kind", fmt.Errorf("%w: file too large in name only", core.ErrInputRejected), http.StatusBadRequest},
		{"parse", &core.ParseError{Err: fmt.Errorf("boom")}, http.StatusBadRequest},
		{"busy", core.ErrTooManyConversions, http.StatusServiceUnavailable},
		{"other", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
