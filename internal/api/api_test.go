package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andresuchdata/stockcover/internal/domain"
	"github.com/andresuchdata/stockcover/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	stockCSV   = "Código;Descrição;Quantidade\n151;DIPIRONA 500MG;100\n9;LUVA;50\n"
	outflowCSV = "Código;Descrição;Saída\n151;DIPIRONA 500MG;120\n9;LUVA;10\n"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	svc := service.NewAnalysisService(nil, nil, service.Defaults{})
	return NewRouter(&Services{AnalysisService: svc}, Options{AllowedOrigins: []string{"*"}})
}

type part struct {
	field, name, content string
}

func multipartBody(t *testing.T, files []part, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write([]byte(f.content))
	}
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAnalyzeUpload(t *testing.T) {
	t.Parallel()

	body, contentType := multipartBody(t,
		[]part{{"stock", "estoque.csv", stockCSV}, {"outflow", "saidas.csv", outflowCSV}},
		map[string]string{"category": "Medicamentos", "patient_volume": "1000"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report domain.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Records) != 2 || report.RunID == "" {
		t.Fatalf("unexpected report %+v", report)
	}
	// 120 * 0.8 * 1.2
	if report.Records[0].Code != "151" || report.Records[0].ExpectedDemand != 115.2 {
		t.Fatalf("patient volume not applied: %+v", report.Records[0])
	}
}

func TestAnalyzeUploadCSVExport(t *testing.T) {
	t.Parallel()

	body, contentType := multipartBody(t,
		[]part{{"stock", "estoque.csv", stockCSV}, {"outflow", "saidas.csv", outflowCSV}},
		nil,
	)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis?format=csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ".csv") {
		t.Fatalf("expected an attachment")
	}
}

func TestAnalyzeUploadErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		files  []part
		fields map[string]string
		status int
		code   string
	}{
		{"missing outflow", []part{{"stock", "e.csv", stockCSV}}, nil, http.StatusBadRequest, ""},
		{"bad category", []part{{"stock", "e.csv", stockCSV}, {"outflow", "s.csv", outflowCSV}}, map[string]string{"category": "brinquedos"}, http.StatusBadRequest, ""},
		{"no overlap", []part{{"stock", "e.csv", stockCSV}, {"outflow", "s.csv", "Código;Saída\n77;5\n"}}, nil, http.StatusUnprocessableEntity, "no_overlap"},
		{"no data rows", []part{{"stock", "e.csv", "a;b\nc;d\n"}, {"outflow", "s.csv", outflowCSV}}, nil, http.StatusUnprocessableEntity, "start_row_not_found"},
	}
	for _, tc := range cases {
		body, contentType := multipartBody(t, tc.files, tc.fields)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		newTestRouter().ServeHTTP(rec, req)

		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.status, rec.Code, rec.Body.String())
		}
		if tc.code == "" {
			continue
		}
		var payload map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &payload)
		if payload["code"] != tc.code {
			t.Fatalf("%s: expected code %s, got %v", tc.name, tc.code, payload["code"])
		}
	}
}

func TestAnalyzeRemoteRejectsUnknownScheme(t *testing.T) {
	t.Parallel()

	body := `{"stock":{"ref":"ftp://x/e.csv"},"outflows":[{"ref":"ftp://x/s.csv"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/remote", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "unreadable_source") {
		t.Fatalf("expected an unreadable source error, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestClearCache(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/cache", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCategories(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))

	var payload struct {
		Default    string                   `json:"default"`
		Categories []domain.CategoryProfile `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Default != "medicamentos" || len(payload.Categories) != 3 {
		t.Fatalf("unexpected categories %+v", payload)
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	t.Parallel()

	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	if all || len(origins) != 2 {
		t.Fatalf("unexpected %v %v", origins, all)
	}
	if _, all := normalizeAllowedOrigins([]string{"*"}); !all {
		t.Fatalf("* should allow every origin")
	}
}
