//go:build !integration

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadsplit/internal/export"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newRouter(&flowEnv{cfg: testConfig(t)})
}

func postUpload(t *testing.T, h http.Handler, path string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, files...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestRouter_Health(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "ok", decodeError(t, rr)["status"])
}

func TestRouter_Morning(t *testing.T) {
	rr := postUpload(t, newTestRouter(t), "/v1/runs/morning",
		upload{field: "workbook", filename: "base.xlsx", data: morningWorkbook(t)})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/zip", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "leadsplit_morning_")
	assert.Empty(t, rr.Header().Get("X-Run-ID"), "no store configured")

	assert.Equal(t, []string{
		export.AuditFile,
		"DISCADOR_AGENT_A_FRETEIRO.xlsx",
		"DISCADOR_AGENT_A_PEQUENO_FROTISTA.xlsx",
		"MAILING_AGENT_A_FRETEIRO.xlsx",
		"MAILING_AGENT_A_PEQUENO_FROTISTA.xlsx",
	}, zipNames(t, rr.Body.Bytes()))

	audit := zipFile(t, rr.Body.Bytes(), export.AuditFile)
	assert.Contains(t, string(audit), "orphans_filled: 1")
}

func TestRouter_Morning_MissingWorkbookField(t *testing.T) {
	rr := postUpload(t, newTestRouter(t), "/v1/runs/morning",
		upload{field: "file", filename: "base.xlsx", data: morningWorkbook(t)})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "BAD_UPLOAD", decodeError(t, rr)["code"])
}

func TestRouter_Morning_NotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/runs/morning", bytes.NewBufferString(`{"x":1}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_Morning_MissingSheet(t *testing.T) {
	data := createWorkbook(t, map[string][][]string{
		"Mailing": {{"CONTRATO", "CPF_CNPJ", "RESPONSAVEL"}, {"1", "1", "A"}},
	})
	rr := postUpload(t, newTestRouter(t), "/v1/runs/morning",
		upload{field: "workbook", filename: "base.xlsx", data: data})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "BAD_WORKBOOK", body["code"])
	assert.Contains(t, body["message"], "Discador")
}

func TestRouter_Morning_MissingColumn(t *testing.T) {
	data := createWorkbook(t, map[string][][]string{
		"Mailing":  {{"CONTRATO", "RESPONSAVEL"}, {"1", "AGENT_A"}},
		"Discador": {{"CONTRATO", "CELULAR"}, {"1", "11987654321"}},
	})
	rr := postUpload(t, newTestRouter(t), "/v1/runs/morning",
		upload{field: "workbook", filename: "base.xlsx", data: data})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "MISSING_COLUMN", body["code"])
	assert.Contains(t, body["message"], "CPF_CNPJ")
}

func TestRouter_Morning_NoAgents(t *testing.T) {
	data := createWorkbook(t, map[string][][]string{
		"Mailing":  {{"CONTRATO", "CPF_CNPJ", "RESPONSAVEL"}, {"1", "12345678901234", "BACKLOG"}},
		"Discador": {{"CONTRATO", "CELULAR"}, {"1", "11987654321"}},
	})
	rr := postUpload(t, newTestRouter(t), "/v1/runs/morning",
		upload{field: "workbook", filename: "base.xlsx", data: data})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "NO_AGENTS_FOUND", decodeError(t, rr)["code"])
}

func TestRouter_Afternoon(t *testing.T) {
	rr := postUpload(t, newTestRouter(t), "/v1/runs/afternoon",
		upload{field: "workbook", filename: "base.xlsx", data: afternoonWorkbook(t)},
		upload{field: "log", filename: "calls.csv", data: []byte("CONTRATO\n1\n")},
	)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{
		export.AuditFile,
		"DISCADOR_AGENT_B_REFORCO_TARDE.xlsx",
	}, zipNames(t, rr.Body.Bytes()))
}

func TestRouter_Afternoon_MissingLog(t *testing.T) {
	rr := postUpload(t, newTestRouter(t), "/v1/runs/afternoon",
		upload{field: "workbook", filename: "base.xlsx", data: afternoonWorkbook(t)})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr)["message"], `"log"`)
}

func TestRouter_Afternoon_UnreadableLog(t *testing.T) {
	rr := postUpload(t, newTestRouter(t), "/v1/runs/afternoon",
		upload{field: "workbook", filename: "base.xlsx", data: afternoonWorkbook(t)},
		upload{field: "log", filename: "calls.pdf", data: []byte("%PDF-1.4")},
	)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "LOG_PARSE_ERROR", decodeError(t, rr)["code"])
}

func TestRouter_RateLimited(t *testing.T) {
	c := testConfig(t)
	c.Server.RateLimitRPS = 0.001
	c.Server.RateBurst = 1
	h := newRouter(&flowEnv{cfg: c})

	first := postUpload(t, h, "/v1/runs/morning",
		upload{field: "workbook", filename: "base.xlsx", data: morningWorkbook(t)})
	assert.Equal(t, http.StatusOK, first.Code)

	second := postUpload(t, h, "/v1/runs/morning",
		upload{field: "workbook", filename: "base.xlsx", data: morningWorkbook(t)})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, second)["code"])

	// Health is not throttled.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_UploadTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("x"), 2<<20)
	rr := postUpload(t, newTestRouter(t), "/v1/runs/morning",
		upload{field: "workbook", filename: "base.xlsx", data: big})

	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rr.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/v1/runs/morning", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rr, req)

	assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
