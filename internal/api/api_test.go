package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"materialbridge/internal/config"
)

func workbookBytes(t *testing.T, withCoverage bool) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetName("Sheet1", "BOM")

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{"BOM", [][]interface{}{
			{"Material", "Component", "Comp. Qty (BUn)"},
			{"FG1", "C1", 2},
		}},
		{"plan", [][]interface{}{
			{"Delphi PN", "2025-01-13"},
			{"FG1", 5},
		}},
		{"RM TOTAL REQUIREMENT", [][]interface{}{
			{"Component", "2025-01-13"},
			{"C1", 15},
		}},
	}
	if withCoverage {
		sheets = append(sheets, struct {
			name string
			rows [][]interface{}
		}{"coverage", [][]interface{}{
			{"APN", "Stock", "WIP", "2025-01-13", "2025-01-13"},
			{"C1", 8, 0, 0, 0},
		}})
	}
	for _, s := range sheets {
		if idx, _ := f.GetSheetIndex(s.name); idx < 0 {
			if _, err := f.NewSheet(s.name); err != nil {
				t.Fatalf("NewSheet failed: %v", err)
			}
		}
		for i := range s.rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(s.name, cell, &s.rows[i]); err != nil {
				t.Fatalf("SetSheetRow failed: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}
	return buf.Bytes()
}

func newTestRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(config.DefaultConfig(), t.TempDir(), nil)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r, h
}

func uploadRequest(t *testing.T, path, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	_, _ = part.Write(data)
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAnalyze_AndOneShotDownload(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/analyze", "plan.xlsx", workbookBytes(t, true), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		RunID     string `json:"runId"`
		Shortages []struct {
			Date      string  `json:"date"`
			Component string  `json:"component"`
			FGCode    string  `json:"fgCode"`
			Balance   float64 `json:"balance"`
		} `json:"shortages"`
		DownloadURL string `json:"downloadUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RunID == "" || len(resp.Shortages) != 1 {
		t.Fatalf("resp=%+v", resp)
	}
	if s := resp.Shortages[0]; s.Date != "2025-01-13" || s.Component != "C1" || s.FGCode != "FG1" || s.Balance != -2 {
		t.Fatalf("shortage=%+v", s)
	}
	if !strings.HasPrefix(resp.DownloadURL, "/api/download/") {
		t.Fatalf("downloadUrl=%q", resp.DownloadURL)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download status=%d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="processed_plan.xlsx"`) {
		t.Fatalf("Content-Disposition=%q", cd)
	}
	out, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open downloaded workbook: %v", err)
	}
	defer out.Close()
	if v, _ := out.GetCellValue("shortage", "C2"); v != "FG1" {
		t.Fatalf("shortage!C2=%q", v)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("second download status=%d, want 404", w.Code)
	}
}

func TestAnalyze_PipelineError(t *testing.T) {
	t.Parallel()
	r, h := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/analyze", "plan.xlsx", workbookBytes(t, false), nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != "SourceNotFound" || resp.Stage != "coverage" || resp.Sheet != "coverage" {
		t.Fatalf("resp=%+v", resp)
	}
	if h.downloads.count() != 0 {
		t.Fatalf("failed run should not publish a download")
	}
}

func TestAnalyze_SheetOverride(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := uploadRequest(t, "/api/analyze", "plan.xlsx", workbookBytes(t, true), map[string]string{"coverageSheet": "Supply"})
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), `"sheet":"Supply"`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestAnalyze_RejectsBadInput(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/analyze", "plan.csv", []byte("a,b"), nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/analyze", "plan.xlsx", workbookBytes(t, true), map[string]string{"needSource": "guess"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
}

func TestAnalyzeStream(t *testing.T) {
	t.Parallel()
	r, h := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/api/analyze/stream", "plan.xlsx", workbookBytes(t, true), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type=%q", ct)
	}

	var events []map[string]any
	sc := bufio.NewScanner(w.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var evt map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		events = append(events, evt)
	}
	if len(events) < 3 || events[0]["type"] != "start" {
		t.Fatalf("events=%v", events)
	}
	last := events[len(events)-1]
	if last["type"] != "done" {
		t.Fatalf("last event=%v", last)
	}
	data, _ := last["data"].(map[string]any)
	if url, _ := data["downloadUrl"].(string); !strings.HasPrefix(url, "/api/download/") {
		t.Fatalf("done data=%v", data)
	}
	if h.downloads.count() != 1 {
		t.Fatalf("pending downloads=%d", h.downloads.count())
	}
}

func TestStatusAndConfig(t *testing.T) {
	t.Parallel()
	r, h := newTestRouter(t)
	h.recordRun(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"runs":1`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"requirement":"RM TOTAL REQUIREMENT"`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestContentDisposition(t *testing.T) {
	t.Parallel()

	got := contentDisposition("processed_计划.xlsx")
	want := "attachment; filename=\"processed___.xlsx\"; filename*=UTF-8''processed_%E8%AE%A1%E5%88%92.xlsx"
	if got != want {
		t.Fatalf("content-disposition mismatch:\n got: %s\nwant: %s", got, want)
	}
}
