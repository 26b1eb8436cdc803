package mlservice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

func stageTestFile(t *testing.T, name, content string) *domain.StagedFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged_"+name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return &domain.StagedFile{LocalPath: path, OriginalName: name, SizeBytes: int64(len(content))}
}

func TestResolveReference(t *testing.T) {
	const base = "http://ml.local"
	cases := []struct {
		ref  string
		want string
	}{
		{ref: "abc.csv", want: "http://ml.local/download?file=abc.csv"},
		{ref: "/download?file=abc.csv", want: "http://ml.local/download?file=abc.csv"},
		{ref: "https://other.host/x.csv", want: "https://other.host/x.csv"},
		{ref: "http://other.host/x.csv", want: "http://other.host/x.csv"},
		{ref: "my report&v=1.csv", want: "http://ml.local/download?file=my%20report%26v%3D1.csv"},
	}
	for _, tc := range cases {
		if got := ResolveReference(base, tc.ref); got != tc.want {
			t.Fatalf("ResolveReference(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	client := New("http://ml.local/", Options{})
	if got := client.Resolve("/x"); got != "http://ml.local/x" {
		t.Fatalf("unexpected resolution %q", got)
	}
}

func TestAnalyzeSendsMultipartAndParsesEnvelope(t *testing.T) {
	var gotFilename, gotContent, gotPartType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/analyze" {
			http.NotFound(w, r)
			return
		}
		if r.ContentLength <= 0 {
			t.Errorf("expected explicit content length, got %d", r.ContentLength)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		raw, _ := io.ReadAll(file)
		gotFilename = header.Filename
		gotContent = string(raw)
		gotPartType = header.Header.Get("Content-Type")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"csv_download": "/download?file=abc.csv",
			"json_download": "https://files.example/abc.json",
			"num_records": 2,
			"preview": [["crop","score"],["rice",0.9]],
			"status": "ok"
		}`))
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	result, err := client.Analyze(context.Background(), stageTestFile(t, "soil.pdf", "%PDF-1.4 body"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if gotFilename != "soil.pdf" || gotContent != "%PDF-1.4 body" {
		t.Fatalf("unexpected upload: filename=%q content=%q", gotFilename, gotContent)
	}
	if gotPartType != "application/pdf" {
		t.Fatalf("expected application/pdf part, got %q", gotPartType)
	}
	if result.CSVDownload == nil || *result.CSVDownload != server.URL+"/download?file=abc.csv" {
		t.Fatalf("unexpected csv_download: %v", result.CSVDownload)
	}
	if result.JSONDownload == nil || *result.JSONDownload != "https://files.example/abc.json" {
		t.Fatalf("unexpected json_download: %v", result.JSONDownload)
	}
	if result.NumRecords == nil || *result.NumRecords != 2 {
		t.Fatalf("unexpected num_records: %v", result.NumRecords)
	}
	if len(result.PreviewRows) != 2 || result.PreviewRows[1][0] != "rice" || result.PreviewRows[1][1] != "0.9" {
		t.Fatalf("unexpected preview rows: %#v", result.PreviewRows)
	}

	var raw map[string]any
	if err := json.Unmarshal(result.Raw, &raw); err != nil {
		t.Fatalf("raw is not JSON: %v", err)
	}
	if raw["status"] != "ok" {
		t.Fatalf("expected raw payload passthrough, got %+v", raw)
	}
}

func TestAnalyzeUsesConfiguredPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(server.URL, Options{AnalyzePath: "api/v1/pdf/analyze"})
	if _, err := client.Analyze(context.Background(), stageTestFile(t, "a.pdf", "x")); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if gotPath != "/api/v1/pdf/analyze" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestAnalyzeRejectedKeepsUpstreamBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	_, err := client.Analyze(context.Background(), stageTestFile(t, "a.pdf", "x"))
	if !domain.IsKind(err, domain.ErrUpstreamRejected) {
		t.Fatalf("expected ErrUpstreamRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected upstream body in error, got %v", err)
	}
}

func TestAnalyzeUnreachableIsUpstreamUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(url, Options{})
	_, err := client.Analyze(context.Background(), stageTestFile(t, "a.pdf", "x"))
	if !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestAnalyzeKeepsNonJSONBodyAsRawString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("done"))
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	result, err := client.Analyze(context.Background(), stageTestFile(t, "a.pdf", "x"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if string(result.Raw) != `"done"` {
		t.Fatalf("unexpected raw %s", result.Raw)
	}
	if result.CSVDownload != nil || result.NumRecords != nil || result.Preview != nil {
		t.Fatalf("expected empty fields, got %+v", result)
	}
}

func TestFetchStreamsBodyAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download" || r.URL.Query().Get("file") != "abc.csv" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="abc.csv"`)
		_, _ = w.Write([]byte("a,b\nc,d\n"))
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	file, err := client.Fetch(context.Background(), "abc.csv")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer file.Body.Close()

	raw, err := io.ReadAll(file.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(raw) != "a,b\nc,d\n" {
		t.Fatalf("unexpected body %q", raw)
	}
	if file.ContentType != "text/csv" || file.ContentDisposition != `attachment; filename="abc.csv"` {
		t.Fatalf("unexpected headers: %+v", file)
	}
}

func TestFetchNotFoundIsRejected(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := New(server.URL, Options{})
	_, err := client.Fetch(context.Background(), "/download?file=missing.csv")
	if !domain.IsKind(err, domain.ErrUpstreamRejected) {
		t.Fatalf("expected ErrUpstreamRejected, got %v", err)
	}
}
