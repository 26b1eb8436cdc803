package domain

import (
	"encoding/json"
	"io"
	"time"
)

// TabularData is a sequence of rows of string cells. When non-empty the first
// row is the header. Rows are not required to share a width.
type TabularData [][]string

// Header returns the first row, or nil for an empty table.
func (t TabularData) Header() []string {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// Records returns every row after the header.
func (t TabularData) Records() [][]string {
	if len(t) < 2 {
		return nil
	}
	return t[1:]
}

type StagedFile struct {
	LocalPath    string `json:"-"`
	OriginalName string `json:"original_name"`
	SizeBytes    int64  `json:"size_bytes"`
	PageCount    int    `json:"page_count,omitempty"`
}

type AnalysisResult struct {
	CSVDownload  *string         `json:"csv_download"`
	JSONDownload *string         `json:"json_download"`
	NumRecords   *int64          `json:"num_records"`
	Preview      json.RawMessage `json:"preview"`
	PreviewRows  TabularData     `json:"-"`
	Raw          json.RawMessage `json:"raw"`
}

// RemoteFile is a download in flight. The caller owns Body and must close it.
type RemoteFile struct {
	ContentType        string
	ContentDisposition string
	Body               io.ReadCloser
}

type AnalysisStatus string

const (
	AnalysisSucceeded AnalysisStatus = "succeeded"
	AnalysisFailed    AnalysisStatus = "failed"
)

// AnalysisRecord is the history entry emitted after every forward attempt.
type AnalysisRecord struct {
	ID           string         `json:"id"`
	Filename     string         `json:"filename"`
	SizeBytes    int64          `json:"size_bytes"`
	PageCount    int            `json:"page_count"`
	Status       AnalysisStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	CSVDownload  string         `json:"csv_download,omitempty"`
	JSONDownload string         `json:"json_download,omitempty"`
	NumRecords   *int64         `json:"num_records,omitempty"`
	PreviewRows  int            `json:"preview_rows"`
	DurationMS   float64        `json:"duration_ms"`
	CreatedAt    time.Time      `json:"created_at"`
}
