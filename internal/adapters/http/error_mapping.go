package httpadapter

import (
	"net/http"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

const (
	msgAnalyzeSucceeded  = "PDF analysis successful"
	msgAnalyzeFailed     = "Failed to analyze document"
	msgNoFile            = "No file uploaded"
	msgUploadError       = "File upload error"
	msgChatReply         = "Chat reply"
	msgDownloadFailed    = "Failed to download file"
	msgMissingFile       = "Missing file query parameter"
	msgInvalidFile       = "Invalid file parameter"
	msgExportFailed      = "Failed to export table"
	msgInvalidExport     = "Invalid export request"
	msgAnalysisNotFound  = "Analysis not found"
	msgHistoryFailed     = "Failed to load analysis"
	msgMethodNotAllowed  = "Method not allowed"
	msgRateLimited       = "Too many requests"
	msgServerOverloaded  = "Server is busy, retry later"
	msgAnalysisRetrieved = "Analysis retrieved"
	msgInvalidLimit      = "Invalid limit parameter"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsCallerError(err):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func analyzeFailureMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrNoFileProvided):
		return msgNoFile
	case domain.IsKind(err, domain.ErrPayloadTooLarge), domain.IsKind(err, domain.ErrInvalidParameter):
		return msgUploadError
	default:
		return msgAnalyzeFailed
	}
}

func downloadFailureMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrMissingParameter):
		return msgMissingFile
	case domain.IsKind(err, domain.ErrInvalidParameter):
		return msgInvalidFile
	default:
		return msgDownloadFailed
	}
}
