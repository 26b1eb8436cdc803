package httpadapter

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

func (rt *Router) downloadFile(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	reference, err := fileReference(r)
	if err != nil {
		rt.writeDownloadError(w, r, err)
		return
	}

	file, err := rt.downloader.Open(r.Context(), reference)
	if err != nil {
		rt.writeDownloadError(w, r, err)
		return
	}
	defer file.Body.Close()

	if file.ContentType != "" {
		w.Header().Set("Content-Type", file.ContentType)
	}
	if file.ContentDisposition != "" {
		w.Header().Set("Content-Disposition", file.ContentDisposition)
	}
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, file.Body)
	if rt.metrics != nil {
		rt.metrics.AddDownloadBytes(written)
	}
	if err != nil {
		// Headers are gone; the client sees a truncated body.
		slog.Warn("download_stream_interrupted",
			"request_id", requestIDFromContext(r.Context()),
			"bytes", written,
			"error", err,
		)
	}
}

// fileReference extracts the single "file" query value. A repeated value is
// rejected rather than picking one.
func fileReference(r *http.Request) (string, error) {
	values := r.URL.Query()[fileField]
	switch {
	case len(values) == 0 || values[0] == "":
		return "", domain.WrapError(domain.ErrMissingParameter, "download", errors.New("query parameter 'file' is required"))
	case len(values) > 1:
		return "", domain.WrapError(domain.ErrInvalidParameter, "download", errors.New("query parameter 'file' must be a single string"))
	default:
		return values[0], nil
	}
}

func (rt *Router) writeDownloadError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	attrs := []any{
		"request_id", requestIDFromContext(r.Context()),
		"status", status,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		slog.Error("download_request_failed", attrs...)
	} else {
		slog.Warn("download_request_rejected", attrs...)
	}
	writeEnvelope(w, status, nil, downloadFailureMessage(err))
}
