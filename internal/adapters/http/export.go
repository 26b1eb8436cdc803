package httpadapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/tabular"
)

const (
	exportBaseName = "analysis_result"

	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// exportTable renders posted rows as a CSV or XLSX attachment.
func (rt *Router) exportTable(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		rt.writeExportError(w, r, domain.WrapError(domain.ErrInvalidParameter, "export", fmt.Errorf("unsupported format %q", format)))
		return
	}

	var req struct {
		Rows domain.TabularData `json:"rows"`
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, rt.uploadMaxBytes))
	if err := decoder.Decode(&req); err != nil {
		rt.writeExportError(w, r, domain.WrapError(domain.ErrInvalidParameter, "decode export rows", err))
		return
	}

	var (
		body        bytes.Buffer
		contentType string
	)
	switch format {
	case "xlsx":
		if err := tabular.WriteXLSX(&body, req.Rows); err != nil {
			rt.writeExportError(w, r, fmt.Errorf("render xlsx: %w", err))
			return
		}
		contentType = contentTypeXLSX
	default:
		if err := tabular.WriteCSV(&body, req.Rows); err != nil {
			rt.writeExportError(w, r, fmt.Errorf("render csv: %w", err))
			return
		}
		contentType = contentTypeCSV
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, exportBaseName, format))
	w.WriteHeader(http.StatusOK)
	_, _ = body.WriteTo(w)
}

func (rt *Router) writeExportError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := msgExportFailed
	if status == http.StatusBadRequest {
		message = msgInvalidExport
	}
	slog.Warn("export_request_failed",
		"request_id", requestIDFromContext(r.Context()),
		"status", status,
		"error", err,
	)
	writeEnvelope(w, status, nil, message)
}
