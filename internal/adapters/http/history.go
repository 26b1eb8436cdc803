package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

func (rt *Router) getAnalysisByID(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/analyses/"), "/")
	if id == "" {
		writeEnvelope(w, http.StatusBadRequest, nil, "analysis id is required")
		return
	}

	record, err := rt.history.GetByID(r.Context(), id)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		message := msgHistoryFailed
		if errors.Is(err, domain.ErrNotFound) {
			message = msgAnalysisNotFound
		} else {
			slog.Error("analysis_lookup_failed",
				"request_id", requestIDFromContext(r.Context()),
				"analysis_id", id,
				"error", err,
			)
		}
		writeEnvelope(w, status, nil, message)
		return
	}
	writeEnvelope(w, http.StatusOK, record, msgAnalysisRetrieved)
}

func (rt *Router) listAnalyses(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, nil, msgInvalidLimit)
			return
		}
		limit = n
	}

	records, err := rt.history.ListRecent(r.Context(), limit)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		message := msgHistoryFailed
		if status == http.StatusBadRequest {
			message = msgInvalidLimit
		} else {
			slog.Error("analysis_list_failed",
				"request_id", requestIDFromContext(r.Context()),
				"error", err,
			)
		}
		writeEnvelope(w, status, nil, message)
		return
	}
	writeEnvelope(w, http.StatusOK, records, msgAnalysisRetrieved)
}
