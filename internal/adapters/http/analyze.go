package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

const (
	fileField    = "file"
	messageField = "message"

	maxMessageBytes = 64 << 10

	analysisIDHeader = "X-Analysis-Id"
)

func (rt *Router) analyzeDocument(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.uploadMaxBytes+uploadOverheadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		rt.analyzeMultipart(w, r)
	case "application/json":
		rt.echoJSONMessage(w, r)
	default:
		rt.writeAnalyzeError(w, r, domain.WrapError(domain.ErrNoFileProvided, "analyze", fmt.Errorf("content type %q", mediaType)))
	}
}

// analyzeMultipart streams the first file part of field "file" into the
// analyzer. Parts after it are never read.
func (rt *Router) analyzeMultipart(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		rt.writeAnalyzeError(w, r, domain.WrapError(domain.ErrInvalidParameter, "read multipart", err))
		return
	}

	message := ""
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rt.writeAnalyzeError(w, r, domain.WrapError(domain.ErrInvalidParameter, "read multipart", err))
			return
		}

		switch {
		case part.FormName() == fileField && part.FileName() != "":
			rt.forwardPart(w, r, part)
			_ = part.Close()
			return
		case part.FormName() == messageField && message == "":
			message, err = readMessagePart(part)
			_ = part.Close()
			if err != nil {
				rt.writeAnalyzeError(w, r, err)
				return
			}
		default:
			_ = part.Close()
		}
	}

	if strings.TrimSpace(message) != "" {
		writeEchoReply(w, message)
		return
	}
	rt.writeAnalyzeError(w, r, domain.WrapError(domain.ErrNoFileProvided, "analyze", errors.New("multipart field 'file' is required")))
}

func (rt *Router) forwardPart(w http.ResponseWriter, r *http.Request, part *multipart.Part) {
	analysisID := uuid.NewString()
	w.Header().Set(analysisIDHeader, analysisID)
	slog.Info("analyze_request_accepted",
		"request_id", requestIDFromContext(r.Context()),
		"analysis_id", analysisID,
		"file", part.FileName(),
	)
	result, err := rt.analyzer.Analyze(r.Context(), analysisID, part.FileName(), part)
	if err != nil {
		rt.writeAnalyzeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, result, msgAnalyzeSucceeded)
}

func readMessagePart(part *multipart.Part) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(part, maxMessageBytes+1))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidParameter, "read message", err)
	}
	if len(raw) > maxMessageBytes {
		return "", domain.WrapError(domain.ErrInvalidParameter, "read message", errors.New("message part too large"))
	}
	return string(raw), nil
}

func (rt *Router) echoJSONMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxMessageBytes)).Decode(&req); err != nil {
		rt.writeAnalyzeError(w, r, domain.WrapError(domain.ErrInvalidParameter, "decode message", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		rt.writeAnalyzeError(w, r, domain.WrapError(domain.ErrNoFileProvided, "analyze", errors.New("neither file nor message provided")))
		return
	}
	writeEchoReply(w, req.Message)
}

func writeEchoReply(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusOK, map[string]string{
		"reply": `Demo: Received message "` + message + `"`,
	}, msgChatReply)
}

func (rt *Router) writeAnalyzeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	attrs := []any{
		"request_id", requestIDFromContext(r.Context()),
		"status", status,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		slog.Error("analyze_request_failed", attrs...)
	} else {
		slog.Warn("analyze_request_rejected", attrs...)
	}
	writeEnvelope(w, status, nil, analyzeFailureMessage(err))
}
