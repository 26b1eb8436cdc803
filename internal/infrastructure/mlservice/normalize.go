package mlservice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/tabular"
)

// Normalize turns a response body into rows. In order it tries: a CSV
// content type, a JSON document (unwrapping one "data" layer), and finally the
// whole body as CSV text.
func Normalize(contentType string, body []byte) (domain.TabularData, error) {
	text := decodeText(body)
	if isCSVContentType(contentType) {
		return tabular.Parse(text), nil
	}

	var payload json.RawMessage
	if err := json.Unmarshal([]byte(text), &payload); err == nil {
		return ClassifyPayload(unwrapData(payload)).Tabulate()
	}

	if !isText(body) {
		return nil, domain.WrapError(domain.ErrUnparseableResponse, "normalize response",
			fmt.Errorf("unable to parse server response as CSV or JSON"))
	}
	return tabular.Parse(text), nil
}

func isCSVContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/csv") || strings.Contains(ct, "application/csv")
}

// decodeText decodes body as UTF-8, dropping a byte order mark and replacing
// invalid sequences.
func decodeText(body []byte) string {
	text := strings.ToValidUTF8(string(body), "\uFFFD")
	return strings.TrimPrefix(text, "\uFEFF")
}

func isText(body []byte) bool {
	return utf8.Valid(body) && !bytes.ContainsRune(body, 0)
}
