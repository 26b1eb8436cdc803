package mlservice

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

// ParseEnvelope builds an AnalysisResult from the analysis service reply.
// Fields are picked by presence only: csv_download, json_download,
// num_records and preview. Download references are resolved against the base
// URL. A body that is not JSON is kept as a JSON string in Raw.
func (c *Client) ParseEnvelope(body []byte) *domain.AnalysisResult {
	result := &domain.AnalysisResult{}

	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) || len(trimmed) == 0 {
		raw, _ := json.Marshal(decodeText(body))
		result.Raw = raw
		return result
	}
	result.Raw = json.RawMessage(trimmed)

	if trimmed[0] != '{' {
		return result
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return result
	}

	if ref, ok := stringField(fields, "csv_download"); ok {
		result.CSVDownload = c.resolveOptional(&ref)
	}
	if ref, ok := stringField(fields, "json_download"); ok {
		result.JSONDownload = c.resolveOptional(&ref)
	}
	result.NumRecords = integerField(fields, "num_records")

	if preview, ok := fields["preview"]; ok && !isJSONNull(preview) {
		result.Preview = preview
		if rows, err := ClassifyPayload(preview).Tabulate(); err == nil {
			result.PreviewRows = rows
		}
	}
	return result
}

func integerField(fields map[string]json.RawMessage, key string) *int64 {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	if v, err := n.Int64(); err == nil {
		return &v
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	v := int64(f)
	return &v
}
