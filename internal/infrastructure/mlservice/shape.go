package mlservice

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/tabular"
)

type ShapeKind int

const (
	ShapeUnrecognized ShapeKind = iota
	ShapeCSVText
	ShapeTabularArray
	ShapeWrappedCSV
	ShapeWrappedResult
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeCSVText:
		return "csv_text"
	case ShapeTabularArray:
		return "tabular_array"
	case ShapeWrappedCSV:
		return "wrapped_csv"
	case ShapeWrappedResult:
		return "wrapped_result"
	default:
		return "unrecognized"
	}
}

// Shape is one recognized form of a JSON payload. Text is set for the CSV
// carrying kinds and Table for ShapeTabularArray.
type Shape struct {
	Kind  ShapeKind
	Text  string
	Table domain.TabularData
}

// ClassifyPayload decides which shape a JSON value has.
func ClassifyPayload(payload json.RawMessage) Shape {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Shape{Kind: ShapeUnrecognized}
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return Shape{Kind: ShapeUnrecognized}
		}
		return Shape{Kind: ShapeCSVText, Text: text}
	case '[':
		var rows []json.RawMessage
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return Shape{Kind: ShapeUnrecognized}
		}
		return Shape{Kind: ShapeTabularArray, Table: tableFromJSON(rows)}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return Shape{Kind: ShapeUnrecognized}
		}
		if text, ok := stringField(fields, "csv"); ok {
			return Shape{Kind: ShapeWrappedCSV, Text: text}
		}
		if text, ok := stringField(fields, "result"); ok {
			return Shape{Kind: ShapeWrappedResult, Text: text}
		}
	}
	return Shape{Kind: ShapeUnrecognized}
}

// Tabulate converts the shape into rows.
func (s Shape) Tabulate() (domain.TabularData, error) {
	switch s.Kind {
	case ShapeCSVText, ShapeWrappedCSV, ShapeWrappedResult:
		return tabular.Parse(s.Text), nil
	case ShapeTabularArray:
		return s.Table, nil
	case ShapeUnrecognized:
		return nil, domain.WrapError(domain.ErrUnrecognizedResponseShape, "classify payload", fmt.Errorf("unexpected JSON response shape"))
	default:
		return nil, domain.WrapError(domain.ErrUnrecognizedResponseShape, "classify payload", fmt.Errorf("unknown shape kind %d", s.Kind))
	}
}

// unwrapData returns payload.data when it is present and not null, otherwise payload.
func unwrapData(payload json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return payload
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return payload
	}
	data, ok := fields["data"]
	if !ok || isJSONNull(data) {
		return payload
	}
	return data
}

// tableFromJSON keeps rows as sent. String cells are taken verbatim, null
// becomes an empty cell and any other value keeps its JSON text. A row that is
// not an array becomes a single cell row.
func tableFromJSON(rows []json.RawMessage) domain.TabularData {
	table := make(domain.TabularData, 0, len(rows))
	for _, row := range rows {
		var cells []json.RawMessage
		if err := json.Unmarshal(row, &cells); err != nil {
			table = append(table, []string{cellText(row)})
			continue
		}
		out := make([]string, len(cells))
		for i, cell := range cells {
			out[i] = cellText(cell)
		}
		table = append(table, out)
	}
	return table
}

func cellText(cell json.RawMessage) string {
	if isJSONNull(cell) {
		return ""
	}
	var s string
	if err := json.Unmarshal(cell, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, cell); err != nil {
		return string(bytes.TrimSpace(cell))
	}
	return compact.String()
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
