// Package tabular reads and writes the row-of-cells tables produced by the
// analysis service.
//
// The reader is deliberately permissive: quotes may open and close anywhere in
// a field, rows may have different widths and no header typing is attempted.
package tabular

import (
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

// Parse tokenizes CSV text into rows of cells.
//
// A doubled quote inside a quoted section yields a literal quote. A bare \r,
// a bare \n and \r\n each terminate one row. A trailing row made of a single
// empty cell, usually left by a final blank line, is dropped.
func Parse(text string) domain.TabularData {
	rows := domain.TabularData{}
	row := []string{}
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(text); i++ {
		ch := text[i]

		switch {
		case ch == '"':
			if inQuotes && i+1 < len(text) && text[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			row = append(row, cur.String())
			cur.Reset()
		case (ch == '\n' || ch == '\r') && !inQuotes:
			if ch == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			row = append(row, cur.String())
			rows = append(rows, row)
			row = []string{}
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}

	if cur.Len() > 0 || len(row) > 0 {
		row = append(row, cur.String())
		rows = append(rows, row)
	}

	if n := len(rows); n > 0 && len(rows[n-1]) == 1 && rows[n-1][0] == "" {
		rows = rows[:n-1]
	}
	return rows
}

// ParseReader reads r to the end and parses it with Parse.
func ParseReader(r io.Reader) (domain.TabularData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return Parse(string(raw)), nil
}
