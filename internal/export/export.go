// Package export renders materialized view rows as JSON, CSV or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
	"github.com/xuri/excelize/v2"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts json, csv and xlsx in any case. Empty means json.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", formview.NewError(formview.ErrorTypeValidation, formview.ErrCodeUnsupportedSource,
		fmt.Sprintf("unsupported export format %q", s))
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Column is one exported column: Key indexes the row, Header is printed.
type Column struct {
	Key    string
	Header string
}

// Columns lists the row metadata columns followed by the view's columns.
// Columns without an id are skipped as they are during materialization.
func Columns(cfg formview.ViewConfig) []Column {
	out := []Column{
		{Key: "id", Header: "id"},
		{Key: "created_at", Header: "created_at"},
		{Key: "form_id", Header: "form_id"},
	}
	for _, c := range cfg.Columns {
		if c.ID == "" {
			continue
		}
		header := c.Label
		if header == "" {
			header = c.ID
		}
		out = append(out, Column{Key: c.ID, Header: header})
	}
	return out
}

func cell(row formview.Row, key string) string {
	if v, ok := row.Values[key]; ok {
		return internal.FormatValue(v)
	}
	switch key {
	case "id":
		return row.ID
	case "created_at":
		return row.CreatedAt.Format(time.RFC3339Nano)
	case "form_id":
		return row.FormID
	}
	return ""
}

func headers(columns []Column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Header
	}
	return out
}

// WriteJSON writes rows as a JSON array of flat objects.
func WriteJSON(w io.Writer, rows []formview.Row) error {
	if rows == nil {
		rows = []formview.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteCSV writes a header line and one record per row.
func WriteCSV(w io.Writer, columns []Column, rows []formview.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers(columns)); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, c := range columns {
			record[i] = cell(row, c.Key)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", row.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook.
func WriteXLSX(w io.Writer, sheet string, columns []Column, rows []formview.Row) error {
	if sheet == "" {
		sheet = "View"
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, h := range headers(columns) {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}

	for r, row := range rows {
		values := make([]interface{}, len(columns))
		for i, c := range columns {
			values[i] = cell(row, c.Key)
		}
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("failed to address xlsx row: %w", err)
		}
		if err := f.SetSheetRow(sheet, axis, &values); err != nil {
			return fmt.Errorf("failed to write xlsx row %s: %w", row.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

// Write renders rows in the given format.
func Write(w io.Writer, format Format, cfg formview.ViewConfig, rows []formview.Row) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, Columns(cfg), rows)
	case FormatXLSX:
		return WriteXLSX(w, "View", Columns(cfg), rows)
	}
	return WriteJSON(w, rows)
}
