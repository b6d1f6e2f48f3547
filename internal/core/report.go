package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM is written before the header so spreadsheet tools detect UTF-8.
const utf8BOM = "\uFEFF"

// ReportHeader is the column order of the CSV report.
var ReportHeader = []string{"Caption", "Formula", "Data Type", "Label", "Datasource"}

// Row returns the record's cells in ReportHeader order.
func (r Record) Row() []string {
	return []string{r.Caption, r.Formula, r.DataType, string(r.Label), r.Datasource}
}

// WriteReport writes records as a BOM-prefixed CSV document.
func WriteReport(w io.Writer, records []Record) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		if err := cw.Write(rec.Row()); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeReport renders records to an in-memory CSV document.
func EncodeReport(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CountByLabel returns how many records carry each label.
func CountByLabel(records []Record) map[Label]int {
	counts := make(map[Label]int, 2)
	for _, r := range records {
		counts[r.Label]++
	}
	return counts
}
