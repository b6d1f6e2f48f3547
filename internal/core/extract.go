package core

// extract.go implements the two independent passes over a Workbook:
//
//   - BuildNameMap: internal column name -> caption, for columns with a calculation
//   - BuildRecords: caption -> report record, first occurrence wins
//
// ResolveFormulas (resolve.go) combines the two.

import (
	"strings"

	"aqwari.net/xml/xmltree"
)

// Label reports Parameter.
func (ParameterSource) Label() Label { return LabelParameter }

// Formula renders the aliases as `key: 'value'` pairs joined by ", ".
// Dots are stripped from keys. A key repeated after stripping keeps its first
// position and takes the last value. Without an <aliases> element the
// formula is N/A.
func (p ParameterSource) Formula() string {
	if !p.HasAliases {
		return NotAvailable
	}

	var keys []string
	values := make(map[string]string, len(p.Aliases))
	for _, a := range p.Aliases {
		key := strings.ReplaceAll(a.Key, ".", "")
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = a.Value
	}

	pairs := make([]string, len(keys))
	for i, key := range keys {
		pairs[i] = key + ": '" + values[key] + "'"
	}
	return strings.Join(pairs, ", ")
}

// Label reports Calculated Field.
func (CalculationSource) Label() Label { return LabelCalculatedField }

// Formula returns the raw expression, or N/A if the formula attribute is missing.
func (c CalculationSource) Formula() string {
	if !c.HasExpression {
		return NotAvailable
	}
	return c.Expression
}

// Source returns the column's field source, or nil when the column is neither
// a parameter nor a calculation. param-domain-type takes precedence.
func (c Column) Source() FieldSource {
	switch {
	case c.Parameter != nil:
		return ParameterSource{Aliases: c.Parameter.Aliases, HasAliases: c.Parameter.HasAliases}
	case c.Calculation != nil:
		return CalculationSource{Expression: c.Calculation.Formula, HasExpression: c.Calculation.HasFormula}
	default:
		return nil
	}
}

// BuildNameMap registers name -> caption for every column with a <calculation>
// child, in document order. This includes parameters that carry one and
// columns whose record is later dropped as a duplicate caption.
func BuildNameMap(wb Workbook) *NameMap {
	m := NewNameMap()
	for _, ds := range wb.Datasources {
		for _, col := range ds.Columns {
			if col.Calculation != nil {
				m.Register(col.Name, col.Caption)
			}
		}
	}
	return m
}

// BuildRecords produces one record per distinct caption in document order.
// Columns without a field source are skipped; later columns repeating an
// existing caption are discarded.
func BuildRecords(wb Workbook) []Record {
	var records []Record
	seen := make(map[string]bool)

	for _, ds := range wb.Datasources {
		for _, col := range ds.Columns {
			src := col.Source()
			if src == nil {
				continue
			}
			if seen[col.Caption] {
				continue
			}
			seen[col.Caption] = true

			records = append(records, Record{
				Caption:    col.Caption,
				Formula:    src.Formula(),
				DataType:   col.DataType,
				Label:      src.Label(),
				Datasource: ds.Caption,
			})
		}
	}
	return records
}

// Extract runs the full pipeline over a parsed document.
func Extract(root *xmltree.Element) []Record {
	wb := ReadWorkbook(root)
	return ResolveFormulas(BuildRecords(wb), BuildNameMap(wb))
}

// ExtractBytes parses data and extracts its records. Nothing is returned
// when the document does not parse.
func ExtractBytes(data []byte) ([]Record, error) {
	root, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return Extract(root), nil
}
