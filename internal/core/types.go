package core

import (
	"io"
	"time"
)

// Label classifies an extracted field.
type Label string

const (
	LabelParameter       Label = "Parameter"
	LabelCalculatedField Label = "Calculated Field"
)

// NotAvailable is the formula reported when a field has nothing to show.
const NotAvailable = "N/A"

// Record is one row of the calculation report.
type Record struct {
	Caption    string
	Formula    string
	DataType   string // Empty when the column has no datatype attribute
	Label      Label
	Datasource string
}

// Alias is a single display alias declared on a parameter.
type Alias struct {
	Key   string
	Value string
}

// Calculation is the <calculation> child of a column.
type Calculation struct {
	Formula    string
	HasFormula bool
}

// Parameter marks a column carrying a param-domain-type attribute.
type Parameter struct {
	DomainType string
	Aliases    []Alias
	HasAliases bool // An <aliases> element was present, even if empty
}

// Column is the subset of a <column> element the extractor reads.
type Column struct {
	Name        string
	Caption     string
	DataType    string
	Calculation *Calculation // nil when the column has no <calculation> child
	Parameter   *Parameter   // nil when param-domain-type is absent
}

// Datasource groups the columns found beneath one <datasource> element.
type Datasource struct {
	Caption string
	Columns []Column
}

// Workbook is the flattened view of a parsed document.
type Workbook struct {
	Datasources []Datasource
}

// FieldSource is the label-determining part of a column. Exactly one of
// ParameterSource or CalculationSource is produced per reportable column.
type FieldSource interface {
	Label() Label
	Formula() string
}

// ParameterSource derives its formula from display aliases.
type ParameterSource struct {
	Aliases    []Alias
	HasAliases bool
}

// CalculationSource carries a calculated field's expression.
type CalculationSource struct {
	Expression    string
	HasExpression bool
}

// Upload is a single file handed to the service for conversion.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64 // Declared size, 0 if unknown
	Body        io.Reader
}

// Result contains the outcome of a successful conversion.
type Result struct {
	ID         string
	FileName   string
	CSVPath    string
	Records    []Record
	Parameters int
	Calculated int
	Duration   time.Duration
}
