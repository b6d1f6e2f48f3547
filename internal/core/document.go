package core

// document.go turns raw XML into the Workbook model.
//
// Parsing and reading are separate steps so that a malformed document is
// rejected before any extraction work starts.

import (
	"strings"

	"aqwari.net/xml/xmltree"
)

const (
	elemDatasource  = "datasource"
	elemColumn      = "column"
	elemCalculation = "calculation"
	elemAliases     = "aliases"
	elemAlias       = "alias"

	attrCaption         = "caption"
	attrName            = "name"
	attrDatatype        = "datatype"
	attrFormula         = "formula"
	attrParamDomainType = "param-domain-type"
	attrKey             = "key"
	attrValue           = "value"
)

// ParseDocument parses an XML document into an element tree.
// The input is first normalised to UTF-8 according to its BOM or declared
// encoding, then checked for well-formedness as a whole: xmltree stops
// reading at the end of the root element, so trailing content is caught
// here. Any failure is returned as a *ParseError.
func ParseDocument(data []byte) (*xmltree.Element, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &ParseError{Err: errEmptyDocument}
	}
	doc, err := normalizeEncoding(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if err := checkWellFormed(doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	root, err := xmltree.Parse(doc)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return root, nil
}

// ReadWorkbook collects every datasource in document order. The root itself
// counts when it is a <datasource> (a bare .tds file). Columns are gathered
// from all descendants of a datasource, not just its direct children.
func ReadWorkbook(root *xmltree.Element) Workbook {
	var wb Workbook
	if root == nil {
		return wb
	}

	for _, ds := range searchAll(root, elemDatasource) {
		source := Datasource{Caption: attrValueOf(ds, attrCaption)}
		for _, col := range ds.SearchFunc(isElement(elemColumn)) {
			source.Columns = append(source.Columns, readColumn(col))
		}
		wb.Datasources = append(wb.Datasources, source)
	}
	return wb
}

// readColumn extracts the attributes and children the report needs.
func readColumn(el *xmltree.Element) Column {
	col := Column{
		Name:     attrValueOf(el, attrName),
		Caption:  attrValueOf(el, attrCaption),
		DataType: attrValueOf(el, attrDatatype),
	}

	if calc := firstChild(el, elemCalculation); calc != nil {
		formula, ok := attr(calc, attrFormula)
		col.Calculation = &Calculation{Formula: formula, HasFormula: ok}
	}

	if domain, ok := attr(el, attrParamDomainType); ok {
		param := &Parameter{DomainType: domain}
		if aliases := firstChild(el, elemAliases); aliases != nil {
			param.HasAliases = true
			for i := range aliases.Children {
				a := &aliases.Children[i]
				if a.Name.Local != elemAlias {
					continue
				}
				param.Aliases = append(param.Aliases, Alias{
					Key:   attrValueOf(a, attrKey),
					Value: attrValueOf(a, attrValue),
				})
			}
		}
		col.Parameter = param
	}

	return col
}

// isElement matches elements by local name in any namespace.
func isElement(local string) func(*xmltree.Element) bool {
	return func(el *xmltree.Element) bool {
		return el.Name.Local == local
	}
}

// searchAll is SearchFunc including el itself. SearchFunc only visits
// descendants.
func searchAll(el *xmltree.Element, local string) []*xmltree.Element {
	var out []*xmltree.Element
	if isElement(local)(el) {
		out = append(out, el)
	}
	return append(out, el.SearchFunc(isElement(local))...)
}

func firstChild(el *xmltree.Element, local string) *xmltree.Element {
	for i := range el.Children {
		if el.Children[i].Name.Local == local {
			return &el.Children[i]
		}
	}
	return nil
}

// attr looks up an unqualified attribute and reports whether it was present.
// xmltree.Element.Attr cannot distinguish a missing attribute from an empty one.
func attr(el *xmltree.Element, local string) (string, bool) {
	for _, a := range el.StartElement.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func attrValueOf(el *xmltree.Element, local string) string {
	v, _ := attr(el, local)
	return v
}
