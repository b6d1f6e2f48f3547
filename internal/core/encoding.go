package core

// encoding.go brings a workbook to UTF-8 before it reaches the parser.
//
// Workbooks are normally UTF-8, but exports from older tools declare
// ISO-8859-1 or windows-1252, and some are saved as UTF-16. xmltree only
// understands UTF-8 reliably, so the document is decoded here and its XML
// declaration rewritten to say UTF-8.

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// declEncoding matches the encoding pseudo-attribute of a leading XML
// declaration. Group 2 is the label.
var declEncoding = regexp.MustCompile(`^(\s*<\?xml\s[^>]*?\bencoding\s*=\s*["'])([A-Za-z0-9._:-]+)(["'])`)

// normalizeEncoding returns data as UTF-8 with a declaration that no longer
// names another encoding. A BOM takes precedence over the declaration.
func normalizeEncoding(data []byte) ([]byte, error) {
	doc, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return nil, fmt.Errorf("decode byte-order mark: %w", err)
	}

	m := declEncoding.FindSubmatchIndex(doc)
	if m == nil {
		return sanitizeUTF8(doc)
	}
	label := strings.ToLower(string(doc[m[4]:m[5]]))

	enc, name := charset.Lookup(label)
	switch {
	case enc == nil:
		return nil, fmt.Errorf("unsupported encoding %q", label)
	case name == "utf-8", strings.HasPrefix(name, "utf-16"):
		// A utf-16 declaration readable as ASCII means the bytes were
		// already transcoded from a BOM; only the label is stale.
		return sanitizeUTF8(relabel(doc, m))
	}

	decoded, err := enc.NewDecoder().Bytes(doc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return relabel(decoded, declEncoding.FindSubmatchIndex(decoded)), nil
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with U+FFFD.
func sanitizeUTF8(doc []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), doc)
	if err != nil {
		return nil, fmt.Errorf("decode utf-8: %w", err)
	}
	return out, nil
}

// relabel replaces the declared encoding label at m with UTF-8.
func relabel(doc []byte, m []int) []byte {
	if m == nil {
		return doc
	}
	out := make([]byte, 0, len(doc))
	out = append(out, doc[:m[4]]...)
	out = append(out, "UTF-8"...)
	return append(out, doc[m[5]:]...)
}

// checkWellFormed tokenizes the whole document and requires exactly one
// root element with nothing but whitespace, comments and processing
// instructions around it.
func checkWellFormed(doc []byte) error {
	d := xml.NewDecoder(bytes.NewReader(doc))
	depth, roots := 0, 0

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if roots > 1 {
					line, _ := d.InputPos()
					return fmt.Errorf("junk after document element on line %d", line)
				}
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				line, _ := d.InputPos()
				if roots > 0 {
					return fmt.Errorf("junk after document element on line %d", line)
				}
				return fmt.Errorf("text before document element on line %d", line)
			}
		}
	}

	if roots == 0 {
		return errors.New("no element found")
	}
	return nil
}
