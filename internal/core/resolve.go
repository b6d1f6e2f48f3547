package core

import "strings"

// NameMap is an insertion-ordered map from internal field name to caption.
// Registering an existing name replaces its caption but keeps its position.
type NameMap struct {
	names    []string
	captions map[string]string
}

// NewNameMap returns an empty NameMap.
func NewNameMap() *NameMap {
	return &NameMap{captions: make(map[string]string)}
}

// Register records name -> caption.
func (m *NameMap) Register(name, caption string) {
	if _, exists := m.captions[name]; !exists {
		m.names = append(m.names, name)
	}
	m.captions[name] = caption
}

// Lookup returns the caption registered for name.
func (m *NameMap) Lookup(name string) (string, bool) {
	c, ok := m.captions[name]
	return c, ok
}

// Len returns the number of registered names.
func (m *NameMap) Len() int {
	return len(m.names)
}

// Names returns the registered names in insertion order.
func (m *NameMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Replace rewrites every occurrence of every registered name in s with its
// caption, one name at a time in insertion order. Matching is plain substring
// replacement: a name embedded in a longer identifier or in literal text is
// rewritten too, and a later name can match text an earlier caption inserted.
// Entries with an empty name or caption are skipped.
func (m *NameMap) Replace(s string) string {
	for _, name := range m.names {
		caption := m.captions[name]
		if name == "" || caption == "" {
			continue
		}
		s = strings.ReplaceAll(s, name, caption)
	}
	return s
}

// ResolveFormulas returns a copy of records with internal names in
// Calculated Field formulas replaced by captions. Parameter formulas are
// left untouched.
func ResolveFormulas(records []Record, names *NameMap) []Record {
	out := make([]Record, len(records))
	copy(out, records)

	if names == nil || names.Len() == 0 {
		return out
	}
	for i := range out {
		if out[i].Label == LabelCalculatedField {
			out[i].Formula = names.Replace(out[i].Formula)
		}
	}
	return out
}
