// Package bibtex provides a minimal BibTeX model with parsing and
// serialization, preserving entry and field order.
package bibtex

import "strings"

// Field is a single BibTeX field, e.g. author = {...}.
type Field struct {
	Name  string
	Value string
}

// Entry is one bibliographic record: an entry type, a citation key, and
// an ordered list of fields as they appeared in the source.
type Entry struct {
	Type   string
	Key    string
	Fields []Field
}

// Get returns the value of the named field, matched case-insensitively.
// Returns "" if the field is absent.
func (e *Entry) Get(name string) string {
	for _, f := range e.Fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Set replaces the value of the named field in place, or appends the
// field if it does not exist yet.
func (e *Entry) Set(name, value string) {
	for i, f := range e.Fields {
		if strings.EqualFold(f.Name, name) {
			e.Fields[i].Value = value
			return
		}
	}
	e.Fields = append(e.Fields, Field{Name: name, Value: value})
}

// Title returns the entry title with brace case-preservation markup
// stripped, e.g. "{BERT}: Pre-training" becomes "BERT: Pre-training".
func (e *Entry) Title() string {
	title := e.Get("title")
	title = strings.ReplaceAll(title, "{", "")
	title = strings.ReplaceAll(title, "}", "")
	return strings.TrimSpace(title)
}

// Clone returns a deep copy sharing no state with the receiver.
func (e Entry) Clone() Entry {
	fields := make([]Field, len(e.Fields))
	copy(fields, e.Fields)
	return Entry{Type: e.Type, Key: e.Key, Fields: fields}
}

// Equal reports whether two entries have the same type, key, and fields
// in the same order.
func Equal(a, b Entry) bool {
	if a.Type != b.Type || a.Key != b.Key || len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	return true
}
