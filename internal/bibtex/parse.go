package bibtex

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse parses BibTeX source into entries, in source order.
// @comment, @preamble, and @string blocks are skipped. Malformed trailing
// input after the last complete entry yields an error.
func Parse(data []byte) ([]Entry, error) {
	p := &parser{src: string(data)}
	var entries []Entry

	for {
		if !p.seekEntry() {
			return entries, nil
		}
		entryType := strings.ToLower(p.readWord())
		switch entryType {
		case "comment", "preamble", "string":
			if err := p.skipBlock(); err != nil {
				return entries, err
			}
			continue
		case "":
			return entries, fmt.Errorf("bibtex: missing entry type at offset %d", p.pos)
		}

		entry, err := p.readEntry(entryType)
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
}

type parser struct {
	src string
	pos int
}

// seekEntry advances to the character after the next '@'.
// Returns false when the input is exhausted.
func (p *parser) seekEntry() bool {
	for p.pos < len(p.src) {
		if p.src[p.pos] == '@' {
			p.pos++
			return true
		}
		p.pos++
	}
	return false
}

// readWord consumes a run of letters (the entry type or a field name,
// which may also contain digits, dashes, and underscores).
func (p *parser) readWord() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '-' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

// skipBlock consumes a brace-balanced block, used for @comment and friends.
func (p *parser) skipBlock() error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '{' {
		// Line comment form: skip to end of line.
		for p.pos < len(p.src) && p.src[p.pos] != '\n' {
			p.pos++
		}
		return nil
	}
	_, err := p.readBraced()
	return err
}

// readEntry parses "{key, name = value, ...}" after the entry type.
func (p *parser) readEntry(entryType string) (Entry, error) {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '{' {
		return Entry{}, fmt.Errorf("bibtex: expected '{' after @%s", entryType)
	}
	p.pos++

	p.skipSpace()
	keyStart := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != '}' {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return Entry{}, fmt.Errorf("bibtex: unterminated @%s entry", entryType)
	}
	entry := Entry{Type: entryType, Key: strings.TrimSpace(p.src[keyStart:p.pos])}

	for {
		if p.src[p.pos] == '}' {
			p.pos++
			return entry, nil
		}
		p.pos++ // consume ','
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == '}' {
			p.pos++ // trailing comma before closing brace
			return entry, nil
		}

		name := strings.ToLower(p.readWord())
		if name == "" {
			return Entry{}, fmt.Errorf("bibtex: bad field name in entry %q", entry.Key)
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != '=' {
			return Entry{}, fmt.Errorf("bibtex: missing '=' for field %q in entry %q", name, entry.Key)
		}
		p.pos++
		p.skipSpace()

		value, err := p.readValue()
		if err != nil {
			return Entry{}, fmt.Errorf("bibtex: field %q in entry %q: %w", name, entry.Key, err)
		}
		entry.Fields = append(entry.Fields, Field{Name: name, Value: value})

		p.skipSpace()
		if p.pos >= len(p.src) {
			return Entry{}, fmt.Errorf("bibtex: unterminated entry %q", entry.Key)
		}
		if p.src[p.pos] != ',' && p.src[p.pos] != '}' {
			return Entry{}, fmt.Errorf("bibtex: unexpected character %q in entry %q", p.src[p.pos], entry.Key)
		}
	}
}

// readValue parses a field value: braced, quoted, or bare (numbers and
// macro names).
func (p *parser) readValue() (string, error) {
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("missing value")
	}
	switch p.src[p.pos] {
	case '{':
		return p.readBraced()
	case '"':
		return p.readQuoted()
	}
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != '}' && !unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
	value := strings.TrimSpace(p.src[start:p.pos])
	if value == "" {
		return "", fmt.Errorf("missing value")
	}
	return value, nil
}

// readBraced consumes a {...} group with balanced nesting and returns
// its contents with the outer braces removed.
func (p *parser) readBraced() (string, error) {
	p.pos++ // consume '{'
	start := p.pos
	depth := 1
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				value := p.src[start:p.pos]
				p.pos++
				return value, nil
			}
		}
		p.pos++
	}
	return "", fmt.Errorf("unbalanced braces")
}

// readQuoted consumes a "..." value. Braces inside quotes protect quote
// characters, per BibTeX convention.
func (p *parser) readQuoted() (string, error) {
	p.pos++ // consume '"'
	start := p.pos
	depth := 0
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '{':
			depth++
		case '}':
			depth--
		case '"':
			if depth == 0 {
				value := p.src[start:p.pos]
				p.pos++
				return value, nil
			}
		}
		p.pos++
	}
	return "", fmt.Errorf("unterminated quoted value")
}
