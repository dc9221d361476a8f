package bibtex

import (
	"fmt"
	"os"
	"strings"
)

// Format serializes a single entry to BibTeX.
func Format(e Entry) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("@%s{%s,\n", e.Type, e.Key))
	for _, f := range e.Fields {
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", f.Name, f.Value))
	}
	b.WriteString("}\n")
	return b.String()
}

// FormatList serializes multiple entries separated by blank lines.
func FormatList(entries []Entry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = Format(e)
	}
	return strings.Join(parts, "\n")
}

// ReadFile parses a BibTeX file into entries.
func ReadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return entries, nil
}

// WriteFile serializes entries to a BibTeX file.
func WriteFile(path string, entries []Entry) error {
	if err := os.WriteFile(path, []byte(FormatList(entries)), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteFailedKeys writes one citation key per line. Nothing is written
// (and no file is created) when keys is empty.
func WriteFailedKeys(path string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := os.WriteFile(path, []byte(strings.Join(keys, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
