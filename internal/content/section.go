package content

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// Metadata documents (work indexes, chapter files) are plain Markdown where
// every top-level `# key` header starts a section and the text below it, up to
// the next top-level header, is the section value. Content before the first
// header is ignored. Lower-level headers belong to the enclosing section.

// ErrDuplicateSection reports a repeated top-level header within one document.
type DuplicateSectionError struct {
	Key string
}

func (e *DuplicateSectionError) Error() string {
	return fmt.Sprintf("duplicate section header: %s", e.Key)
}

// Sections holds the parsed H1-keyed sections of a metadata document in
// declaration order.
type Sections struct {
	keys   []string
	values map[string]string
}

// Keys returns the section keys in declaration order.
func (s *Sections) Keys() []string { return s.keys }

// Get returns the value for key and whether the section was present.
func (s *Sections) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of sections.
func (s *Sections) Len() int { return len(s.keys) }

// ParseSections splits a metadata document into H1-keyed sections.
func ParseSections(raw []byte) (*Sections, error) {
	out := &Sections{values: make(map[string]string)}

	var currentKey string
	var started bool
	var buf []string

	flush := func() {
		if started {
			out.values[currentKey] = strings.Join(buf, "\n")
			buf = buf[:0]
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		stripped := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(stripped, "# ") {
			key := strings.TrimSpace(stripped[2:])
			flush()
			if _, exists := out.values[key]; exists {
				return nil, &DuplicateSectionError{Key: key}
			}
			currentKey = key
			started = true
			out.keys = append(out.keys, key)
			out.values[key] = ""
			continue
		}
		if started {
			buf = append(buf, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read metadata document: %w", err)
	}
	flush()

	return out, nil
}
