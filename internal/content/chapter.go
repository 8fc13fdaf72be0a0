package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Chapter represents one episode of a Work, parsed from a single source file.
// A chapter file declares exactly three sections: title, number, content.
//
// Only problems detectable within the single file are recorded here; cross-file
// checks (duplicate episode numbers, chapter-group membership) belong to the
// Work parser.
type Chapter struct {
	Path        string // Relative to the content root, slash-separated
	Title       string
	Number      int
	Body        string // The `content` section, verbatim
	Length      int    // Body characters excluding newlines
	Raw         []byte // Full source bytes, fingerprint input
	Fingerprint string
	ModTime     time.Time

	// Invalid chapters are still published (degraded to literal text) so one
	// malformed file cannot block the rest of the site.
	Invalid  bool
	Problems []string
}

var chapterSections = map[string]struct{}{
	"title":   {},
	"number":  {},
	"content": {},
}

// ParseChapter validates a chapter document. Validation failures do not return
// an error: the chapter comes back flagged Invalid with its problems listed,
// so the caller can degrade rendering instead of aborting the run.
func ParseChapter(relPath string, raw []byte, modTime time.Time) *Chapter {
	ch := &Chapter{
		Path:        relPath,
		Raw:         raw,
		ModTime:     modTime,
		Fingerprint: Fingerprint(raw),
	}

	sections, err := ParseSections(raw)
	if err != nil {
		ch.Invalid = true
		ch.Problems = append(ch.Problems, err.Error())
		return ch
	}

	var problems []string
	if sections.Len() == 0 {
		problems = append(problems, "no top-level headers found; required: title, number, content")
	}
	for _, key := range sections.Keys() {
		if _, ok := chapterSections[key]; !ok {
			problems = append(problems, fmt.Sprintf("unexpected header: %s", key))
		}
	}
	for _, key := range []string{"title", "number", "content"} {
		if _, ok := sections.Get(key); !ok {
			problems = append(problems, fmt.Sprintf("missing required header: %s", key))
		}
	}

	title, _ := sections.Get("title")
	numberRaw, _ := sections.Get("number")
	body, _ := sections.Get("content")

	if _, ok := sections.Get("title"); ok && strings.TrimSpace(title) == "" {
		problems = append(problems, "`title` must not be empty")
	}
	if strings.ContainsAny(title, "\r\n") {
		problems = append(problems, "`title` must be a single line")
	}
	if _, ok := sections.Get("number"); ok && strings.TrimSpace(numberRaw) == "" {
		problems = append(problems, "`number` must not be empty")
	}
	if _, ok := sections.Get("content"); ok && strings.TrimSpace(body) == "" {
		problems = append(problems, "`content` must not be empty")
	}

	number := 0
	if s := strings.TrimSpace(numberRaw); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			problems = append(problems, "`number` must be an integer")
		} else {
			number = n
		}
	}

	if len(problems) > 0 {
		ch.Invalid = true
		ch.Problems = problems
		// Keep whatever parsed so degraded rendering has something to show.
		ch.Title = strings.TrimSpace(title)
		ch.Body = body
		ch.Length = TextLength(body)
		return ch
	}

	ch.Title = strings.TrimSpace(title)
	ch.Number = number
	ch.Body = body
	ch.Length = TextLength(body)
	return ch
}
