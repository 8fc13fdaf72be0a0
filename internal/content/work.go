package content

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Status classifies the publication state of a Work.
type Status string

const (
	StatusOngoing  Status = "ongoing"
	StatusComplete Status = "complete"
	StatusHiatus   Status = "hiatus"
)

// Source documents declare status with these literals.
var statusLiterals = map[string]Status{
	"連載中": StatusOngoing,
	"完結済": StatusComplete,
	"更新停止": StatusHiatus,
	"ongoing":  StatusOngoing,
	"complete": StatusComplete,
	"hiatus":   StatusHiatus,
}

// ParseStatus maps a source status literal to its typed value.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusLiterals[strings.TrimSpace(s)]
	return st, ok
}

// Priority orders statuses on the site index: ongoing before complete before
// hiatus. Unknown statuses sort last.
func (s Status) Priority() int {
	switch s {
	case StatusOngoing:
		return 0
	case StatusComplete:
		return 1
	case StatusHiatus:
		return 2
	default:
		return 99
	}
}

// ChapterGroup is a named span of episodes: every episode whose number is at
// most Boundary (and above the previous group's boundary) belongs to it.
type ChapterGroup struct {
	Title    string
	Boundary int
}

// Work is a named fiction project: its index document plus ordered chapters.
type Work struct {
	Slug string
	Dir  string // Relative directory under the content root

	IndexPath        string
	IndexRaw         []byte
	IndexFingerprint string
	IndexModTime     time.Time

	Title         string
	Tags          []string
	StatusLabel   string // Literal from the source document, shown on badges
	Status        Status
	Outline       string
	ExternalLinks []string       // Markdown list items, "[text](url)"
	Groups        []ChapterGroup // Ascending by boundary; empty when undeclared

	// Chapters in presentation order: valid chapters ascending by episode
	// number, then invalid ones ascending by path.
	Chapters    []*Chapter
	TotalLength int
}

var workIndexAllowed = map[string]struct{}{
	"title": {}, "tags": {}, "status": {}, "outline": {},
	"external links": {}, "chapters": {},
}

var workIndexRequired = []string{"title", "tags", "status", "outline"}

// ParseWorkIndex validates a work's index document. Problems are returned as
// messages rather than an error so the scanner can aggregate them into one
// fatal report per work.
func ParseWorkIndex(slug, relPath string, raw []byte, modTime time.Time) (*Work, []string) {
	w := &Work{
		Slug:             slug,
		Dir:              slug,
		IndexPath:        relPath,
		IndexRaw:         raw,
		IndexFingerprint: Fingerprint(raw),
		IndexModTime:     modTime,
	}

	sections, err := ParseSections(raw)
	if err != nil {
		return nil, []string{err.Error()}
	}

	var problems []string
	if sections.Len() == 0 {
		problems = append(problems, "no top-level headers found; required: title, tags, status, outline")
	}
	for _, key := range sections.Keys() {
		if _, ok := workIndexAllowed[key]; !ok {
			problems = append(problems, fmt.Sprintf("unexpected header: %s", key))
		}
	}
	for _, key := range workIndexRequired {
		if _, ok := sections.Get(key); !ok {
			problems = append(problems, fmt.Sprintf("missing required header: %s", key))
		}
	}
	for _, key := range sections.Keys() {
		if v, _ := sections.Get(key); strings.TrimSpace(v) == "" {
			problems = append(problems, fmt.Sprintf("`%s` must not be empty", key))
		}
	}

	title, _ := sections.Get("title")
	if strings.ContainsAny(title, "\r\n") {
		problems = append(problems, "`title` must be a single line")
	}
	w.Title = strings.TrimSpace(title)

	if tagsRaw, ok := sections.Get("tags"); ok && strings.TrimSpace(tagsRaw) != "" {
		tags, err := parseMarkdownList(tagsRaw)
		if err != nil {
			problems = append(problems, "`tags` must be a Markdown list with at least one item")
		} else {
			w.Tags = tags
		}
	}

	if statusRaw, ok := sections.Get("status"); ok && strings.TrimSpace(statusRaw) != "" {
		st, ok := ParseStatus(statusRaw)
		if !ok {
			problems = append(problems, `"status" must be one of "連載中", "完結済", "更新停止"`)
		} else {
			w.Status = st
			w.StatusLabel = strings.TrimSpace(statusRaw)
		}
	}

	if outline, ok := sections.Get("outline"); ok {
		w.Outline = outline
	}

	if extRaw, ok := sections.Get("external links"); ok {
		items, err := parseMarkdownList(extRaw)
		if err != nil {
			problems = append(problems, "`external links` must be a Markdown list with at least one item")
		} else {
			for _, item := range items {
				if !strings.HasPrefix(item, "[") || !strings.Contains(item, "](") || !strings.HasSuffix(item, ")") {
					problems = append(problems, `each "external links" item must be a Markdown link like "[text](url)"`)
					break
				}
			}
			w.ExternalLinks = items
		}
	}

	if groupsRaw, ok := sections.Get("chapters"); ok {
		groups, groupProblems := parseChapterGroups(groupsRaw)
		problems = append(problems, groupProblems...)
		w.Groups = groups
	}

	if len(problems) > 0 {
		return nil, problems
	}
	return w, nil
}

// AttachChapters installs the work's chapters in presentation order and runs
// the cross-file checks that need the full set: duplicate episode numbers and
// chapter-group membership. Invalid chapters are excluded from both checks.
func (w *Work) AttachChapters(chapters []*Chapter) []string {
	var problems []string

	var valid, invalid []*Chapter
	for _, ch := range chapters {
		if ch.Invalid {
			invalid = append(invalid, ch)
		} else {
			valid = append(valid, ch)
		}
	}

	seen := make(map[int]string, len(valid))
	for _, ch := range valid {
		if prev, dup := seen[ch.Number]; dup {
			problems = append(problems, fmt.Sprintf("duplicate episode number %d: %s and %s", ch.Number, prev, ch.Path))
		} else {
			seen[ch.Number] = ch.Path
		}
	}

	if len(w.Groups) > 0 {
		for _, ch := range valid {
			if _, ok := w.GroupFor(ch.Number); !ok {
				problems = append(problems, fmt.Sprintf("episode %d (%s) does not belong to any chapter group", ch.Number, ch.Path))
			}
		}
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i].Number < valid[j].Number })
	sort.Slice(invalid, func(i, j int) bool { return invalid[i].Path < invalid[j].Path })

	w.Chapters = append(valid, invalid...)
	w.TotalLength = 0
	for _, ch := range w.Chapters {
		w.TotalLength += ch.Length
	}

	return problems
}

// GroupFor returns the title of the chapter group an episode number belongs
// to: the first group (ascending by boundary) whose boundary is >= number.
func (w *Work) GroupFor(number int) (string, bool) {
	for _, g := range w.Groups {
		if number <= g.Boundary {
			return g.Title, true
		}
	}
	return "", false
}

// GroupedChapters returns the valid chapters partitioned by declared group, in
// group order. Works without declared groups get a single unnamed group.
func (w *Work) GroupedChapters() []struct {
	Title    string
	Chapters []*Chapter
} {
	type bucket = struct {
		Title    string
		Chapters []*Chapter
	}

	if len(w.Groups) == 0 {
		var all []*Chapter
		for _, ch := range w.Chapters {
			if !ch.Invalid {
				all = append(all, ch)
			}
		}
		return []bucket{{Title: "", Chapters: all}}
	}

	out := make([]bucket, len(w.Groups))
	for i, g := range w.Groups {
		out[i].Title = g.Title
	}
	for _, ch := range w.Chapters {
		if ch.Invalid {
			continue
		}
		for i, g := range w.Groups {
			if ch.Number <= g.Boundary {
				out[i].Chapters = append(out[i].Chapters, ch)
				break
			}
		}
	}
	return out
}

// LastUpdated returns the newest modification time across the index document
// and all chapters, used for ordering works on the site index.
func (w *Work) LastUpdated() time.Time {
	latest := w.IndexModTime
	for _, ch := range w.Chapters {
		if ch.ModTime.After(latest) {
			latest = ch.ModTime
		}
	}
	return latest
}

func parseMarkdownList(raw string) ([]string, error) {
	var items []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "- ") {
			return nil, fmt.Errorf("not a Markdown list item: %s", line)
		}
		if item := strings.TrimSpace(line[2:]); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("list has no items")
	}
	return items, nil
}

// parseChapterGroups parses the optional `chapters` section: one
// "Group Title: boundary" pair per line, boundaries strictly integers, titles
// and boundaries unique. The result is ordered by ascending boundary.
func parseChapterGroups(raw string) ([]ChapterGroup, []string) {
	var problems []string
	lines := strings.Split(strings.TrimSpace(raw), "\n")

	var groups []ChapterGroup
	titles := make(map[string]struct{})
	bounds := make(map[int]struct{})
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, found := strings.Cut(line, ":")
		if !found {
			return nil, []string{"`chapters` entries must be in 'group title: boundary number' format"}
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			return nil, []string{"`chapters` entries must be valid 'title: number' pairs"}
		}
		if _, dup := titles[k]; dup {
			return nil, []string{"`chapters` group titles must be unique"}
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, []string{"`chapters` boundary values must be integers"}
		}
		if _, dup := bounds[n]; dup {
			return nil, []string{"`chapters` boundary numbers must be unique"}
		}
		titles[k] = struct{}{}
		bounds[n] = struct{}{}
		groups = append(groups, ChapterGroup{Title: k, Boundary: n})
	}
	if len(groups) == 0 {
		return nil, []string{"`chapters` must not be empty if provided"}
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Boundary < groups[j].Boundary })
	return groups, problems
}
