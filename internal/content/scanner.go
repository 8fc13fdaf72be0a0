package content

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	nperrors "github.com/mogura/novelpress/internal/errors"
	"github.com/mogura/novelpress/internal/logfields"
)

const (
	// IntroFileName is the standalone site introduction document at the
	// content root.
	IntroFileName = "self_intro.md"
	// WorkIndexFileName marks a subdirectory as a work.
	WorkIndexFileName = "index.md"
	// StylesheetPath is the shared stylesheet, tracked as an asset rather
	// than a page.
	StylesheetPath = "css/style.css"
)

// faviconNames are optional root-level assets copied through verbatim.
var faviconNames = []string{
	"favicon.ico",
	"favicon-16x16.png",
	"favicon-32x32.png",
	"apple-touch-icon.png",
}

// Scanner walks the content root and produces a Manifest. Traversal is
// lexicographic by path so repeated runs over unchanged input enumerate pages
// in identical order; history diffs depend on that.
type Scanner struct {
	root string
}

// NewScanner creates a scanner over the given content root.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

// Scan builds the manifest. Any structural problem with the content root is
// fatal: a partial manifest would silently publish broken navigation.
func (s *Scanner) Scan() (*Manifest, error) {
	info, err := os.Stat(s.root)
	if err != nil || !info.IsDir() {
		return nil, nperrors.ScanError(fmt.Sprintf("content root not found: %s", s.root))
	}

	m := &Manifest{Root: s.root}

	intro, err := s.scanIntro()
	if err != nil {
		return nil, err
	}
	m.Intro = intro

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, nperrors.Wrap(err, nperrors.CategoryScan, nperrors.SeverityFatal, "failed to read content root")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		work, err := s.scanWorkDir(entry.Name())
		if err != nil {
			return nil, err
		}
		if work != nil {
			m.Works = append(m.Works, work)
		}
	}

	if _, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(StylesheetPath))); err == nil {
		m.Stylesheet = StylesheetPath
	}
	for _, name := range faviconNames {
		if _, err := os.Stat(filepath.Join(s.root, name)); err == nil {
			m.Favicons = append(m.Favicons, name)
		}
	}
	if ogpEntries, err := os.ReadDir(filepath.Join(s.root, "ogp")); err == nil {
		sort.Slice(ogpEntries, func(i, j int) bool { return ogpEntries[i].Name() < ogpEntries[j].Name() })
		for _, entry := range ogpEntries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".png") {
				m.OgpImages = append(m.OgpImages, path.Join("ogp", entry.Name()))
			}
		}
	}

	slog.Debug("Content scan complete",
		slog.Int("works", len(m.Works)),
		slog.Int("pages", len(m.Pages())))
	return m, nil
}

func (s *Scanner) scanIntro() (*IntroPage, error) {
	introPath := filepath.Join(s.root, IntroFileName)
	raw, err := os.ReadFile(introPath)
	if err != nil {
		return nil, nperrors.ScanError(fmt.Sprintf("site introduction not found: %s", introPath))
	}
	if !utf8.Valid(raw) {
		return nil, nperrors.ScanError(fmt.Sprintf("site introduction is not valid UTF-8: %s", introPath))
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, nperrors.ScanError("site introduction must not be empty")
	}
	info, err := os.Stat(introPath)
	if err != nil {
		return nil, nperrors.Wrap(err, nperrors.CategoryScan, nperrors.SeverityFatal, "failed to stat site introduction")
	}
	return &IntroPage{
		Path:        IntroFileName,
		Body:        strings.TrimSpace(string(raw)),
		Raw:         raw,
		Fingerprint: Fingerprint(raw),
		ModTime:     info.ModTime(),
	}, nil
}

// scanWorkDir scans one subdirectory. Directories containing no Markdown at
// all (asset directories like css/ or ogp/) are not works and are skipped; a
// directory with chapter files but no index document is a fatal error.
func (s *Scanner) scanWorkDir(name string) (*Work, error) {
	dir := filepath.Join(s.root, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nperrors.Wrap(err, nperrors.CategoryScan, nperrors.SeverityFatal, "failed to read work directory").WithContext("dir", dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var mdFiles []string
	hasIndex := false
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		if entry.Name() == WorkIndexFileName {
			hasIndex = true
			continue
		}
		if strings.HasPrefix(entry.Name(), "_") {
			continue // drafts
		}
		mdFiles = append(mdFiles, entry.Name())
	}

	if !hasIndex {
		if len(mdFiles) == 0 {
			return nil, nil // asset directory
		}
		return nil, nperrors.ScanError(fmt.Sprintf("work directory %s has chapter files but no %s", name, WorkIndexFileName))
	}

	indexPath := filepath.Join(dir, WorkIndexFileName)
	indexRaw, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, nperrors.Wrap(err, nperrors.CategoryScan, nperrors.SeverityFatal, "failed to read work index").WithContext("path", indexPath)
	}
	indexInfo, err := os.Stat(indexPath)
	if err != nil {
		return nil, nperrors.Wrap(err, nperrors.CategoryScan, nperrors.SeverityFatal, "failed to stat work index").WithContext("path", indexPath)
	}

	relIndex := path.Join(name, WorkIndexFileName)
	work, problems := ParseWorkIndex(name, relIndex, indexRaw, indexInfo.ModTime())
	if len(problems) > 0 {
		return nil, scanProblems(relIndex, problems)
	}

	var chapters []*Chapter
	for _, fileName := range mdFiles {
		full := filepath.Join(dir, fileName)
		raw, err := os.ReadFile(full)
		if err != nil {
			return nil, nperrors.Wrap(err, nperrors.CategoryScan, nperrors.SeverityFatal, "failed to read chapter").WithContext("path", full)
		}
		info, err := os.Stat(full)
		if err != nil {
			return nil, nperrors.Wrap(err, nperrors.CategoryScan, nperrors.SeverityFatal, "failed to stat chapter").WithContext("path", full)
		}
		ch := ParseChapter(path.Join(name, fileName), raw, info.ModTime())
		if ch.Invalid {
			slog.Warn("Chapter failed validation, will degrade to literal rendering",
				logfields.Work(name),
				logfields.Page(ch.Path),
				slog.Any("problems", ch.Problems))
		}
		chapters = append(chapters, ch)
	}

	if problems := work.AttachChapters(chapters); len(problems) > 0 {
		return nil, scanProblems(relIndex, problems)
	}

	return work, nil
}

func scanProblems(page string, problems []string) error {
	return nperrors.ScanError(fmt.Sprintf("%s: %s", page, strings.Join(problems, "; ")))
}
