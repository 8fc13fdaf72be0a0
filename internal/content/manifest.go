// Package content discovers and validates the authored source tree: works,
// chapters, the site introduction, and shared assets. The result of a scan is
// a Manifest, a transient in-memory snapshot with content fingerprints that
// the renderer and the history tracker both consume.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/text/unicode/norm"
)

// PageRef identifies a page across runs: work slug plus content-root-relative
// path. The site introduction uses an empty work slug.
type PageRef struct {
	Work string
	Path string
}

// Less orders refs by work slug then path, the canonical emit order for
// history records.
func (r PageRef) Less(other PageRef) bool {
	if r.Work != other.Work {
		return r.Work < other.Work
	}
	return r.Path < other.Path
}

// Page is one fingerprinted source document as the history tracker sees it.
type Page struct {
	Ref         PageRef
	Fingerprint string
	ModTime     time.Time
}

// Manifest is the in-memory snapshot of the content tree for one run. It is
// rebuilt from scratch on every run and never persisted directly.
type Manifest struct {
	Root       string // Content root the scan was made from
	Intro      *IntroPage
	Works      []*Work  // Sorted by slug
	Stylesheet string   // Relative path of the shared stylesheet, empty when absent
	Favicons   []string // Relative paths of favicon assets present in the root
	OgpImages  []string // Relative paths of card images under ogp/
}

// IntroPage is the standalone site introduction document.
type IntroPage struct {
	Path        string
	Body        string
	Raw         []byte
	Fingerprint string
	ModTime     time.Time
}

// Pages enumerates every fingerprinted page in canonical (slug, path) order:
// the intro, then each work's index document and chapters.
func (m *Manifest) Pages() []Page {
	var pages []Page
	if m.Intro != nil {
		pages = append(pages, Page{
			Ref:         PageRef{Work: "", Path: m.Intro.Path},
			Fingerprint: m.Intro.Fingerprint,
			ModTime:     m.Intro.ModTime,
		})
	}
	for _, w := range m.Works {
		pages = append(pages, Page{
			Ref:         PageRef{Work: w.Slug, Path: w.IndexPath},
			Fingerprint: w.IndexFingerprint,
			ModTime:     w.IndexModTime,
		})
		for _, ch := range w.Chapters {
			pages = append(pages, Page{
				Ref:         PageRef{Work: w.Slug, Path: ch.Path},
				Fingerprint: ch.Fingerprint,
				ModTime:     ch.ModTime,
			})
		}
	}
	return pages
}

// Fingerprint computes the canonical content fingerprint of a source document:
// SHA-256 over NFC-normalized bytes, hex encoded. Normalizing first keeps the
// fingerprint stable across editors that differ in Unicode composition.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(norm.NFC.Bytes(raw))
	return hex.EncodeToString(sum[:])
}

// TextLength counts the characters of a body excluding newlines, the measure
// shown as "N文字" on listing pages.
func TextLength(s string) int {
	n := 0
	for _, r := range norm.NFC.String(s) {
		if r == '\n' || r == '\r' {
			continue
		}
		n++
	}
	return n
}
