// Package render converts manifest pages into complete HTML documents. It is
// pure: all filesystem input comes in through the manifest, all output leaves
// as byte slices for the assembler to write.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/mogura/novelpress/internal/content"
	nperrors "github.com/mogura/novelpress/internal/errors"
)

// Dates supplies per-page update timestamps, derived by the history tracker
// from the ledger. Rendering stays a pure function of manifest plus dates.
type Dates struct {
	Pages map[content.PageRef]time.Time
	Site  time.Time
}

func (d Dates) siteDate() string {
	if d.Site.IsZero() {
		return ""
	}
	return d.Site.Format("2006-01-02")
}

func (d Dates) pageDate(ref content.PageRef) string {
	if t, ok := d.Pages[ref]; ok && !t.IsZero() {
		return t.Format("2006-01-02")
	}
	return d.siteDate()
}

func (d Dates) workTime(w *content.Work) time.Time {
	latest := d.Pages[content.PageRef{Work: w.Slug, Path: w.IndexPath}]
	for _, ch := range w.Chapters {
		if t := d.Pages[content.PageRef{Work: w.Slug, Path: ch.Path}]; t.After(latest) {
			latest = t
		}
	}
	return latest
}

// Page is one rendered output document.
type Page struct {
	Path    string // Output-tree-relative path, slash-separated
	HTML    []byte
	Warning error // RenderWarning when the page was degraded, nil otherwise
}

// Renderer turns manifest entries into HTML documents.
type Renderer struct {
	md   goldmark.Markdown
	site Site
}

// New creates a renderer for the given site. Raw HTML in authored Markdown is
// passed through; the content tree is single-author.
func New(site Site) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(Ruby),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	return &Renderer{md: md, site: site}
}

// markdown converts a Markdown fragment to HTML.
func (r *Renderer) markdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// markdownOrLiteral converts a fragment, degrading to escaped literal text on
// conversion failure instead of aborting.
func (r *Renderer) markdownOrLiteral(src, page string) (string, error) {
	out, err := r.markdown(src)
	if err == nil {
		return out, nil
	}
	warning := nperrors.RenderWarning(fmt.Sprintf("%s: markdown conversion failed, published as literal text: %v", page, err))
	return literalHTML(src), warning
}

func literalHTML(src string) string {
	return fmt.Sprintf("<pre class=\"raw-source\">%s</pre>", esc(src))
}

// inlineRuby applies only the ruby annotation transform to a single-line
// string such as a title, without paragraph wrapping.
func inlineRuby(s string) string {
	var b strings.Builder
	rest := s
	for {
		bar := strings.IndexByte(rest, '|')
		if bar < 0 {
			b.WriteString(esc(rest))
			return b.String()
		}
		open := strings.IndexByte(rest[bar:], '<')
		if open < 0 {
			b.WriteString(esc(rest))
			return b.String()
		}
		open += bar
		base := rest[bar+1 : open]
		if base == "" || strings.ContainsAny(base, "|") {
			b.WriteString(esc(rest[:bar+1]))
			rest = rest[bar+1:]
			continue
		}
		close_ := strings.IndexByte(rest[open:], '>')
		if close_ <= 1 {
			b.WriteString(esc(rest[:bar+1]))
			rest = rest[bar+1:]
			continue
		}
		close_ += open
		reading := rest[open+1 : close_]
		b.WriteString(esc(rest[:bar]))
		fmt.Fprintf(&b, "<ruby>%s<rt>%s</rt></ruby>", esc(base), esc(reading))
		rest = rest[close_+1:]
	}
}

// truncateText flattens newlines and truncates to limit runes, used for card
// descriptions.
func truncateText(s string, limit int) string {
	flat := strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}
	return string(runes[:limit]) + "..."
}

// SortedWorks returns the works in site-index order: newest update first, then
// status priority, then title.
func SortedWorks(works []*content.Work, d Dates) []*content.Work {
	out := append([]*content.Work(nil), works...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := d.workTime(out[i]), d.workTime(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		if pi, pj := out[i].Status.Priority(), out[j].Status.Priority(); pi != pj {
			return pi < pj
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// SiteIndex renders the site's top page: the self introduction followed by the
// work list.
func (r *Renderer) SiteIndex(m *content.Manifest, d Dates) Page {
	page := Page{Path: "index.html"}

	introHTML, warning := r.markdownOrLiteral(m.Intro.Body, m.Intro.Path)
	page.Warning = warning

	var items []string
	for _, w := range SortedWorks(m.Works, d) {
		outlineHTML, _ := r.markdownOrLiteral(truncateText(w.Outline, 150), w.IndexPath)
		items = append(items, fmt.Sprintf(`<article class="novel-item">
    <h3 class="novel-title"><a href="%s/index.html">%s</a></h3>
    <div class="novel-details">
        <p class="abstract">%s</p>
        <p class="status">%s</p>
        <p class="tags">%s</p>
        <p class="metadata">%s 更新 | 全%d話 | 合計%d文字</p>
    </div>
</article>`,
			esc(w.Slug), inlineRuby(w.Title), outlineHTML, statusBadge(w),
			esc(joinTags(w.Tags)),
			d.workTime(w).Format("2006-01-02"), countValid(w), w.TotalLength))
	}

	listHTML := ""
	if len(items) > 0 {
		sep := "\n<hr class=\"separator\">\n"
		listHTML = fmt.Sprintf(`
<section class="novel-list">
    <h2 class="section-title">小説一覧</h2>
    %s
</section>`, strings.Join(items, sep))
	}

	head := r.site.buildHead(headOptions{
		Title:      r.site.Title,
		RootPrefix: "",
		OGTitle:    r.site.Title,
		OGDesc:     truncateText(m.Intro.Body, 120),
		OGType:     "website",
		OGImage:    chooseOgImage(m, ""),
		OGURL:      "/",
	})

	page.HTML = []byte(fmt.Sprintf(`<!DOCTYPE html>
<html lang="%s">
%s
<body>
%s
<main class="content-wrapper">
    <section class="self-introduction">
        <h2 class="section-title">自己紹介</h2>
        <div class="intro-body">
            %s
        </div>
    </section>
    %s
</main>
</body>
</html>
`, esc(r.site.Lang), head, r.site.siteHeader("", d.siteDate()), introHTML, listHTML))

	return page
}

// WorkIndex renders a work's top page: metadata header, outline, external
// links, and the table of contents in declared episode order.
func (r *Renderer) WorkIndex(m *content.Manifest, w *content.Work, d Dates) Page {
	page := Page{Path: w.Slug + "/index.html"}

	outlineHTML, warning := r.markdownOrLiteral(w.Outline, w.IndexPath)
	page.Warning = warning

	externalHTML := `
<section class="external-sites-section">
    <h2 class="section-title">他公開サイト</h2>
    <p>当サイト限定公開作品です。</p>
</section>`
	if len(w.ExternalLinks) > 0 {
		// Render the whole list in one conversion so the items come out as a
		// single <ul>, not one paragraph per link.
		var list strings.Builder
		for _, item := range w.ExternalLinks {
			list.WriteString("- " + item + "\n")
		}
		listHTML, _ := r.markdownOrLiteral(list.String(), w.IndexPath)
		externalHTML = fmt.Sprintf(`
<section class="external-sites-section">
    <h2 class="section-title">他公開サイト</h2>
    %s
</section>`, listHTML)
	}

	tocHTML := r.tableOfContents(w, d)

	head := r.site.buildHead(headOptions{
		Title:      w.Title + " - " + r.site.Title,
		RootPrefix: "../",
		OGTitle:    w.Title,
		OGDesc:     truncateText(w.Outline, 120),
		OGType:     "article",
		OGImage:    chooseOgImage(m, w.Slug),
		OGURL:      "/" + w.Slug + "/",
	})

	workDate := d.workTime(w).Format("2006-01-02")
	page.HTML = []byte(fmt.Sprintf(`<!DOCTYPE html>
<html lang="%s">
%s
<body>
%s
<main class="content-wrapper">
    <section class="novel-info-header">
        <div class="novel-info-content">
            <h2 class="novel-title-main">%s</h2>
            <p class="status">%s</p>
            <p class="tags">%s</p>
            <p class="metadata">%s 更新 | 全%d話 | 合計%d文字</p>
        </div>
    </section>

    <section class="abstract-section">
        <h2 class="section-title">あらすじ</h2>
        <div class="abstract-body">
            %s
        </div>
    </section>
%s

    <section class="table-of-contents">
        <h2 class="section-title">目次</h2>
        <div class="toc-body">
            %s
        </div>
    </section>
</main>
</body>
</html>
`, esc(r.site.Lang), head, r.site.siteHeader("../", d.siteDate()), inlineRuby(w.Title),
		statusBadge(w), esc(joinTags(w.Tags)), workDate, countValid(w), w.TotalLength,
		outlineHTML, externalHTML, tocHTML))

	return page
}

// tableOfContents lists episodes in declared order, grouped when the work
// declares chapter groups. Invalid chapters are appended at the end so every
// published page stays reachable.
func (r *Renderer) tableOfContents(w *content.Work, d Dates) string {
	indexOf := displayIndexes(w)
	var b strings.Builder

	entry := func(ch *content.Chapter) string {
		idx := indexOf[ch.Path]
		title := ch.Title
		if title == "" {
			title = ch.Path
		}
		date := d.pageDate(content.PageRef{Work: w.Slug, Path: ch.Path})
		return fmt.Sprintf(`<li><a href="%d.html" class="chapter-link">%d話 %s</a><span class="metadata">%s 更新 | %d文字</span></li>`,
			idx, idx, inlineRuby(title), esc(date), ch.Length)
	}

	grouped := w.GroupedChapters()
	if len(w.Groups) > 0 {
		for i, g := range grouped {
			fmt.Fprintf(&b, "<h3 class=\"chapter-title\">%d章: %s</h3>\n", i+1, inlineRuby(g.Title))
			b.WriteString("<ul>\n")
			for _, ch := range g.Chapters {
				b.WriteString(entry(ch) + "\n")
			}
			b.WriteString("</ul>\n")
		}
	} else {
		b.WriteString("<ul>\n")
		for _, ch := range grouped[0].Chapters {
			b.WriteString(entry(ch) + "\n")
		}
		b.WriteString("</ul>\n")
	}

	var invalid []*content.Chapter
	for _, ch := range w.Chapters {
		if ch.Invalid {
			invalid = append(invalid, ch)
		}
	}
	if len(invalid) > 0 {
		b.WriteString("<ul>\n")
		for _, ch := range invalid {
			b.WriteString(entry(ch) + "\n")
		}
		b.WriteString("</ul>\n")
	}

	return b.String()
}

// Chapter renders one episode page with prev/next navigation. Invalid
// chapters publish their source as escaped literal text with a warning.
func (r *Renderer) Chapter(m *content.Manifest, w *content.Work, ch *content.Chapter, d Dates) Page {
	indexOf := displayIndexes(w)
	idx := indexOf[ch.Path]
	page := Page{Path: fmt.Sprintf("%s/%d.html", w.Slug, idx)}

	title := ch.Title
	if title == "" {
		title = ch.Path
	}
	titleText := fmt.Sprintf("%d話 %s", idx, title)

	var bodyHTML string
	if ch.Invalid {
		bodyHTML = literalHTML(string(ch.Raw))
		page.Warning = nperrors.RenderWarning(fmt.Sprintf("%s: invalid chapter published as literal text: %s", ch.Path, strings.Join(ch.Problems, "; ")))
	} else {
		bodyHTML, page.Warning = r.markdownOrLiteral(ch.Body, ch.Path)
	}

	prevHTML, nextHTML := "", ""
	if idx > 1 {
		prevHTML = fmt.Sprintf(`<a href="%d.html">前の話</a>`, idx-1)
	}
	if idx < len(w.Chapters) {
		nextHTML = fmt.Sprintf(`<a href="%d.html">次の話</a>`, idx+1)
	}

	nav := fmt.Sprintf(`<nav class="chapter-navigation">
    <ul class="nav-list">
        <li class="prev-chapter">%s</li>
        <li class="novel-top-link"><a href="index.html">作品トップへ</a></li>
        <li class="next-chapter">%s</li>
    </ul>
</nav>`, prevHTML, nextHTML)

	head := r.site.buildHead(headOptions{
		Title:      titleText + " - " + w.Title,
		RootPrefix: "../",
		OGTitle:    titleText + " - " + w.Title,
		OGDesc:     truncateText(ch.Body, 110),
		OGType:     "article",
		OGImage:    chooseOgImage(m, w.Slug),
		OGURL:      fmt.Sprintf("/%s/%d.html", w.Slug, idx),
	})

	date := d.pageDate(content.PageRef{Work: w.Slug, Path: ch.Path})
	page.HTML = []byte(fmt.Sprintf(`<!DOCTYPE html>
<html lang="%s">
%s
<body>
%s
<main class="content-wrapper chapter-page">
    <section class="chapter-info-header">
        <div class="chapter-info-content">
            <h3 class="chapter-title-main">%s</h3>
            <p class="chapter-metadata-chapter">%s 更新 | %d文字</p>
            %s
        </div>
    </section>
    <article class="novel-body">
        %s
    </article>
</main>
</body>
</html>
`, esc(r.site.Lang), head, r.site.siteHeader("../", d.siteDate()), inlineRuby(titleText),
		esc(date), ch.Length, nav, bodyHTML))

	return page
}

// displayIndexes maps each chapter path to its 1-based display index in the
// work's presentation order.
func displayIndexes(w *content.Work) map[string]int {
	out := make(map[string]int, len(w.Chapters))
	for i, ch := range w.Chapters {
		out[ch.Path] = i + 1
	}
	return out
}

func countValid(w *content.Work) int {
	n := 0
	for _, ch := range w.Chapters {
		if !ch.Invalid {
			n++
		}
	}
	return n
}
