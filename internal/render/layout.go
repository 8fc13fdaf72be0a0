package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/mogura/novelpress/internal/content"
)

// Site carries the site-wide values every page's layout needs.
type Site struct {
	Title   string
	Origin  string // Absolute origin for OGP URLs; empty disables og:url
	Twitter string
	Lang    string
}

func esc(s string) string { return html.EscapeString(s) }

// absoluteURL joins a root-relative path onto the configured origin.
// Returns "" when no origin is configured.
func (s Site) absoluteURL(pathFromRoot string) string {
	if s.Origin == "" {
		return ""
	}
	return strings.TrimRight(s.Origin, "/") + pathFromRoot
}

// headOptions parameterizes the shared <head> block.
type headOptions struct {
	Title      string // <title> text
	RootPrefix string // "" on root pages, "../" one level down
	OGTitle    string
	OGDesc     string
	OGType     string // website | article
	OGImage    string // Site-root-relative image path
	OGURL      string // Site-root-relative canonical path, empty disables og:url
}

// buildHead renders the unified <head>: favicons, OGP and Twitter cards, and
// the shared stylesheet reference.
func (s Site) buildHead(o headOptions) string {
	var b strings.Builder

	ogURL := ""
	if o.OGURL != "" {
		if abs := s.absoluteURL(o.OGURL); abs != "" {
			ogURL = fmt.Sprintf("\n    <meta property=\"og:url\" content=\"%s\">", esc(abs))
		}
	}
	ogImage := o.OGImage
	if abs := s.absoluteURL(o.OGImage); abs != "" {
		ogImage = abs
	}

	twitterMeta := ""
	if s.Twitter != "" {
		twitterMeta = fmt.Sprintf("\n    <meta name=\"twitter:site\" content=\"%s\">", esc(s.Twitter))
	}

	fmt.Fprintf(&b, `<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>

    <link rel="icon" href="/favicon.ico" sizes="any">
    <link rel="icon" type="image/png" sizes="32x32" href="/favicon-32x32.png">
    <link rel="icon" type="image/png" sizes="16x16" href="/favicon-16x16.png">
    <link rel="apple-touch-icon" sizes="180x180" href="/apple-touch-icon.png">

    <meta property="og:site_name" content="%s">
    <meta property="og:title" content="%s">
    <meta property="og:description" content="%s">
    <meta property="og:type" content="%s">
    <meta property="og:image" content="%s">%s
    <meta name="twitter:card" content="summary_large_image">%s

    <link rel="stylesheet" href="%scss/style.css">
</head>`,
		esc(o.Title), esc(s.Title), esc(o.OGTitle), esc(o.OGDesc), esc(o.OGType),
		esc(ogImage), ogURL, twitterMeta, o.RootPrefix)

	return b.String()
}

// siteHeader renders the shared banner with the site name and the last update
// date of the whole site.
func (s Site) siteHeader(rootPrefix, lastUpdatedDate string) string {
	return fmt.Sprintf(`<header class="site-header">
    <div class="site-header-content">
        <h1 class="site-name"><a href="%sindex.html">%s</a></h1>
        <p class="last-update">%s 更新</p>
    </div>
</header>`, rootPrefix, esc(s.Title), esc(lastUpdatedDate))
}

// statusBadge renders the publication status inside an oval badge.
func statusBadge(w *content.Work) string {
	cls := "status-other"
	switch w.Status {
	case content.StatusOngoing:
		cls = "status-ongoing"
	case content.StatusComplete:
		cls = "status-complete"
	case content.StatusHiatus:
		cls = "status-paused"
	}
	return fmt.Sprintf(`<span class="status-badge %s">%s</span>`, cls, esc(w.StatusLabel))
}

// joinTags renders the tag list as "tag1 | tag2 | tag3".
func joinTags(tags []string) string {
	return strings.Join(tags, " | ")
}

// chooseOgImage picks the OGP card image for a page: the per-work image when
// present, then the site default, then the touch icon, then the 32px favicon.
// The returned path is site-root-relative.
func chooseOgImage(m *content.Manifest, slug string) string {
	has := func(rel string) bool {
		for _, p := range m.OgpImages {
			if p == rel {
				return true
			}
		}
		for _, p := range m.Favicons {
			if p == rel {
				return true
			}
		}
		return false
	}

	if slug != "" && has("ogp/"+slug+".png") {
		return "/ogp/" + slug + ".png"
	}
	if has("ogp/default.png") {
		return "/ogp/default.png"
	}
	if has("apple-touch-icon.png") {
		return "/apple-touch-icon.png"
	}
	return "/favicon-32x32.png"
}
