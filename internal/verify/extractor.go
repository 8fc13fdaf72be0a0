// Package verify checks a published output tree for broken intra-site
// references: nav links, stylesheet and favicon hrefs, and image sources that
// do not resolve to a file in the tree.
package verify

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	nperrors "github.com/mogura/novelpress/internal/errors"
)

// Link is one reference extracted from an HTML document.
type Link struct {
	URL        string // The raw href or src value
	Tag        string // Element the link came from (a, img, link)
	Attribute  string // Attribute holding the value (href, src)
	IsInternal bool   // True when the link targets this site
}

// ExtractLinks extracts all links from one HTML file.
func ExtractLinks(htmlPath string) ([]Link, error) {
	f, err := os.Open(filepath.Clean(htmlPath))
	if err != nil {
		return nil, nperrors.Wrap(err, nperrors.CategoryAssembly, nperrors.SeverityError, "failed to open HTML file").
			WithContext("path", htmlPath)
	}
	defer f.Close()
	return ExtractLinksFromReader(f)
}

// ExtractLinksFromReader extracts all links from an HTML stream.
func ExtractLinksFromReader(r io.Reader) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nperrors.Wrap(err, nperrors.CategoryValidation, nperrors.SeverityError, "failed to parse HTML")
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a", "link":
				if href := getAttr(n, "href"); href != "" {
					links = append(links, Link{URL: href, Tag: n.Data, Attribute: "href", IsInternal: isInternal(href)})
				}
			case "img":
				if src := getAttr(n, "src"); src != "" {
					links = append(links, Link{URL: src, Tag: "img", Attribute: "src", IsInternal: isInternal(src)})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// isInternal reports whether the link stays inside the published tree.
// Absolute URLs with a scheme or host, mailto links, and pure fragments are
// external to verification.
func isInternal(raw string) bool {
	if raw == "" || strings.HasPrefix(raw, "#") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}
