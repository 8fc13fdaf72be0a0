package verify

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	nperrors "github.com/mogura/novelpress/internal/errors"
	"github.com/mogura/novelpress/internal/logfields"
)

// BrokenLink is one internal reference that does not resolve to a file in the
// output tree.
type BrokenLink struct {
	Source string // Output-relative path of the page holding the link
	Link   Link
}

func (b BrokenLink) String() string {
	return fmt.Sprintf("%s: <%s %s=%q> does not resolve", b.Source, b.Link.Tag, b.Link.Attribute, b.Link.URL)
}

// Service walks an output tree and verifies its internal links.
type Service struct {
	root string
}

// NewService creates a verifier for the given output root.
func NewService(root string) *Service {
	return &Service{root: root}
}

// Run checks every HTML file in the tree. It returns the broken links found;
// err is non-nil only when the tree itself cannot be read.
func (s *Service) Run() ([]BrokenLink, error) {
	if _, err := os.Stat(s.root); err != nil {
		return nil, nperrors.Wrap(err, nperrors.CategoryAssembly, nperrors.SeverityFatal, "output tree not found").
			WithContext("path", s.root)
	}

	var broken []BrokenLink
	checked := 0
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		links, err := ExtractLinks(p)
		if err != nil {
			return err
		}
		checked++
		for _, l := range links {
			if !l.IsInternal {
				continue
			}
			if !s.resolves(rel, l.URL) {
				broken = append(broken, BrokenLink{Source: rel, Link: l})
			}
		}
		return nil
	})
	if err != nil {
		return nil, nperrors.Wrap(err, nperrors.CategoryAssembly, nperrors.SeverityFatal, "failed to walk output tree")
	}

	slog.Info("Link verification complete",
		logfields.Path(s.root),
		slog.Int("pages", checked),
		slog.Int("broken", len(broken)))
	return broken, nil
}

// resolves reports whether an internal link from the page at rel points at an
// existing file. Directory targets resolve through their index.html.
func (s *Service) resolves(rel, raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return false
	}

	var target string
	if strings.HasPrefix(u.Path, "/") {
		target = strings.TrimPrefix(u.Path, "/")
	} else {
		target = path.Join(path.Dir(rel), u.Path)
	}
	if target == "" || strings.HasPrefix(target, "..") {
		return false
	}

	full := filepath.Join(s.root, filepath.FromSlash(target))
	info, err := os.Stat(full)
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err := os.Stat(filepath.Join(full, "index.html"))
		return err == nil
	}
	return true
}
