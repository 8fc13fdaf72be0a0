package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mogura/novelpress/internal/content"
)

func TestChooseOgImage_FallbackPriority(t *testing.T) {
	full := &content.Manifest{
		OgpImages: []string{"ogp/default.png", "ogp/mahou.png"},
		Favicons:  []string{"apple-touch-icon.png", "favicon-32x32.png"},
	}

	// Per-work image wins when present.
	require.Equal(t, "/ogp/mahou.png", chooseOgImage(full, "mahou"))
	// Unknown slug falls back to the site default card.
	require.Equal(t, "/ogp/default.png", chooseOgImage(full, "other"))
	// The site index has no slug; default card applies.
	require.Equal(t, "/ogp/default.png", chooseOgImage(full, ""))

	// No card images at all: touch icon, then the 32px favicon.
	icons := &content.Manifest{Favicons: []string{"apple-touch-icon.png"}}
	require.Equal(t, "/apple-touch-icon.png", chooseOgImage(icons, "mahou"))
	require.Equal(t, "/favicon-32x32.png", chooseOgImage(&content.Manifest{}, "mahou"))
}

func TestBuildHead_OgURLOnlyWithOrigin(t *testing.T) {
	withOrigin := Site{Title: "サイト", Origin: "https://example.com", Lang: "ja"}
	head := withOrigin.buildHead(headOptions{
		Title:   "作品",
		OGTitle: "作品",
		OGType:  "article",
		OGImage: "/ogp/default.png",
		OGURL:   "/mahou/",
	})
	require.Contains(t, head, `<meta property="og:url" content="https://example.com/mahou/">`)
	// The image is absolutized against the origin too.
	require.Contains(t, head, `<meta property="og:image" content="https://example.com/ogp/default.png">`)

	noOrigin := Site{Title: "サイト", Lang: "ja"}
	head = noOrigin.buildHead(headOptions{
		Title:   "作品",
		OGType:  "article",
		OGImage: "/ogp/default.png",
		OGURL:   "/mahou/",
	})
	require.NotContains(t, head, "og:url")
	require.Contains(t, head, `<meta property="og:image" content="/ogp/default.png">`)
}

func TestBuildHead_TwitterSiteOnlyWhenConfigured(t *testing.T) {
	with := Site{Title: "T", Twitter: "@mogura"}
	head := with.buildHead(headOptions{Title: "p"})
	require.Contains(t, head, `<meta name="twitter:site" content="@mogura">`)
	require.Contains(t, head, `twitter:card`)

	without := Site{Title: "T"}
	head = without.buildHead(headOptions{Title: "p"})
	require.NotContains(t, head, "twitter:site")
	require.Contains(t, head, `twitter:card`)
}

func TestBuildHead_StylesheetUsesRootPrefix(t *testing.T) {
	s := Site{Title: "T"}
	require.Contains(t, s.buildHead(headOptions{RootPrefix: ""}), `href="css/style.css"`)
	require.Contains(t, s.buildHead(headOptions{RootPrefix: "../"}), `href="../css/style.css"`)
}
