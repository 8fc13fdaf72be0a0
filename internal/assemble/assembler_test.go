package assemble

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mogura/novelpress/internal/content"
	nperrors "github.com/mogura/novelpress/internal/errors"
	"github.com/mogura/novelpress/internal/render"
)

func contentRootWithAssets(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "css", "style.css"), []byte("body {}\n"), 0o644))
	return root
}

func testPages() []render.Page {
	return []render.Page{
		{Path: "index.html", HTML: []byte("<html>top</html>")},
		{Path: "mahou/index.html", HTML: []byte("<html>work</html>")},
		{Path: "mahou/1.html", HTML: []byte("<html>ch1</html>")},
	}
}

func TestPublish_WritesPagesAndAssets(t *testing.T) {
	contentRoot := contentRootWithAssets(t)
	output := filepath.Join(t.TempDir(), "public")
	m := &content.Manifest{Stylesheet: "css/style.css"}

	result, err := New(contentRoot, output).Publish(m, testPages())
	require.NoError(t, err)
	require.Len(t, result.Published, 3)
	require.Empty(t, result.Failed)

	for _, rel := range []string{"index.html", "mahou/index.html", "mahou/1.html", "css/style.css"} {
		_, err := os.Stat(filepath.Join(output, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
	}
}

func TestPublish_ReplacesPreviousTree(t *testing.T) {
	contentRoot := contentRootWithAssets(t)
	output := filepath.Join(t.TempDir(), "public")
	m := &content.Manifest{Stylesheet: "css/style.css"}
	a := New(contentRoot, output)

	_, err := a.Publish(m, append(testPages(), render.Page{Path: "stale.html", HTML: []byte("old")}))
	require.NoError(t, err)

	_, err = a.Publish(m, testPages())
	require.NoError(t, err)

	// Pages from the previous publish that no longer exist are gone.
	_, err = os.Stat(filepath.Join(output, "stale.html"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(output, "index.html"))
	require.NoError(t, err)

	// No staging or backup residue next to the output tree.
	entries, err := os.ReadDir(filepath.Dir(output))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestPublish_RepeatedRunsProduceIdenticalTree(t *testing.T) {
	contentRoot := contentRootWithAssets(t)
	output := filepath.Join(t.TempDir(), "public")
	m := &content.Manifest{Stylesheet: "css/style.css"}
	a := New(contentRoot, output)

	_, err := a.Publish(m, testPages())
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(output, "index.html"))
	require.NoError(t, err)

	_, err = a.Publish(m, testPages())
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(output, "index.html"))
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestPublish_MissingStylesheet_FatalKeepsPreviousTree(t *testing.T) {
	contentRoot := contentRootWithAssets(t)
	output := filepath.Join(t.TempDir(), "public")
	a := New(contentRoot, output)

	_, err := a.Publish(&content.Manifest{Stylesheet: "css/style.css"}, testPages())
	require.NoError(t, err)

	_, err = a.Publish(&content.Manifest{}, testPages())
	require.Error(t, err)
	require.True(t, nperrors.IsCategory(err, nperrors.CategoryAssembly))
	require.True(t, nperrors.IsFatal(err))

	// Previous publish is untouched.
	_, statErr := os.Stat(filepath.Join(output, "index.html"))
	require.NoError(t, statErr)
}

func TestPublish_NoPages_Fatal(t *testing.T) {
	contentRoot := contentRootWithAssets(t)
	output := filepath.Join(t.TempDir(), "public")

	_, err := New(contentRoot, output).Publish(&content.Manifest{Stylesheet: "css/style.css"}, nil)
	require.Error(t, err)
	require.True(t, nperrors.IsFatal(err))

	_, statErr := os.Stat(output)
	require.True(t, os.IsNotExist(statErr))
}

func TestPublish_CopiesFaviconsAndOgpImages(t *testing.T) {
	contentRoot := contentRootWithAssets(t)
	require.NoError(t, os.WriteFile(filepath.Join(contentRoot, "favicon.ico"), []byte("ico"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(contentRoot, "ogp"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(contentRoot, "ogp", "default.png"), []byte("png"), 0o644))

	output := filepath.Join(t.TempDir(), "public")
	m := &content.Manifest{
		Stylesheet: "css/style.css",
		Favicons:   []string{"favicon.ico"},
		OgpImages:  []string{"ogp/default.png"},
	}

	_, err := New(contentRoot, output).Publish(m, testPages())
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(output, "favicon.ico"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(output, "ogp", "default.png"))
	require.NoError(t, err)
}
