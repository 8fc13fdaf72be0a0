package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	nperrors "github.com/mogura/novelpress/internal/errors"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func fixtureTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTestFile(t, root, "self_intro.md", "# 自己紹介\nこんにちは。\n")
	writeTestFile(t, root, "css/style.css", "body { color: #333; }\n")
	writeTestFile(t, root, "mahou/index.md", string(validWorkIndexDoc()))
	writeTestFile(t, root, "mahou/001.md", "# title\n始まり\n# number\n1\n# content\n本文。\n")
	writeTestFile(t, root, "mahou/002.md", "# title\n続き\n# number\n2\n# content\nさらに本文。\n")
	return root
}

func TestScanner_Scan_BuildsManifest(t *testing.T) {
	root := fixtureTree(t)
	m, err := NewScanner(root).Scan()
	require.NoError(t, err)

	require.NotNil(t, m.Intro)
	require.Equal(t, IntroFileName, m.Intro.Path)
	require.Equal(t, StylesheetPath, m.Stylesheet)

	require.Len(t, m.Works, 1)
	w := m.Works[0]
	require.Equal(t, "mahou", w.Slug)
	require.Len(t, w.Chapters, 2)
	require.Equal(t, "mahou/001.md", w.Chapters[0].Path)

	// intro + index + 2 chapters
	require.Len(t, m.Pages(), 4)
}

func TestScanner_Scan_DeterministicAcrossRuns(t *testing.T) {
	root := fixtureTree(t)
	writeTestFile(t, root, "another/index.md", string(validWorkIndexDoc()))

	first, err := NewScanner(root).Scan()
	require.NoError(t, err)
	second, err := NewScanner(root).Scan()
	require.NoError(t, err)

	require.Equal(t, first.Pages(), second.Pages())
	require.Equal(t, "another", first.Works[0].Slug)
	require.Equal(t, "mahou", first.Works[1].Slug)
}

func TestScanner_Scan_MissingIntro_IsFatalScanError(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "css/style.css", "")

	_, err := NewScanner(root).Scan()
	require.Error(t, err)
	require.True(t, nperrors.IsCategory(err, nperrors.CategoryScan))
	require.True(t, nperrors.IsFatal(err))
}

func TestScanner_Scan_MissingRoot_IsFatalScanError(t *testing.T) {
	_, err := NewScanner(filepath.Join(t.TempDir(), "nope")).Scan()
	require.Error(t, err)
	require.True(t, nperrors.IsCategory(err, nperrors.CategoryScan))
}

func TestScanner_Scan_AssetDirsAreNotWorks(t *testing.T) {
	root := fixtureTree(t)
	writeTestFile(t, root, "images/banner.png", "png")

	m, err := NewScanner(root).Scan()
	require.NoError(t, err)
	require.Len(t, m.Works, 1)
}

func TestScanner_Scan_ChaptersWithoutIndex_IsFatal(t *testing.T) {
	root := fixtureTree(t)
	writeTestFile(t, root, "orphan/001.md", "# title\nT\n# number\n1\n# content\nC\n")

	_, err := NewScanner(root).Scan()
	require.Error(t, err)
	require.True(t, nperrors.IsCategory(err, nperrors.CategoryScan))
}

func TestScanner_Scan_BrokenWorkIndex_IsFatal(t *testing.T) {
	root := fixtureTree(t)
	writeTestFile(t, root, "broken/index.md", "# title\nT\n")
	writeTestFile(t, root, "broken/001.md", "# title\nT\n# number\n1\n# content\nC\n")

	_, err := NewScanner(root).Scan()
	require.Error(t, err)
	require.True(t, nperrors.IsCategory(err, nperrors.CategoryScan))
}

func TestScanner_Scan_InvalidChapter_DoesNotAbort(t *testing.T) {
	root := fixtureTree(t)
	writeTestFile(t, root, "mahou/003.md", "# title\n壊れた話\n# number\nfoo\n# content\nC\n")

	m, err := NewScanner(root).Scan()
	require.NoError(t, err)
	require.Len(t, m.Works[0].Chapters, 3)

	last := m.Works[0].Chapters[2]
	require.True(t, last.Invalid)
	require.Equal(t, "mahou/003.md", last.Path)
}

func TestScanner_Scan_DraftsAreSkipped(t *testing.T) {
	root := fixtureTree(t)
	writeTestFile(t, root, "mahou/_draft.md", "work in progress")

	m, err := NewScanner(root).Scan()
	require.NoError(t, err)
	require.Len(t, m.Works[0].Chapters, 2)
}

func TestScanner_Scan_CollectsAssets(t *testing.T) {
	root := fixtureTree(t)
	writeTestFile(t, root, "favicon-32x32.png", "png")
	writeTestFile(t, root, "ogp/mahou.png", "png")
	writeTestFile(t, root, "ogp/default.png", "png")
	writeTestFile(t, root, "ogp/notes.txt", "not an image")

	m, err := NewScanner(root).Scan()
	require.NoError(t, err)
	require.Equal(t, []string{"favicon-32x32.png"}, m.Favicons)
	require.Equal(t, []string{"ogp/default.png", "ogp/mahou.png"}, m.OgpImages)
}
