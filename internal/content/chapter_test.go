package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validChapterDoc() []byte {
	return []byte("# title\n始まり\n# number\n1\n# content\n魔法の話。\nもう一行。\n")
}

func TestParseChapter_Valid_PopulatesFields(t *testing.T) {
	mod := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ch := ParseChapter("work/001.md", validChapterDoc(), mod)

	require.False(t, ch.Invalid)
	require.Empty(t, ch.Problems)
	require.Equal(t, "work/001.md", ch.Path)
	require.Equal(t, "始まり", ch.Title)
	require.Equal(t, 1, ch.Number)
	require.Equal(t, "魔法の話。\nもう一行。", ch.Body)
	require.Equal(t, mod, ch.ModTime)
	require.NotEmpty(t, ch.Fingerprint)
	// Newlines do not count toward length.
	require.Equal(t, TextLength("魔法の話。もう一行。"), ch.Length)
}

func TestParseChapter_MissingSections_FlaggedInvalid(t *testing.T) {
	ch := ParseChapter("work/001.md", []byte("# title\nOnly a title\n"), time.Now())
	require.True(t, ch.Invalid)
	require.Contains(t, ch.Problems, "missing required header: number")
	require.Contains(t, ch.Problems, "missing required header: content")
}

func TestParseChapter_UnexpectedHeader_FlaggedInvalid(t *testing.T) {
	doc := []byte("# title\nT\n# number\n1\n# content\nC\n# author\nme\n")
	ch := ParseChapter("work/001.md", doc, time.Now())
	require.True(t, ch.Invalid)
	require.Contains(t, ch.Problems, "unexpected header: author")
}

func TestParseChapter_NonIntegerNumber_FlaggedInvalid(t *testing.T) {
	doc := []byte("# title\nT\n# number\none\n# content\nC\n")
	ch := ParseChapter("work/001.md", doc, time.Now())
	require.True(t, ch.Invalid)
	require.Contains(t, ch.Problems, "`number` must be an integer")
}

func TestParseChapter_EmptyContent_FlaggedInvalid(t *testing.T) {
	doc := []byte("# title\nT\n# number\n1\n# content\n\n")
	ch := ParseChapter("work/001.md", doc, time.Now())
	require.True(t, ch.Invalid)
	require.Contains(t, ch.Problems, "`content` must not be empty")
}

func TestParseChapter_DuplicateHeader_FlaggedInvalid(t *testing.T) {
	doc := []byte("# title\nA\n# title\nB\n# number\n1\n# content\nC\n")
	ch := ParseChapter("work/001.md", doc, time.Now())
	require.True(t, ch.Invalid)
	require.NotEmpty(t, ch.Problems)
}

func TestParseChapter_Invalid_KeepsRawForDegradedRendering(t *testing.T) {
	doc := []byte("# title\nBroken\n# number\nx\n# content\nstill here\n")
	ch := ParseChapter("work/bad.md", doc, time.Now())
	require.True(t, ch.Invalid)
	require.Equal(t, doc, ch.Raw)
	require.Equal(t, "Broken", ch.Title)
	require.NotEmpty(t, ch.Fingerprint)
}
