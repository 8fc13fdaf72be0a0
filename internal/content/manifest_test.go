package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFingerprint_SensitiveToContent(t *testing.T) {
	a := Fingerprint([]byte("# title\nA\n"))
	b := Fingerprint([]byte("# title\nB\n"))
	require.NotEqual(t, a, b)
	require.Equal(t, a, Fingerprint([]byte("# title\nA\n")))
}

func TestFingerprint_StableAcrossUnicodeComposition(t *testing.T) {
	composed := []byte("か\u304c")   // が precomposed
	decomposed := []byte("か\u304b\u3099") // が as base + combining voicing mark
	require.Equal(t, Fingerprint(composed), Fingerprint(decomposed))
}

func TestTextLength_ExcludesNewlines(t *testing.T) {
	require.Equal(t, 5, TextLength("あいう\nえお"))
	require.Equal(t, 5, TextLength("あいう\r\nえお"))
	require.Equal(t, 0, TextLength(""))
}

func TestManifest_Pages_CanonicalOrder(t *testing.T) {
	now := time.Now()
	m := &Manifest{
		Intro: &IntroPage{Path: "self_intro.md", Fingerprint: "fp-intro", ModTime: now},
		Works: []*Work{
			{
				Slug:             "alpha",
				IndexPath:        "alpha/index.md",
				IndexFingerprint: "fp-a",
				Chapters: []*Chapter{
					{Path: "alpha/001.md", Fingerprint: "fp-a1"},
					{Path: "alpha/002.md", Fingerprint: "fp-a2"},
				},
			},
			{
				Slug:             "beta",
				IndexPath:        "beta/index.md",
				IndexFingerprint: "fp-b",
			},
		},
	}

	pages := m.Pages()
	var got []string
	for _, p := range pages {
		got = append(got, p.Ref.Path)
	}
	require.Equal(t, []string{"self_intro.md", "alpha/index.md", "alpha/001.md", "alpha/002.md", "beta/index.md"}, got)

	// Enumeration is deterministic across calls.
	again := m.Pages()
	require.Equal(t, pages, again)
}

func TestPageRef_Less_OrdersByWorkThenPath(t *testing.T) {
	require.True(t, PageRef{Work: "a", Path: "z"}.Less(PageRef{Work: "b", Path: "a"}))
	require.True(t, PageRef{Work: "a", Path: "a"}.Less(PageRef{Work: "a", Path: "b"}))
	require.False(t, PageRef{Work: "b", Path: "a"}.Less(PageRef{Work: "a", Path: "z"}))
}
