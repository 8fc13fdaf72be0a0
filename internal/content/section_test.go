package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSections(t *testing.T) {
	t.Run("splits document by top-level headers", func(t *testing.T) {
		doc := []byte("# title\nMy Story\n# outline\nLine one.\nLine two.\n")
		s, err := ParseSections(doc)
		require.NoError(t, err)
		require.Equal(t, []string{"title", "outline"}, s.Keys())

		title, ok := s.Get("title")
		require.True(t, ok)
		require.Equal(t, "My Story", title)

		outline, ok := s.Get("outline")
		require.True(t, ok)
		require.Equal(t, "Line one.\nLine two.", outline)
	})

	t.Run("content before first header is ignored", func(t *testing.T) {
		doc := []byte("preamble text\n# title\nValue\n")
		s, err := ParseSections(doc)
		require.NoError(t, err)
		require.Equal(t, 1, s.Len())
		v, _ := s.Get("title")
		require.Equal(t, "Value", v)
	})

	t.Run("lower-level headers stay in the enclosing section", func(t *testing.T) {
		doc := []byte("# content\ntext\n## scene two\nmore text\n")
		s, err := ParseSections(doc)
		require.NoError(t, err)
		v, _ := s.Get("content")
		require.Equal(t, "text\n## scene two\nmore text", v)
	})

	t.Run("duplicate header is an error", func(t *testing.T) {
		doc := []byte("# title\nA\n# title\nB\n")
		_, err := ParseSections(doc)
		require.Error(t, err)
		var dup *DuplicateSectionError
		require.True(t, errors.As(err, &dup))
		require.Equal(t, "title", dup.Key)
	})

	t.Run("empty document has no sections", func(t *testing.T) {
		s, err := ParseSections(nil)
		require.NoError(t, err)
		require.Equal(t, 0, s.Len())
	})

	t.Run("hash without space is not a header", func(t *testing.T) {
		doc := []byte("# content\n#hashtag line\n")
		s, err := ParseSections(doc)
		require.NoError(t, err)
		v, _ := s.Get("content")
		require.Equal(t, "#hashtag line", v)
	})
}
