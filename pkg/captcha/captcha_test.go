package captcha

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesImageAndText(t *testing.T) {
	gen := NewGenerator(4, 150, 60)

	text, raw, err := gen.Generate()
	require.NoError(t, err)
	assert.Len(t, text, 4)
	for _, r := range text {
		assert.True(t, strings.ContainsRune(Charset, r), "unexpected rune %q", r)
	}

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 150, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())
}

func TestGenerateVariesText(t *testing.T) {
	gen := NewGenerator(0, 0, 0)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		text, _, err := gen.Generate()
		require.NoError(t, err)
		seen[text] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestCharsetExcludesAmbiguousGlyphs(t *testing.T) {
	for _, r := range "0O1lIi" {
		assert.False(t, strings.ContainsRune(Charset, r), "charset contains %q", r)
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("aB3k", "ab3K"))
	assert.True(t, Matches("aB3k", " AB3K "))
	assert.False(t, Matches("aB3k", "ab3"))
	assert.False(t, Matches("", ""))
}
