package core

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("call the plumber tomorrow")
	assert.Equal(t, a, Fingerprint("call the plumber tomorrow"))
	assert.NotEqual(t, a, Fingerprint("call the plumber today"))
	assert.True(t, strings.HasSuffix(a, "-25"))
	assert.Equal(t, "0-0", Fingerprint(""))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "send the report", NormalizeKey("  Send\tthe   REPORT "))
}

func TestSplitChunks(t *testing.T) {
	t.Run("covers the text with contiguous offsets", func(t *testing.T) {
		text := strings.Repeat("abcdefghij", 25)
		chunks := splitChunks(text, 100)
		require.Len(t, chunks, 3)

		var rebuilt strings.Builder
		for i, c := range chunks {
			assert.Equal(t, rebuilt.Len(), c.offset, "chunk %d", i)
			rebuilt.WriteString(c.text)
		}
		assert.Equal(t, text, rebuilt.String())
	})

	t.Run("never splits a rune", func(t *testing.T) {
		text := strings.Repeat("é", 50)
		for _, c := range splitChunks(text, 7) {
			assert.True(t, utf8.ValidString(c.text))
			assert.LessOrEqual(t, len(c.text), 7)
		}
	})
}

func TestContextWindow(t *testing.T) {
	text := "0123456789TARGET0123456789"
	assert.Equal(t, "56789TARGET01234", contextWindow(text, 10, 16, 5))
	assert.Equal(t, text, contextWindow(text, 10, 16, 100))
	assert.Equal(t, "", contextWindow("", 0, 0, 5))
}

func TestLocateContent(t *testing.T) {
	text := "first buy milk, then buy milk again"
	assert.Equal(t, TextPosition{Start: 6, End: 14}, LocateContent(text, "buy milk"))
	assert.Equal(t, TextPosition{Start: 0, End: 9}, LocateContent(text, "sell eggs"))
	assert.Equal(t, TextPosition{}, LocateContent(text, ""))
}
