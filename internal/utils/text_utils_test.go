package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	assert.Equal(t, "short", tp.TruncateText("short", 10))
	assert.Equal(t, "short", tp.TruncateText("short", 0))
	assert.Equal(t, "abc"+truncationMarker, tp.TruncateText("abcdef", 3))

	// never splits a multi-byte rune
	out := tp.TruncateText("añb", 2)
	assert.Equal(t, "a"+truncationMarker, out)
	assert.True(t, utf8.ValidString(out))
}

func TestSanitizeText(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	assert.Equal(t, "line one\n\tline two", tp.SanitizeText("line one\n\tline two"))
	assert.Equal(t, "bell", tp.SanitizeText("b\x07ell\x00"))
	assert.Equal(t, "ok", tp.SanitizeText("o\xffk"))
	assert.Equal(t, "first\r\nsecond", tp.SanitizeText("first\r\nsecond"))
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(zaptest.NewLogger(t))

	out := tp.ProcessText("\x00"+strings.Repeat("x", 20), 10)
	assert.Equal(t, strings.Repeat("x", 10)+truncationMarker, out)
}
