package core

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Fingerprint hashes text into a short cache key. The hash is a 32-bit
// rolling hash over the runes followed by the byte length; different texts
// may collide, which only costs a stale cache hit.
func Fingerprint(text string) string {
	var h int32
	for _, r := range text {
		h = (h << 5) - h + int32(r)
	}
	u := uint32(h)
	return strconv.FormatUint(uint64(u), 36) + "-" + strconv.Itoa(len(text))
}

var folder = cases.Fold()

// NormalizeKey case-folds content and collapses whitespace runs
func NormalizeKey(content string) string {
	return folder.String(strings.Join(strings.Fields(content), " "))
}

// chunk is a contiguous slice of the original text and its byte offset
type chunk struct {
	text   string
	offset int
}

// splitChunks cuts text into slices of at most size bytes without splitting a rune
func splitChunks(text string, size int) []chunk {
	if size <= 0 {
		return []chunk{{text: text}}
	}
	var chunks []chunk
	for offset := 0; offset < len(text); {
		end := offset + size
		if end >= len(text) {
			end = len(text)
		} else {
			for end > offset && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == offset {
				end = offset + size
			}
		}
		chunks = append(chunks, chunk{text: text[offset:end], offset: offset})
		offset = end
	}
	return chunks
}

// contextWindow returns the text within radius bytes of [start,end), rune aligned
func contextWindow(text string, start, end, radius int) string {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start > end {
		start = end
	}
	from := start - radius
	if from < 0 {
		from = 0
	}
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	to := end + radius
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return strings.TrimSpace(text[from:to])
}

// LocateContent finds the first occurrence of content in text. When absent the
// position falls back to {0, len(content)}.
func LocateContent(text, content string) TextPosition {
	if content != "" {
		if idx := strings.Index(text, content); idx >= 0 {
			return TextPosition{Start: idx, End: idx + len(content)}
		}
	}
	return TextPosition{Start: 0, End: len(content)}
}
