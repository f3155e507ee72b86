// Package textutil prepares message text for the remote classifier:
// bounded size, valid UTF-8, normalized form.
package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const truncationMarker = "\n[... content truncated ...]"

// Truncate cuts text to at most maxSize bytes without splitting a UTF-8
// sequence. A non-positive maxSize disables the limit.
func Truncate(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + truncationMarker
}

// Sanitize NFC-normalizes the text and strips invalid UTF-8 sequences, so
// visually identical rows fingerprint and prompt identically.
func Sanitize(text string) string {
	if utf8.ValidString(text) {
		return norm.NFC.String(text)
	}

	var b strings.Builder
	b.Grow(len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				continue
			}
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

// Prepare truncates and sanitizes in one pass.
func Prepare(text string, maxSize int) string {
	return Sanitize(Truncate(text, maxSize))
}
