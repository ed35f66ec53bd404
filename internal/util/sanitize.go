package util

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

const maxUploadNameRunes = 100

var unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// SanitizeUploadName reduces a client-supplied file name to a safe base name
// for the local staging area. It never returns an empty, hidden or traversal name.
func SanitizeUploadName(name string) string {
	normalized := strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(strings.TrimSpace(normalized))

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, base)
	cleaned = unsafeNameChars.ReplaceAllString(cleaned, "_")
	cleaned = strings.TrimLeft(cleaned, "._")

	runes := []rune(cleaned)
	if len(runes) > maxUploadNameRunes {
		ext := []rune(filepath.Ext(cleaned))
		if len(ext) > 10 {
			ext = nil
		}
		runes = append(runes[:maxUploadNameRunes-len(ext)], ext...)
	}
	cleaned = string(runes)

	if cleaned == "" {
		return "upload"
	}
	return cleaned
}
