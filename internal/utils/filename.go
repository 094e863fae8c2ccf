package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// invalidFileNameChars are rejected by at least one of the filesystems we write to.
const invalidFileNameChars = `<>:"/\|?*`

// SanitizeFileName makes a title safe to use as a file name on every platform.
// Invalid and control characters become '_', and trailing dots and spaces are trimmed.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(invalidFileNameChars, r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	out = strings.TrimRight(out, ". ")
	if out == "" {
		return "download"
	}
	return out
}
