package utils

import (
	"net/url"
	"path"
	"strings"
)

// TitleFromURL derives a readable fallback title from a programme URL.
// Example: https://tv.nrk.no/serie/side-om-side/sesong/1/episode/2 -> "side om side 1 2"
// Numeric-only trailing segments are joined onto the last named one.
func TitleFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	var segments []string
	for _, s := range strings.Split(path.Clean(parsed.Path), "/") {
		if s != "" && s != "." {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return parsed.Host, nil
	}

	// Walk back past numbers and their labels (sesong/1/episode/2)
	i := len(segments) - 1
	var numbers []string
	for i >= 0 && isDigits(segments[i]) {
		numbers = append([]string{segments[i]}, numbers...)
		i--
		if i >= 0 && isLabel(segments[i]) {
			i--
		}
	}
	if i < 0 {
		return parsed.Host, nil
	}

	title := strings.NewReplacer("-", " ", "_", " ").Replace(segments[i])
	if len(numbers) > 0 {
		title += " " + strings.Join(numbers, " ")
	}
	return title, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLabel(s string) bool {
	switch strings.ToLower(s) {
	case "sesong", "season", "episode", "episode-nr", "del":
		return true
	}
	return false
}
