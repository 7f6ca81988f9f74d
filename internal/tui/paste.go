package tui

import (
	"net/url"
	"strings"

	"github.com/kballard/go-shellquote"
)

// parsePastedPaths splits the text a terminal pastes when files are dropped
// onto it. Terminals differ: some quote each path, some escape spaces with a
// backslash, some paste file:// URLs one per line. Text that does not split
// as shell words falls back to whitespace fields with stray quotes trimmed.
func parsePastedPaths(text string) []string {
	words, err := shellquote.Split(text)
	if err != nil {
		words = strings.Fields(text)
		for i, w := range words {
			words[i] = strings.Trim(w, `'"`)
		}
	}

	paths := make([]string, 0, len(words))
	for _, w := range words {
		if p := fromFileURL(w); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func fromFileURL(s string) string {
	if !strings.HasPrefix(s, "file://") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	return u.Path
}
