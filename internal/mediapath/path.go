// Package mediapath implements the virtual folder paths used by the media
// library. A path is a "/"-joined list of segments mapped onto flat storage
// key prefixes; the empty string is the root.
package mediapath

import (
	"net/url"
	"strings"
)

// Separator joins path segments.
const Separator = "/"

// Crumb is one step of a breadcrumb trail.
type Crumb struct {
	Name string
	Path string
}

// Normalize trims surrounding whitespace and slashes and collapses empty
// segments, so "a//b/" and "/a/b" both become "a/b".
func Normalize(p string) string {
	return strings.Join(Segments(p), Separator)
}

// Segments splits a path into its non-empty segments. The root has none.
func Segments(p string) []string {
	p = strings.TrimSpace(p)
	if p == "" {
		return nil
	}
	parts := strings.Split(p, Separator)
	segments := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// Depth returns the number of segments in p.
func Depth(p string) int {
	return len(Segments(p))
}

// IsRoot reports whether p denotes the root folder.
func IsRoot(p string) bool {
	return Depth(p) == 0
}

// Up drops the last segment of p. The root's parent is the root.
func Up(p string) string {
	parts := Segments(p)
	if len(parts) <= 1 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], Separator)
}

// Join appends name to p as new segments.
func Join(p, name string) string {
	return Normalize(p + Separator + name)
}

// Base returns the last segment of p, or "" at the root.
func Base(p string) string {
	parts := Segments(p)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// EncodeSegments escapes every segment for use inside a URL path while
// keeping the separators intact.
func EncodeSegments(p string) string {
	parts := Segments(p)
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, Separator)
}

// Breadcrumbs returns the trail from the root down to p. The first crumb is
// always the root with an empty path.
func Breadcrumbs(p string) []Crumb {
	parts := Segments(p)
	crumbs := make([]Crumb, 0, len(parts)+1)
	crumbs = append(crumbs, Crumb{Name: "/", Path: ""})
	for i, part := range parts {
		crumbs = append(crumbs, Crumb{
			Name: part,
			Path: strings.Join(parts[:i+1], Separator),
		})
	}
	return crumbs
}

// DirectChildren filters folders down to those exactly one level below
// current. Filtering is done by segment count, so folder names must not
// contain the separator themselves. Order is preserved and duplicates are
// dropped.
func DirectChildren(folders []string, current string) []string {
	current = Normalize(current)
	depth := Depth(current)
	prefix := ""
	if current != "" {
		prefix = current + Separator
	}

	seen := make(map[string]struct{}, len(folders))
	children := make([]string, 0, len(folders))
	for _, folder := range folders {
		folder = Normalize(folder)
		if folder == "" || !strings.HasPrefix(folder, prefix) {
			continue
		}
		if Depth(folder) != depth+1 {
			continue
		}
		if _, ok := seen[folder]; ok {
			continue
		}
		seen[folder] = struct{}{}
		children = append(children, folder)
	}
	return children
}

// Ancestors returns every folder prefix that contains key, excluding the
// key's own last segment. "a/b/c.jpg" yields "a" and "a/b".
func Ancestors(key string) []string {
	parts := Segments(key)
	if len(parts) <= 1 {
		return nil
	}
	out := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], Separator))
	}
	return out
}
