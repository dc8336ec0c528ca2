package fs

import (
	"path"
	"path/filepath"
	"strings"
)

// Join joins path elements. Backslash separators are kept when the first element
// uses them exclusively, so Windows-style paths survive on any host.
func (f *FileSystem) Join(elem ...string) string {
	return Join(elem...)
}

// Dir returns all but the last element of p.
func (f *FileSystem) Dir(p string) string {
	return Dir(p)
}

// Rel returns target relative to base.
func (f *FileSystem) Rel(base, target string) (string, error) {
	return Rel(base, target)
}

// Join is the separator-tolerant path join used by FileSystem.
func Join(elem ...string) string {
	if len(elem) == 0 {
		return ""
	}
	if !usesBackslash(elem[0]) {
		return path.Join(elem...)
	}
	parts := make([]string, len(elem))
	for i, e := range elem {
		parts[i] = strings.ReplaceAll(e, `\`, "/")
	}
	return strings.ReplaceAll(path.Join(parts...), "/", `\`)
}

// Dir is the separator-tolerant dirname used by FileSystem.
func Dir(p string) string {
	for len(p) > 1 && (p[len(p)-1] == '/' || p[len(p)-1] == '\\') && p[len(p)-2] != ':' {
		p = p[:len(p)-1]
	}
	i := strings.LastIndexAny(p, `/\`)
	switch {
	case i < 0:
		return "."
	case i == 0:
		return p[:1]
	case p[i-1] == ':':
		return p[:i+1]
	default:
		return p[:i]
	}
}

// Rel is the separator-tolerant relative path used by FileSystem.
func Rel(base, target string) (string, error) {
	back := usesBackslash(base)
	rel, err := filepath.Rel(filepath.FromSlash(strings.ReplaceAll(base, `\`, "/")),
		filepath.FromSlash(strings.ReplaceAll(target, `\`, "/")))
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if back {
		rel = strings.ReplaceAll(rel, "/", `\`)
	}
	return rel, nil
}

func usesBackslash(p string) bool {
	return strings.Contains(p, `\`) && !strings.Contains(p, "/")
}
