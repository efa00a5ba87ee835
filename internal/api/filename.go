package api

import (
	"path"
	"strings"
)

// allowedFile reports whether name has an extension from allowed (lower-case, no dot).
func allowedFile(name string, allowed map[string]bool) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	return allowed[strings.ToLower(name[i+1:])]
}

// secureFilename reduces a client supplied name to a safe single path element:
// directory parts are dropped, whitespace becomes "_" and anything outside
// [A-Za-z0-9._-] is removed, as are leading dots and underscores.
func secureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
