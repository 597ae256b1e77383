package sysconfig

import "strings"

// splitPath accepts "." or "/" as a path separator and returns the ordered
// list of keys. An empty path yields an empty (zero-length) key list,
// which callers treat as "the whole tree".
func splitPath(path string) []string {
	path = strings.Trim(path, "./ ")
	if path == "" {
		return nil
	}
	path = strings.ReplaceAll(path, "/", ".")
	parts := strings.Split(path, ".")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		keys = append(keys, p)
	}
	return keys
}

// joinPath is the inverse of splitPath using "." as the canonical separator.
func joinPath(keys []string) string {
	return strings.Join(keys, ".")
}
