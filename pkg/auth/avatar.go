package auth

import "strings"

// AvatarURL resolves an avatar reference from a profile against the
// mother API base URL. Absolute URLs and data/blob URIs pass through
// unchanged; relative paths are joined to the base with slash cleanup.
func AvatarURL(baseURL, path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "http") || strings.HasPrefix(path, "data:") || strings.HasPrefix(path, "blob:") {
		return path
	}

	base := strings.TrimRight(baseURL, "/")
	return base + "/" + strings.TrimLeft(path, "/")
}
