package codec

import "strings"

// mime types are case-insensitive on the wire ("video/vp8" == "video/VP8")
func normalizeMime(m string) string {
	return strings.ToLower(strings.TrimSpace(m))
}

// SameMime reports whether a and b name the same codec.
func SameMime(a, b string) bool {
	return normalizeMime(a) == normalizeMime(b)
}
