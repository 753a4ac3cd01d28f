package echo

import "strings"

// ParseCookies splits a Cookie header into name/value pairs. Pairs without '='
// are dropped; later duplicates do not override earlier ones.
func ParseCookies(header string) map[string]string {
	cookies := make(map[string]string)
	if header == "" {
		return cookies
	}
	for _, pair := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, exists := cookies[name]; exists {
			continue
		}
		cookies[name] = strings.TrimSpace(value)
	}
	return cookies
}
