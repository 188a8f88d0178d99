package upload

import (
	"net/http"
	"strings"
)

// BaseURL returns "scheme://host" for r. A non-empty override (PUBLIC_BASE_URL)
// wins, which is required behind proxies that rewrite Host.
func BaseURL(r *http.Request, override string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// PublicURL returns the fully-qualified URL the file is served from.
func PublicURL(baseURL string, f File) string {
	return strings.TrimRight(baseURL, "/") + "/" + f.RelPath()
}
