package auth

import (
	"net/url"
	"strings"
)

// vercelSuffix admits preview deployments of the frontend.
const vercelSuffix = ".vercel.app"

// Origins is the allow-list of frontend origins that may receive a login
// handoff or make credentialed cross-origin requests.
type Origins struct {
	list []string
}

// NewOrigins normalises each entry to scheme://host and drops blanks and
// duplicates, keeping the first occurrence order.
func NewOrigins(origins []string) *Origins {
	seen := make(map[string]bool, len(origins))
	o := &Origins{}
	for _, raw := range origins {
		origin := NormalizeOrigin(raw)
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		o.list = append(o.list, origin)
	}
	return o
}

// List returns the configured origins.
func (o *Origins) List() []string {
	return append([]string(nil), o.list...)
}

// Default is the first configured origin, or "" when none is configured.
func (o *Origins) Default() string {
	if len(o.list) == 0 {
		return ""
	}
	return o.list[0]
}

// Allowed reports whether origin is in the list or is an https subdomain of
// vercel.app.
func (o *Origins) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, candidate := range o.list {
		if candidate == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "https" {
		return false
	}
	return strings.HasSuffix(u.Hostname(), vercelSuffix)
}

// Resolve reduces next to its origin and returns it if allowed, otherwise
// the default origin.
func (o *Origins) Resolve(next string) string {
	if origin := NormalizeOrigin(next); o.Allowed(origin) {
		return origin
	}
	return o.Default()
}

// NormalizeOrigin reduces a URL to "scheme://host[:port]". It returns ""
// for anything that is not an absolute http(s) URL.
func NormalizeOrigin(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
