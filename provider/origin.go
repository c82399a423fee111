package provider

import (
	"fmt"
	"regexp"
	"strings"
)

// AllowedOrigins is a normalized allowed-origin configuration. It is
// built once at configuration time from an exact string, an ordered list
// of strings, or a pre-compiled pattern, and matched against message
// origins during the handshake.
//
// Matching tolerates a single trailing slash on either side, because
// some browsers normalize a bare origin to include one. String entries
// are exact matches, never partial; compiled patterns are used as-is and
// tried against the origin with and without a trailing slash appended.
type AllowedOrigins struct {
	exact    []string
	patterns []*regexp.Regexp
	display  string
}

// OriginsFromString allows a single exact origin.
func OriginsFromString(origin string) *AllowedOrigins {
	return &AllowedOrigins{
		exact:   []string{trimOneSlash(origin)},
		display: origin,
	}
}

// OriginsFromList allows any origin in the list, each matched exactly.
func OriginsFromList(origins []string) *AllowedOrigins {
	exact := make([]string, 0, len(origins))
	for _, o := range origins {
		exact = append(exact, trimOneSlash(o))
	}
	return &AllowedOrigins{
		exact:   exact,
		display: strings.Join(origins, ", "),
	}
}

// OriginsFromPattern allows any origin the pre-compiled pattern matches.
func OriginsFromPattern(pattern *regexp.Regexp) *AllowedOrigins {
	return &AllowedOrigins{
		patterns: []*regexp.Regexp{pattern},
		display:  pattern.String(),
	}
}

// Match reports whether origin is allowed. Pure function, no side
// effects; a nil configuration matches nothing.
func (a *AllowedOrigins) Match(origin string) bool {
	if a == nil {
		return false
	}

	trimmed := trimOneSlash(origin)
	for _, e := range a.exact {
		if trimmed == e {
			return true
		}
	}

	for _, p := range a.patterns {
		if p.MatchString(origin) || p.MatchString(origin+"/") {
			return true
		}
	}

	return false
}

// String describes the configuration for error messages.
func (a *AllowedOrigins) String() string {
	if a == nil {
		return "<none>"
	}
	return a.display
}

// trimOneSlash removes at most one trailing slash.
func trimOneSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s[:len(s)-1]
	}
	return s
}

// originFromURL derives the origin (scheme://host) of a URL, used as the
// default allowed origin when none is configured.
func originFromURL(scheme, host string) string {
	return fmt.Sprintf("%s://%s", scheme, host)
}
