package httpmetrics

import "strings"

// routes lists every path the service serves. Anything else is reported as
// "unmatched" so scanners cannot inflate label cardinality.
var routes = map[string]struct{}{
	"/api/auth/register": {},
	"/api/auth/login":    {},
	"/api/auth/logout":   {},
	"/api/profile":       {},
	"/api/chat/messages": {},
	"/ws/chat":           {},
	"/health":            {},
	"/metrics":           {},
}

const unmatchedPath = "unmatched"

// NormalizePath maps a request path to a bounded metric label.
func NormalizePath(path string) string {
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if _, ok := routes[path]; ok {
		return path
	}
	return unmatchedPath
}
