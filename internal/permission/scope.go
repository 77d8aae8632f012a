package permission

import "strings"

// HasScope reports whether a granted scope list covers the required
// scope. Supports three forms: the global wildcard "*" (grants
// everything), a prefix wildcard like "products:*" (covers any scope
// under that prefix), and exact match. Matching is case-sensitive;
// scope strings are opaque identifiers, not paths.
func HasScope(granted []string, required string) bool {
	if required == "" {
		return true
	}
	for _, g := range granted {
		if g == "*" || g == required {
			return true
		}
		if prefix, ok := strings.CutSuffix(g, ":*"); ok {
			if required == prefix || strings.HasPrefix(required, prefix+":") {
				return true
			}
		}
	}
	return false
}
