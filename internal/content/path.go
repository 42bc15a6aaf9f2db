package content

import "strings"

// Resource-qualified paths identify a property of a specific resource, e.g.
// the output multiplier for currencySoft. The canonical form is
// "property[resourceId]". Legacy content also authored these as dotted
// paths ("property.resourceId"); those are rewritten once at load time and
// never re-parsed per lookup.

// SplitTarget parses a canonical bracket-form path into its property and
// resource segments. ok is false for anything that is not well-formed
// bracket syntax.
func SplitTarget(path string) (property, resource string, ok bool) {
	open := strings.IndexByte(path, '[')
	if open <= 0 || !strings.HasSuffix(path, "]") {
		return "", "", false
	}
	property = path[:open]
	resource = path[open+1 : len(path)-1]
	if property == "" || resource == "" || strings.ContainsAny(resource, "[]") {
		return "", "", false
	}
	return property, resource, true
}

// CanonicalTarget rewrites a path into bracket form. Already-canonical
// paths pass through; a single-dot legacy path is rewritten. Anything else
// is returned unchanged with ok=false so the caller can record a
// diagnostic without failing the load.
func CanonicalTarget(path string) (canonical string, ok bool) {
	path = strings.TrimSpace(path)
	if _, _, ok := SplitTarget(path); ok {
		return path, true
	}
	dot := strings.IndexByte(path, '.')
	if dot > 0 && dot < len(path)-1 && !strings.ContainsAny(path, "[]") {
		property := path[:dot]
		resource := path[dot+1:]
		if !strings.Contains(resource, ".") {
			return property + "[" + resource + "]", true
		}
	}
	return path, false
}
