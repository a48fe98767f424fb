package fract

import "strings"

// DefaultAttribute is the attribute carrying a component's identity.
const DefaultAttribute = "data-fract-id"

// Path is a parsed component path.
//
// "list" addresses elements tagged data-fract-id="list". "page:list"
// addresses "list" elements nested anywhere below a "page" element, matched
// as a single descendant selector rather than two separate lookups.
type Path struct {
	raw      string
	segments []string
}

// ParsePath splits a component path on ':' and drops empty segments.
func ParsePath(s string) Path {
	s = strings.TrimSpace(s)
	p := Path{raw: s}
	for _, seg := range strings.Split(s, ":") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		p.segments = append(p.segments, seg)
	}
	return p
}

// String returns the trimmed path as written on the wire.
func (p Path) String() string {
	return p.raw
}

// Segments returns the identifiers from outermost to innermost.
func (p Path) Segments() []string {
	return append([]string(nil), p.segments...)
}

// IsEmpty reports whether the path has no usable segment.
func (p Path) IsEmpty() bool {
	return len(p.segments) == 0
}

// Selector renders the path as a CSS descendant selector over attr.
// An empty path renders as "".
//
//	ParsePath("page:list").Selector("data-fract-id")
//	// *[data-fract-id="page"] *[data-fract-id="list"]
func (p Path) Selector(attr string) string {
	if attr == "" {
		attr = DefaultAttribute
	}
	parts := make([]string, len(p.segments))
	for i, seg := range p.segments {
		parts[i] = `*[` + attr + `="` + escapeSelectorString(seg) + `"]`
	}
	return strings.Join(parts, " ")
}

// escapeSelectorString escapes a value for use inside a double-quoted CSS
// string.
func escapeSelectorString(s string) string {
	if !strings.ContainsAny(s, "\"\\\n") {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\a `)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
