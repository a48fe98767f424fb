package fract

// Method selects how new elements are placed relative to a component's
// target element.
type Method string

const (
	// MethodReplace swaps the target for exactly one new element.
	// This is the default when a component update names no method.
	MethodReplace Method = "replace"

	// MethodPrepend inserts the new elements, in order, directly before the
	// target. The target stays in place after them.
	MethodPrepend Method = "prepend"

	// MethodAppend inserts the new elements, in order, directly after the
	// target. The target stays in place before them.
	MethodAppend Method = "append"
)

// orDefault returns MethodReplace for an empty method.
func (m Method) orDefault() Method {
	if m == "" {
		return MethodReplace
	}
	return m
}

// Known reports whether m (after defaulting) is one of the three strategies.
// Updates with an unknown method are skipped without error.
func (m Method) Known() bool {
	switch m.orDefault() {
	case MethodReplace, MethodPrepend, MethodAppend:
		return true
	}
	return false
}
