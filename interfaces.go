package fract

import (
	"context"
	"net/url"
)

// Document is the DOM abstraction the applier mutates. N is the binding's
// handle for an element: *html.Node for the in-memory tree, *rod.Element for
// a live browser page.
//
// Bindings are expected to be used from one goroutine at a time; the Applier
// serialises its own calls.
//
// Resolve returns every element matching the path in document order. An
// empty result is not an error.
//
// Parse turns a single fraction into a detached element. Markup with no
// element must fail with ErrEmptyFraction, markup with more than one
// top-level element (or stray text next to the element) with ErrMultipleRoots.
//
// Attached reports whether the node currently has a parent. Mutations are
// only attempted on attached targets.
type Document[N any] interface {
	Resolve(ctx context.Context, path Path) ([]N, error)
	Parse(ctx context.Context, markup string) (N, error)
	Attached(ctx context.Context, n N) (bool, error)
	Replace(ctx context.Context, target, n N) error
	InsertBefore(ctx context.Context, target, n N) error
	InsertAfter(ctx context.Context, target, n N) error
}

// Navigator is implemented by documents that can follow a redirect.
//
// The html tree binding records the location; the browser binding loads the
// page. A Navigator passed with WithNavigator takes precedence.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(ctx context.Context, url string) error

// Navigate calls f(ctx, url).
func (f NavigatorFunc) Navigate(ctx context.Context, url string) error {
	return f(ctx, url)
}

// Form is the data a form element contributes to a submission.
type Form struct {
	Action  string
	Method  string
	Enctype string
	Values  url.Values
}

// FormReader is implemented by documents that can serialise a form element.
//
// submitter, when non-nil, is the button or input that triggered the
// submission; its name/value pair is included in Values.
type FormReader[N any] interface {
	ReadForm(ctx context.Context, form N, submitter *N) (Form, error)
}
