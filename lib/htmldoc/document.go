// Package htmldoc binds fract to an in-memory HTML tree built by
// golang.org/x/net/html.
//
// Use it to apply envelopes server side (pre-rendering, snapshot tests) or
// from the command line:
//
//	doc, err := htmldoc.ParseString(page)
//	applier := fract.NewApplier[*html.Node](doc)
//	_, err = applier.Apply(ctx, env)
//	fmt.Println(doc.String())
package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pthm/fract"
)

// DefaultCacheSize is the number of parsed fractions and compiled selectors
// kept per document.
const DefaultCacheSize = 256

// Document is a mutable HTML tree.
//
// Like a browser DOM it is not safe for concurrent mutation; the fract
// Applier serialises its own calls, other writers need their own locking.
type Document struct {
	root     *html.Node
	attr     string
	location string

	fragments *lru.Cache[string, *html.Node]
	selectors *lru.Cache[string, cascadia.Selector]
}

// Option configures a Document.
type Option func(*config)

type config struct {
	attr      string
	location  string
	cacheSize int
}

// WithAttribute sets the component identity attribute.
// Defaults to fract.DefaultAttribute.
func WithAttribute(attr string) Option {
	return func(c *config) {
		c.attr = attr
	}
}

// WithLocation sets the document's initial URL.
func WithLocation(url string) Option {
	return func(c *config) {
		c.location = url
	}
}

// WithCacheSize sets how many parsed fractions and selectors are cached.
// Zero disables caching.
func WithCacheSize(n int) Option {
	return func(c *config) {
		c.cacheSize = n
	}
}

// New wraps an existing tree.
func New(root *html.Node, opts ...Option) *Document {
	c := config{attr: fract.DefaultAttribute, cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&c)
	}
	if c.attr == "" {
		c.attr = fract.DefaultAttribute
	}

	d := &Document{root: root, attr: c.attr, location: c.location}
	if c.cacheSize > 0 {
		// lru.New only fails for a non-positive size.
		d.fragments, _ = lru.New[string, *html.Node](c.cacheSize)
		d.selectors, _ = lru.New[string, cascadia.Selector](c.cacheSize)
	}
	return d
}

// Parse reads a full HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return New(root, opts...), nil
}

// ParseString reads a full HTML document from s.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Attribute returns the component identity attribute.
func (d *Document) Attribute() string {
	return d.attr
}

// Location returns the URL of the last navigation, or the initial location.
func (d *Document) Location() string {
	return d.location
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning "" if rendering fails.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Query returns the elements matching a CSS selector in document order.
func (d *Document) Query(selector string) ([]*html.Node, error) {
	sel, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	return sel.MatchAll(d.root), nil
}

// Resolve implements fract.Document.
func (d *Document) Resolve(_ context.Context, path fract.Path) ([]*html.Node, error) {
	if path.IsEmpty() {
		return nil, nil
	}
	return d.Query(path.Selector(d.attr))
}

func (d *Document) compile(selector string) (cascadia.Selector, error) {
	if d.selectors != nil {
		if sel, ok := d.selectors.Get(selector); ok {
			return sel, nil
		}
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: selector %q: %w", selector, err)
	}
	if d.selectors != nil {
		d.selectors.Add(selector, sel)
	}
	return sel, nil
}

// Parse implements fract.Document. Fractions are parsed in a <template>
// context, so table rows, list items and options keep their tags.
func (d *Document) Parse(_ context.Context, markup string) (*html.Node, error) {
	if d.fragments != nil {
		if n, ok := d.fragments.Get(markup); ok {
			return cloneNode(n), nil
		}
	}

	n, err := parseFraction(markup)
	if err != nil {
		return nil, err
	}
	if d.fragments != nil {
		d.fragments.Add(markup, n)
		return cloneNode(n), nil
	}
	return n, nil
}

var templateContext = &html.Node{Type: html.ElementNode, Data: "template", DataAtom: atom.Template}

func parseFraction(markup string) (*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), templateContext)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse fraction: %w", err)
	}

	var root *html.Node
	elements, text := 0, false
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			elements++
			root = n
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				text = true
			}
		}
	}
	switch {
	case elements == 0:
		return nil, fract.ErrEmptyFraction
	case elements > 1:
		return nil, fmt.Errorf("%w: %d top-level elements", fract.ErrMultipleRoots, elements)
	case text:
		return nil, fmt.Errorf("%w: text next to the root element", fract.ErrMultipleRoots)
	}
	return root, nil
}

// Attached implements fract.Document.
func (d *Document) Attached(_ context.Context, n *html.Node) (bool, error) {
	return n != nil && n.Parent != nil, nil
}

// Replace implements fract.Document.
func (d *Document) Replace(_ context.Context, target, n *html.Node) error {
	parent := target.Parent
	if parent == nil {
		return nil
	}
	detach(n)
	parent.InsertBefore(n, target)
	parent.RemoveChild(target)
	return nil
}

// InsertBefore implements fract.Document.
func (d *Document) InsertBefore(_ context.Context, target, n *html.Node) error {
	if target.Parent == nil {
		return nil
	}
	detach(n)
	target.Parent.InsertBefore(n, target)
	return nil
}

// InsertAfter implements fract.Document.
func (d *Document) InsertAfter(_ context.Context, target, n *html.Node) error {
	if target.Parent == nil {
		return nil
	}
	detach(n)
	// A nil NextSibling appends.
	target.Parent.InsertBefore(n, target.NextSibling)
	return nil
}

// Navigate implements fract.Navigator by recording the new location.
func (d *Document) Navigate(_ context.Context, url string) error {
	d.location = url
	return nil
}

// detach removes n from its parent so it can be inserted elsewhere.
func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// cloneNode deep-copies n without its parent or siblings.
func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(cloneNode(ch))
	}
	return c
}

// OuterHTML renders a single node, returning "" if rendering fails.
func OuterHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// Attr returns the value of an attribute on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

var _ fract.Document[*html.Node] = (*Document)(nil)
var _ fract.Navigator = (*Document)(nil)
var _ fract.FormReader[*html.Node] = (*Document)(nil)
