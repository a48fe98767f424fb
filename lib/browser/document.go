// Package browser binds fract to a live page driven by go-rod.
//
// The same envelopes that patch an in-memory tree can be applied to a real
// browser tab, which is how fract responses are exercised end to end:
//
//	page := rod.New().MustConnect().MustPage("http://localhost:8080")
//	doc := browser.New(page)
//	applier := fract.NewApplier[*rod.Element](doc)
//	client := fract.NewClient(applier, fract.WithBaseURL("http://localhost:8080"))
//	_, err := client.Send(ctx, "/cart/add?id=3", nil)
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-rod/rod"

	"github.com/pthm/fract"
)

// Document adapts a rod page to fract.Document.
type Document struct {
	page *rod.Page
	attr string
}

// Option configures a Document.
type Option func(*Document)

// WithAttribute sets the component identity attribute.
// Defaults to fract.DefaultAttribute.
func WithAttribute(attr string) Option {
	return func(d *Document) {
		if attr != "" {
			d.attr = attr
		}
	}
}

// New wraps page.
func New(page *rod.Page, opts ...Option) *Document {
	d := &Document{page: page, attr: fract.DefaultAttribute}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Page returns the underlying page.
func (d *Document) Page() *rod.Page {
	return d.page
}

// Resolve implements fract.Document.
func (d *Document) Resolve(ctx context.Context, path fract.Path) ([]*rod.Element, error) {
	if path.IsEmpty() {
		return nil, nil
	}
	return d.page.Context(ctx).Elements(path.Selector(d.attr))
}

// classifyJS counts what a fraction parses into, mirroring the checks the
// html tree binding applies.
const classifyJS = `(markup) => {
	const t = document.createElement('template');
	t.innerHTML = markup;
	let elements = 0, text = false;
	for (const n of t.content.childNodes) {
		if (n.nodeType === Node.ELEMENT_NODE) elements++;
		else if (n.nodeType === Node.TEXT_NODE && n.textContent.trim() !== '') text = true;
	}
	return {elements, text};
}`

const buildJS = `(markup) => {
	const t = document.createElement('template');
	t.innerHTML = markup;
	return t.content.firstElementChild;
}`

// Parse implements fract.Document. The element is created inside a
// <template>, so it is detached until a mutation adopts it.
func (d *Document) Parse(ctx context.Context, markup string) (*rod.Element, error) {
	page := d.page.Context(ctx)

	res, err := page.Eval(classifyJS, markup)
	if err != nil {
		return nil, fmt.Errorf("browser: classify fraction: %w", err)
	}
	elements := res.Value.Get("elements").Int()
	switch {
	case elements == 0:
		return nil, fract.ErrEmptyFraction
	case elements > 1:
		return nil, fmt.Errorf("%w: %d top-level elements", fract.ErrMultipleRoots, elements)
	case res.Value.Get("text").Bool():
		return nil, fmt.Errorf("%w: text next to the root element", fract.ErrMultipleRoots)
	}

	el, err := page.ElementByJS(rod.Eval(buildJS, markup))
	if err != nil {
		return nil, fmt.Errorf("browser: build fraction: %w", err)
	}
	return el, nil
}

// Attached implements fract.Document.
func (d *Document) Attached(ctx context.Context, n *rod.Element) (bool, error) {
	res, err := n.Context(ctx).Eval(`() => this.parentNode !== null`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// Replace implements fract.Document.
func (d *Document) Replace(ctx context.Context, target, n *rod.Element) error {
	_, err := target.Context(ctx).Eval(`(n) => this.replaceWith(n)`, n.Object)
	return err
}

// InsertBefore implements fract.Document.
func (d *Document) InsertBefore(ctx context.Context, target, n *rod.Element) error {
	_, err := target.Context(ctx).Eval(`(n) => this.before(n)`, n.Object)
	return err
}

// InsertAfter implements fract.Document.
func (d *Document) InsertAfter(ctx context.Context, target, n *rod.Element) error {
	_, err := target.Context(ctx).Eval(`(n) => this.after(n)`, n.Object)
	return err
}

// Navigate implements fract.Navigator. Relative URLs resolve against the
// page's current URL.
func (d *Document) Navigate(ctx context.Context, rawURL string) error {
	page := d.page.Context(ctx)
	target := rawURL
	if ref, err := url.Parse(rawURL); err == nil && !ref.IsAbs() {
		info, err := page.Info()
		if err != nil {
			return fmt.Errorf("browser: current url: %w", err)
		}
		base, err := url.Parse(info.URL)
		if err != nil {
			return fmt.Errorf("browser: current url: %w", err)
		}
		target = base.ResolveReference(ref).String()
	}
	if err := page.Navigate(target); err != nil {
		return err
	}
	return page.WaitLoad()
}

const formJS = `(submitter) => {
	const data = submitter ? new FormData(this, submitter) : new FormData(this);
	const entries = [];
	for (const [k, v] of data) {
		if (typeof v === 'string') entries.push([k, v]);
	}
	return {
		action: this.getAttribute('action') || '',
		method: this.getAttribute('method') || '',
		enctype: this.getAttribute('enctype') || '',
		entries,
	};
}`

// ReadForm implements fract.FormReader using the browser's own FormData.
// File inputs are left out.
func (d *Document) ReadForm(ctx context.Context, form *rod.Element, submitter **rod.Element) (fract.Form, error) {
	var arg any
	if submitter != nil && *submitter != nil {
		arg = (*submitter).Object
	}
	res, err := form.Context(ctx).Eval(formJS, arg)
	if err != nil {
		return fract.Form{}, fmt.Errorf("browser: read form: %w", err)
	}

	f := fract.Form{
		Action:  res.Value.Get("action").Str(),
		Method:  strings.ToUpper(res.Value.Get("method").Str()),
		Enctype: strings.ToLower(res.Value.Get("enctype").Str()),
		Values:  url.Values{},
	}
	for _, pair := range res.Value.Get("entries").Arr() {
		kv := pair.Arr()
		if len(kv) != 2 {
			continue
		}
		f.Values.Add(kv[0].Str(), kv[1].Str())
	}
	return f, nil
}

var _ fract.Document[*rod.Element] = (*Document)(nil)
var _ fract.Navigator = (*Document)(nil)
var _ fract.FormReader[*rod.Element] = (*Document)(nil)
