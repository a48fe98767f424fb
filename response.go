package fract

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/a-h/templ"

	"github.com/pthm/fract/lib/codec"
)

// Response builds an envelope on the server side.
//
// Response is a fluent builder: fractions are templ components rendered when
// the envelope is written, so handlers never touch the ResponseWriter
// themselves.
//
//	// Replace a component
//	return fract.NewResponse().Replace("cart", cartView(cart)).Write(w, r)
//
//	// Add rows after the list's anchor, then tell the page to refocus
//	return fract.NewResponse().
//	    Append("todos:last", rows...).
//	    After(fract.Call("focus", map[string]any{"selector": "#new-todo"})).
//	    Write(w, r)
//
//	// Leave the page
//	return fract.Redirect("/login").Write(w, r)
//
//	// Toast notification
//	return fract.NewResponse().Flash(fract.FlashSuccess, "Saved!").Write(w, r)
type Response struct {
	redirect string
	pre      *Action
	post     *Action
	entries  []entry
	headers  map[string]string
	status   int
}

type entry struct {
	path       string
	method     Method
	components []templ.Component
	markup     []string
	pre, post  *Action
}

// NewResponse starts an empty response.
func NewResponse() Response {
	return Response{}
}

// Redirect creates a response that sends the page to url. Any component
// added afterwards is ignored by clients.
func Redirect(url string) Response {
	return Response{redirect: url}
}

// Replace swaps the component at path for a single rendered fraction.
func (r Response) Replace(path string, component templ.Component) Response {
	return r.add(path, MethodReplace, component)
}

// Prepend inserts rendered fractions, in order, before the component at path.
func (r Response) Prepend(path string, components ...templ.Component) Response {
	return r.add(path, MethodPrepend, components...)
}

// Append inserts rendered fractions, in order, after the component at path.
func (r Response) Append(path string, components ...templ.Component) Response {
	return r.add(path, MethodAppend, components...)
}

// Markup adds pre-rendered fractions for path.
func (r Response) Markup(path string, method Method, markup ...string) Response {
	r.entries = append(slices.Clip(r.entries), entry{
		path:   path,
		method: method,
		markup: append([]string(nil), markup...),
	})
	return r
}

// ComponentActions attaches pre and post actions to the component at path.
// The last entry added for path is used; without one an entry carrying
// only the actions is added.
func (r Response) ComponentActions(path string, pre, post *Action) Response {
	r.entries = slices.Clone(r.entries)
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].path == path {
			r.entries[i].pre, r.entries[i].post = pre, post
			return r
		}
	}
	r.entries = append(r.entries, entry{path: path, pre: pre, post: post})
	return r
}

// Before sets the envelope's pre action. If it answers Abort the client
// applies nothing.
func (r Response) Before(a *Action) Response {
	r.pre = a
	return r
}

// After sets the envelope's post action.
func (r Response) After(a *Action) Response {
	r.post = a
	return r
}

// Header sets a response header.
func (r Response) Header(key, value string) Response {
	headers := make(map[string]string, len(r.headers)+1)
	for k, v := range r.headers {
		headers[k] = v
	}
	headers[key] = value
	r.headers = headers
	return r
}

// Status sets the HTTP status code. The default is 200.
func (r Response) Status(code int) Response {
	r.status = code
	return r
}

// GetRedirect returns the redirect URL.
func (r Response) GetRedirect() string {
	return r.redirect
}

// GetStatus returns the HTTP status code (0 means not set, use default 200).
func (r Response) GetStatus() int {
	return r.status
}

// GetHeaders returns the response headers.
func (r Response) GetHeaders() map[string]string {
	return r.headers
}

func (r Response) add(path string, method Method, components ...templ.Component) Response {
	r.entries = append(slices.Clip(r.entries), entry{
		path:       path,
		method:     method,
		components: append([]templ.Component(nil), components...),
	})
	return r
}

// Envelope renders every component and returns the envelope to send.
func (r Response) Envelope(ctx context.Context) (*Envelope, error) {
	if r.redirect != "" {
		return &Envelope{Redirect: r.redirect}, nil
	}

	env := &Envelope{PreAction: r.pre, PostAction: r.post}
	if len(r.entries) == 0 {
		return env, nil
	}
	env.Components = NewComponentMap()
	for _, e := range r.entries {
		u := Update{Kind: UpdateRecord, Method: e.method, PreAction: e.pre, PostAction: e.post}
		if e.markup != nil || e.components != nil {
			u.HasFractions = true
			u.Fractions = append([]string{}, e.markup...)
		}
		for i, c := range e.components {
			var buf bytes.Buffer
			if err := c.Render(ctx, &buf); err != nil {
				return nil, fmt.Errorf("fract: render %q fraction %d: %w", e.path, i, err)
			}
			u.Fractions = append(u.Fractions, buf.String())
		}
		env.Components.Set(e.path, u)
	}
	return env, nil
}

// Write renders the envelope and writes it in the codec the request's
// Accept header prefers.
func (r Response) Write(w http.ResponseWriter, req *http.Request) error {
	return r.write(w, req, nil)
}

// WriteSigned is Write plus an X-Fract-Signature header over the body.
func (r Response) WriteSigned(w http.ResponseWriter, req *http.Request, signer *codec.Signer) error {
	return r.write(w, req, signer)
}

func (r Response) write(w http.ResponseWriter, req *http.Request, signer *codec.Signer) error {
	env, err := r.Envelope(req.Context())
	if err != nil {
		return err
	}

	c := codec.Negotiate(req.Header.Get("Accept"))
	data, err := c.Marshal(env)
	if err != nil {
		return fmt.Errorf("fract: encode envelope: %w", err)
	}

	for k, v := range r.headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", c.ContentType())
	if signer != nil {
		w.Header().Set(codec.SignatureHeader, signer.Sign(data))
	}

	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
