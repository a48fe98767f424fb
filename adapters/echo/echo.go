// Package fractecho provides Echo framework integration for fract responses.
//
// Answer fract requests with envelopes and everything else with a full page:
//
//	e := echo.New()
//	e.Use(fractecho.Protect())
//	e.POST("/cart/add", func(c echo.Context) error {
//	    cart := store.Add(c.FormValue("id"))
//	    return fractecho.Page(c, cartPage(cart),
//	        fract.NewResponse().Replace("cart", cartView(cart)))
//	})
//
// Sign envelopes for clients configured with fract.WithVerifier:
//
//	r := fractecho.New(fractecho.WithSigningKey(key))
//	return r.Render(c, resp)
package fractecho

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/pthm/fract"
	"github.com/pthm/fract/lib/codec"
)

// Option configures a Responder.
type Option func(*options)

type options struct {
	key []byte
}

// WithSigningKey signs every envelope with key, sent in the
// X-Fract-Signature header.
func WithSigningKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// Responder writes fract responses to Echo contexts.
type Responder struct {
	signer *codec.Signer
}

// New creates a Responder. It panics if the signing key is rejected, as a
// misconfigured key is a programming error.
//
//	r := fractecho.New()
//
//	// With options:
//	r := fractecho.New(fractecho.WithSigningKey(key))
func New(opts ...Option) *Responder {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	r := &Responder{}
	if o.key != nil {
		signer, err := codec.NewSigner(o.key)
		if err != nil {
			panic("fractecho: " + err.Error())
		}
		r.signer = signer
	}
	return r
}

// Render writes resp as an envelope in the codec the client asked for.
func (r *Responder) Render(c echo.Context, resp fract.Response) error {
	if r.signer != nil {
		return resp.WriteSigned(c.Response(), c.Request(), r.signer)
	}
	return resp.Write(c.Response(), c.Request())
}

// Page answers fract requests with resp and other requests with page.
func (r *Responder) Page(c echo.Context, page templ.Component, resp fract.Response) error {
	if IsFract(c) {
		return r.Render(c, resp)
	}
	return RenderComponent(c, page)
}

var defaultResponder = New()

// Render writes resp with an unsigned default Responder.
//
//	func handler(c echo.Context) error {
//	    return fractecho.Render(c, fract.NewResponse().Replace("cart", cartView(cart)))
//	}
func Render(c echo.Context, resp fract.Response) error {
	return defaultResponder.Render(c, resp)
}

// Page is Responder.Page with the default Responder.
func Page(c echo.Context, page templ.Component, resp fract.Response) error {
	return defaultResponder.Page(c, page, resp)
}

// RenderComponent writes a templ component to the Echo response as HTML.
func RenderComponent(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}

// IsFract reports whether the request was sent by a fract Client.
func IsFract(c echo.Context) bool {
	return fract.IsFract(c.Request())
}

// Protect rejects mutating requests (POST, PUT, PATCH, DELETE) that lack the
// X-Fract-Request header. Browsers cannot add custom headers to cross-origin
// form posts, so the header works as CSRF protection without tokens.
func Protect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				if !IsFract(c) {
					return echo.NewHTTPError(http.StatusForbidden, "missing "+fract.RequestHeader+" header")
				}
			}
			return next(c)
		}
	}
}
