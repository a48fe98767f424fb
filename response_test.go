package fract_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/templ"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/pthm/fract"
	"github.com/pthm/fract/fracttest"
	"github.com/pthm/fract/lib/codec"
)

var ignoreUpdateErr = cmpopts.IgnoreFields(fract.Update{}, "Err")

func TestResponseEnvelope(t *testing.T) {
	resp := fract.NewResponse().
		Replace("cart", templ.Raw(`<div data-fract-id="cart">3</div>`)).
		Append("todos:last", templ.Raw(`<li>a</li>`), templ.Raw(`<li>b</li>`)).
		Prepend("log", templ.Raw(`<p>first</p>`)).
		ComponentActions("todos:last", nil, fract.Call("focus")).
		Before(fract.Call("confirm")).
		After(fract.Call("done"))

	env, err := resp.Envelope(context.Background())
	if err != nil {
		t.Fatalf("Envelope() error = %v", err)
	}

	if diff := cmp.Diff([]string{"cart", "todos:last", "log"}, env.Components.Paths()); diff != "" {
		t.Errorf("Paths() mismatch (-want +got):\n%s", diff)
	}
	todos, _ := env.Components.Get("todos:last")
	want := fract.Record(fract.MethodAppend, `<li>a</li>`, `<li>b</li>`).WithActions(nil, fract.Call("focus"))
	if diff := cmp.Diff(want, todos, ignoreUpdateErr); diff != "" {
		t.Errorf("todos update mismatch (-want +got):\n%s", diff)
	}
	if env.PreAction.Name != "confirm" || env.PostAction.Name != "done" {
		t.Errorf("actions = %v, %v", env.PreAction, env.PostAction)
	}
}

func TestResponseIsImmutable(t *testing.T) {
	base := fract.NewResponse().Markup("a", fract.MethodReplace, "<p>a</p>")
	withB := base.Markup("b", fract.MethodReplace, "<p>b</p>")
	withC := base.Markup("c", fract.MethodReplace, "<p>c</p>")

	envB, _ := withB.Envelope(context.Background())
	envC, _ := withC.Envelope(context.Background())
	envBase, _ := base.Envelope(context.Background())

	if diff := cmp.Diff([]string{"a", "b"}, envB.Components.Paths()); diff != "" {
		t.Errorf("withB mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "c"}, envC.Components.Paths()); diff != "" {
		t.Errorf("withC mismatch (-want +got):\n%s", diff)
	}
	if envBase.Components.Len() != 1 {
		t.Errorf("base has %d components, want 1", envBase.Components.Len())
	}
}

func TestResponseRedirect(t *testing.T) {
	resp := fract.Redirect("/login").Markup("ignored", fract.MethodReplace, "<p>x</p>")

	env, err := resp.Envelope(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if env.Redirect != "/login" || env.Components != nil {
		t.Errorf("Envelope() = %+v, want a bare redirect", env)
	}
	if resp.GetRedirect() != "/login" {
		t.Errorf("GetRedirect() = %q", resp.GetRedirect())
	}
}

func TestResponseRenderError(t *testing.T) {
	boom := errors.New("template failed")
	failing := templ.ComponentFunc(func(context.Context, io.Writer) error { return boom })

	_, err := fract.NewResponse().Replace("x", failing).Envelope(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Envelope() error = %v, want the render error", err)
	}
}

func TestResponseWrite(t *testing.T) {
	resp := fract.NewResponse().
		Markup("main", fract.MethodReplace, "<p>x</p>").
		Header("X-Trace", "abc").
		Status(http.StatusCreated)

	tests := []struct {
		name        string
		accept      string
		contentType string
	}{
		{"default json", "", codec.JSON},
		{"msgpack", codec.Msgpack, codec.Msgpack},
		{"json preferred", "application/json, application/msgpack;q=0.5", codec.JSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept", tt.accept)
			rec := httptest.NewRecorder()

			if err := resp.Write(rec, req); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if rec.Code != http.StatusCreated {
				t.Errorf("status = %d, want 201", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			if rec.Header().Get("X-Trace") != "abc" {
				t.Error("custom header missing")
			}

			env, err := fract.DecodeEnvelope(tt.contentType, rec.Body.Bytes())
			if err != nil {
				t.Fatalf("DecodeEnvelope() error = %v", err)
			}
			u, _ := env.Components.Get("main")
			if diff := cmp.Diff([]string{"<p>x</p>"}, u.Fractions); diff != "" {
				t.Errorf("fractions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResponseHeaderCopiesMap(t *testing.T) {
	a := fract.NewResponse().Header("X-A", "1")
	b := a.Header("X-B", "2")

	if _, ok := a.GetHeaders()["X-B"]; ok {
		t.Error("Header() mutated the original response")
	}
	if len(b.GetHeaders()) != 2 {
		t.Errorf("GetHeaders() = %v", b.GetHeaders())
	}
}

func TestFlash(t *testing.T) {
	resp := fract.NewResponse().
		Flash(fract.FlashSuccess, "Saved").
		Flash(fract.FlashError, "<oops>")

	env, err := resp.Envelope(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if env.Components.Len() != 1 {
		t.Fatalf("flashes were not merged: %v", env.Components.Paths())
	}
	u, _ := env.Components.Get(fract.FlashPath)
	want := []string{
		`<div class="toast toast-success" data-auto-dismiss="3000">Saved</div>`,
		`<div class="toast toast-error" data-auto-dismiss="3000">&lt;oops&gt;</div>`,
	}
	if diff := cmp.Diff(want, u.Fractions); diff != "" {
		t.Errorf("fractions mismatch (-want +got):\n%s", diff)
	}
	if u.EffectiveMethod() != fract.MethodPrepend {
		t.Errorf("method = %q, want prepend", u.EffectiveMethod())
	}
}

func TestFlashAppliesToToastContainer(t *testing.T) {
	var page bytesWriter
	if err := fract.ToastContainer().Render(context.Background(), &page); err != nil {
		t.Fatal(err)
	}
	env, err := fract.NewResponse().
		Flash(fract.FlashInfo, "one").
		Flash(fract.FlashInfo, "two").
		Envelope(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	result, err := fracttest.Apply(string(page), env)
	if err != nil {
		t.Fatal(err)
	}
	want := `<div data-fract-id="toasts" class="toast-container">` +
		`<div class="toast toast-info" data-auto-dismiss="3000">one</div>` +
		`<div class="toast toast-info" data-auto-dismiss="3000">two</div>` +
		`<span data-fract-id="toast-anchor" hidden=""></span></div>`
	if got := result.Body(); got != want {
		t.Errorf("body =\n%s\nwant\n%s", got, want)
	}
}

func TestRequestHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if fract.IsFract(req) || fract.WantsMsgpack(req) || fract.CurrentURL(req) != "" {
		t.Error("plain request misdetected")
	}

	req.Header.Set(fract.RequestHeader, "true")
	req.Header.Set("Accept", "application/x-msgpack")
	req.Header.Set("Referer", "https://shop.example/cart")
	if !fract.IsFract(req) {
		t.Error("IsFract() = false")
	}
	if !fract.WantsMsgpack(req) {
		t.Error("WantsMsgpack() = false")
	}
	if fract.CurrentURL(req) != "https://shop.example/cart" {
		t.Errorf("CurrentURL() = %q", fract.CurrentURL(req))
	}
}

type bytesWriter []byte

func (b *bytesWriter) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}
