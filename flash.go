package fract

import (
	"context"
	"html"
	"io"

	"github.com/a-h/templ"
)

// Flash levels for toast notifications.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// FlashPath is the component path flashes are prepended to. The anchor sits
// at the end of the container rendered by ToastContainer, so toasts stack in
// the order they were added.
const FlashPath = "toasts:toast-anchor"

// Flash represents a one-time notification message.
type Flash struct {
	Level   string // success, error, warning, info
	Message string
}

// Flash adds a toast notification to the response.
//
//	return fract.NewResponse().Replace("item", view).Flash(fract.FlashSuccess, "Item saved!")
//
// Several flashes from one response are merged into a single component
// update so they keep their order.
func (r Response) Flash(level, message string) Response {
	c := flashComponent(Flash{Level: level, Message: message})
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.path == FlashPath && e.method == MethodPrepend && e.markup == nil {
			r.entries = append([]entry(nil), r.entries...)
			r.entries[i].components = append(append([]templ.Component(nil), e.components...), c)
			return r
		}
	}
	return r.Prepend(FlashPath, c)
}

// flashComponent renders one toast.
//
// The data-auto-dismiss attribute is a hint for page scripts, which remove
// the toast after the given delay in milliseconds.
func flashComponent(f Flash) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="toast toast-`+html.EscapeString(f.Level)+
			`" data-auto-dismiss="3000">`+html.EscapeString(f.Message)+`</div>`)
		return err
	})
}

// ToastContainer returns a templ component for the toast container.
//
// Add this to your layout template (typically near the end of <body>):
//
//	@fract.ToastContainer()
func ToastContainer() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div data-fract-id="toasts" class="toast-container">`+
			`<span data-fract-id="toast-anchor" hidden></span></div>`)
		return err
	})
}
