// Package fracttest provides helpers for testing code that produces or
// consumes fract envelopes.
//
// Apply runs an envelope against an HTML page in memory and returns the
// resulting markup together with everything the applier reported:
//
//	result, err := fracttest.Apply(`<div data-fract-id="cart">old</div>`, env)
//	if !result.HTMLContains("3 items") {
//	    t.Fatal("cart not updated")
//	}
package fracttest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/net/html"

	"github.com/pthm/fract"
	"github.com/pthm/fract/lib/htmldoc"
)

// Result holds the state of a page after an envelope was applied.
type Result struct {
	HTML     string
	Location string
	Outcome  fract.Outcome
	Err      error
	Logs     *observer.ObservedLogs
	Document *htmldoc.Document
}

// Options tunes Apply.
type Options struct {
	Attribute string
	Actions   *fract.Actions
	Context   context.Context
}

// Apply parses page, applies env to it and returns the result. The returned
// error is only set when the page itself cannot be parsed; application
// errors are in Result.Err.
func Apply(page string, env *fract.Envelope) (*Result, error) {
	return ApplyWith(page, env, Options{})
}

// ApplyWith is Apply with options.
func ApplyWith(page string, env *fract.Envelope, opts Options) (*Result, error) {
	doc, err := htmldoc.ParseString(page, htmldoc.WithAttribute(opts.Attribute))
	if err != nil {
		return nil, err
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	core, logs := observer.New(zapcore.DebugLevel)
	applier := fract.NewApplier[*html.Node](doc,
		fract.WithLogger(zap.New(core)),
		fract.WithActions(opts.Actions),
	)
	outcome, applyErr := applier.Apply(ctx, env)

	return &Result{
		HTML:     doc.String(),
		Location: doc.Location(),
		Outcome:  outcome,
		Err:      applyErr,
		Logs:     logs,
		Document: doc,
	}, nil
}

// HTMLContains checks if the HTML contains a substring.
func (r *Result) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *Result) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// Body returns the rendered children of <body>, which is where test pages
// put their components.
func (r *Result) Body() string {
	nodes, err := r.Document.Query("body")
	if err != nil || len(nodes) == 0 {
		return ""
	}
	var sb strings.Builder
	for c := nodes[0].FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(htmldoc.OuterHTML(c))
	}
	return sb.String()
}

// WasRedirected checks if the envelope redirected the page.
func (r *Result) WasRedirected() bool {
	return r.Outcome.Redirected
}

// RedirectedTo checks if the page was redirected to a specific URL.
func (r *Result) RedirectedTo(url string) bool {
	return r.Outcome.Redirected && r.Location == url
}

// Logged reports whether a message was logged at level or above.
func (r *Result) Logged(level zapcore.Level, message string) bool {
	for _, e := range r.Logs.All() {
		if e.Level >= level && e.Message == message {
			return true
		}
	}
	return false
}

// Call is one recorded action invocation.
type Call struct {
	Name  string
	Phase fract.Phase
	Path  string
}

// Recorder registers actions that record their calls and answer with a
// fixed verdict.
//
//	rec := fracttest.NewRecorder().Answer("confirm", fract.Abort)
//	fracttest.ApplyWith(page, env, fracttest.Options{Actions: rec.Actions()})
//	rec.Calls() // [{confirm pre list}]
type Recorder struct {
	mu      sync.Mutex
	actions *fract.Actions
	calls   []Call
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{actions: fract.NewActions()}
}

// Answer registers name to record its calls and return v.
func (r *Recorder) Answer(name string, v fract.Verdict) *Recorder {
	r.actions.Register(name, func(_ context.Context, call fract.ActionCall) (fract.Verdict, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, Call{Name: call.Name, Phase: call.Phase, Path: call.Path})
		return v, nil
	})
	return r
}

// Actions returns the registry to hand to the applier.
func (r *Recorder) Actions() *fract.Actions {
	return r.actions
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Names returns the names of the recorded calls in order.
func (r *Recorder) Names() []string {
	var names []string
	for _, c := range r.Calls() {
		names = append(names, c.Name)
	}
	return names
}

// NewServer starts an httptest server that answers every request with resp.
// The caller must Close it.
func NewServer(resp fract.Response) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := resp.Write(w, r); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
}
