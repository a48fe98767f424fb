package fract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Outcome summarises one application of an envelope.
type Outcome struct {
	// Redirected is set when the envelope carried a redirect. Nothing else
	// was looked at.
	Redirected bool
	// Aborted is set when the top-level pre action vetoed the envelope.
	Aborted bool
	// Queued is set when Apply was called from an action during a pass. The
	// envelope is applied after that pass; the counts below stay zero.
	Queued bool

	// Processed counts components whose update ran to the end (their post
	// action included), whether or not the document changed.
	Processed int
	// Mutated counts components whose elements were placed in the document.
	Mutated int
	// Skipped counts components with no target or an empty update.
	Skipped int
	// Vetoed counts components whose pre action returned Abort.
	Vetoed int
	// Failed counts components that reported an error.
	Failed int
}

// Applier applies envelopes to a document.
//
// Every call to Apply is one uninterruptible pass over the document: calls
// from several goroutines are serialised, and the last one to run decides the
// final state of any element they both touch.
//
// Actions run inside a pass. An action that hands the applier another
// envelope with the context it was given (directly, or through Client.Send)
// does not wait for it: the envelope is queued and applied once the current
// pass and everything queued before it are done.
type Applier[N any] struct {
	mu   sync.Mutex
	doc  Document[N]
	opts options

	qmu     sync.Mutex
	running bool
	pending []*Envelope
}

// passKey marks a context as belonging to a pass of one applier.
type passKey struct{ applier any }

// NewApplier creates an applier bound to doc.
func NewApplier[N any](doc Document[N], opts ...Option) *Applier[N] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Applier[N]{doc: doc, opts: o}
}

// Document returns the document the applier mutates.
func (a *Applier[N]) Document() Document[N] {
	return a.doc
}

// Logger returns the applier's logger.
func (a *Applier[N]) Logger() *zap.Logger {
	return a.opts.logger
}

// ApplyBytes decodes an encoded envelope and applies it.
func (a *Applier[N]) ApplyBytes(ctx context.Context, contentType string, data []byte) (Outcome, error) {
	env, err := DecodeEnvelope(contentType, data)
	if err != nil {
		return Outcome{}, err
	}
	return a.Apply(ctx, env)
}

// Apply runs env against the document.
//
// A redirect is followed and ends the run. Otherwise the top-level pre
// action may veto everything; components are applied in wire order, each in
// isolation so one failing component never stops its siblings; the
// top-level post action runs last.
//
// The returned error joins every component and post action failure. Each of
// them has already been logged. Envelopes queued by actions during the pass
// are applied before Apply returns; their failures are only logged.
func (a *Applier[N]) Apply(ctx context.Context, env *Envelope) (Outcome, error) {
	if env == nil {
		return Outcome{}, nil
	}

	key := passKey{applier: a}
	if ctx.Value(key) != nil && a.enqueue(env) {
		return Outcome{Queued: true}, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.qmu.Lock()
	a.running = true
	a.qmu.Unlock()

	ctx = context.WithValue(ctx, key, true)
	out, err := a.pass(ctx, env)
	for next := a.dequeue(); next != nil; next = a.dequeue() {
		if _, qerr := a.pass(ctx, next); qerr != nil {
			a.opts.logger.Error("queued envelope failed", zap.Error(qerr))
		}
	}
	return out, err
}

// enqueue adds env to the pending list if a pass is running.
func (a *Applier[N]) enqueue(env *Envelope) bool {
	a.qmu.Lock()
	defer a.qmu.Unlock()
	if !a.running {
		return false
	}
	a.pending = append(a.pending, env)
	return true
}

// dequeue pops the next pending envelope, or ends the run when none is left.
func (a *Applier[N]) dequeue() *Envelope {
	a.qmu.Lock()
	defer a.qmu.Unlock()
	if len(a.pending) == 0 {
		a.running = false
		return nil
	}
	env := a.pending[0]
	a.pending = a.pending[1:]
	return env
}

// pass applies one envelope. The caller holds a.mu.
func (a *Applier[N]) pass(ctx context.Context, env *Envelope) (out Outcome, err error) {
	start := time.Now()
	defer func() {
		a.opts.observer.Observe(Event{Kind: EventDone, Duration: time.Since(start), Err: err})
	}()

	if env.Redirect != "" {
		return a.redirect(ctx, env.Redirect)
	}

	verdict, err := a.opts.actions.Run(ctx, env.PreAction, PhasePre, "")
	if err != nil {
		a.opts.logger.Error("pre action failed", zap.String("action", env.PreAction.Name), zap.Error(err))
		return out, fmt.Errorf("pre action: %w", err)
	}
	if verdict == Abort {
		a.opts.observer.Observe(Event{Kind: EventVeto})
		out.Aborted = true
		return out, nil
	}

	var errs []error
	for path, u := range env.Components.All() {
		res, cerr := a.applyComponent(ctx, ParsePath(path), u)
		switch {
		case cerr != nil:
			out.Failed++
			a.opts.logger.Error("component update failed", zap.String("path", path), zap.Error(cerr))
			a.opts.observer.Observe(Event{Kind: EventFailure, Path: path, Err: cerr})
			errs = append(errs, fmt.Errorf("component %q: %w", path, cerr))
		case res == resultSkipped:
			out.Skipped++
			a.opts.observer.Observe(Event{Kind: EventSkip, Path: path})
		case res == resultVetoed:
			out.Vetoed++
			a.opts.observer.Observe(Event{Kind: EventVeto, Path: path})
		default:
			out.Processed++
			if res == resultMutated {
				out.Mutated++
			}
		}
	}

	if _, perr := a.opts.actions.Run(ctx, env.PostAction, PhasePost, ""); perr != nil {
		a.opts.logger.Error("post action failed", zap.String("action", env.PostAction.Name), zap.Error(perr))
		errs = append(errs, fmt.Errorf("post action: %w", perr))
	}

	return out, errors.Join(errs...)
}

func (a *Applier[N]) redirect(ctx context.Context, url string) (Outcome, error) {
	nav := a.opts.navigator
	if nav == nil {
		nav, _ = any(a.doc).(Navigator)
	}
	if nav == nil {
		a.opts.logger.Error("cannot follow redirect", zap.String("url", url))
		return Outcome{}, fmt.Errorf("%w: redirect to %q", ErrNoNavigator, url)
	}
	a.opts.observer.Observe(Event{Kind: EventRedirect, Path: url})
	if err := nav.Navigate(ctx, url); err != nil {
		a.opts.logger.Error("redirect failed", zap.String("url", url), zap.Error(err))
		return Outcome{Redirected: true}, fmt.Errorf("redirect to %q: %w", url, err)
	}
	return Outcome{Redirected: true}, nil
}

type componentResult int

const (
	resultProcessed componentResult = iota
	resultMutated
	resultSkipped
	resultVetoed
)

// applyComponent runs one component update. Panics from the document
// binding are recovered so the remaining components still apply.
func (a *Applier[N]) applyComponent(ctx context.Context, path Path, u Update) (res componentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = resultProcessed, fmt.Errorf("%w: %v", ErrComponentPanic, r)
		}
	}()

	targets, err := a.doc.Resolve(ctx, path)
	if err != nil {
		return resultProcessed, fmt.Errorf("resolve: %w", err)
	}
	if len(targets) == 0 || u.IsZero() {
		return resultSkipped, nil
	}
	if u.Kind == UpdateInvalid {
		return resultProcessed, u.Err
	}

	verdict, err := a.opts.actions.Run(ctx, u.PreAction, PhasePre, path.String())
	if err != nil {
		return resultProcessed, fmt.Errorf("pre action: %w", err)
	}
	if verdict == Abort {
		return resultVetoed, nil
	}

	res = resultProcessed
	var mutateErr error
	switch {
	case !u.HasFractions:
		a.opts.logger.Warn("no fractions found for component", zap.String("path", path.String()))
	case len(u.Fractions) > 0:
		elems, err := BuildFragments(ctx, a.doc, u.Fractions)
		if err != nil {
			return resultProcessed, err
		}
		method := u.EffectiveMethod()
		if len(elems) > 0 && method.Known() {
			var changed bool
			changed, mutateErr = Mutate(ctx, a.doc, method, path.String(), targets[0], elems)
			switch {
			case errors.Is(mutateErr, ErrMultipleFractions):
				// Reported, but the component's post action still runs.
			case mutateErr != nil:
				return resultProcessed, mutateErr
			case changed:
				res = resultMutated
				a.opts.observer.Observe(Event{Kind: EventMutate, Path: path.String(), Method: method, Count: len(elems)})
			}
		}
	}

	if _, err := a.opts.actions.Run(ctx, u.PostAction, PhasePost, path.String()); err != nil {
		return resultProcessed, errors.Join(mutateErr, fmt.Errorf("post action: %w", err))
	}
	return res, mutateErr
}
