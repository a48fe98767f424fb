package fract

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Verdict is what an action says about the step it guards.
type Verdict int

const (
	// Indifferent lets the step continue. It is the zero value.
	Indifferent Verdict = iota
	// Proceed explicitly lets the step continue.
	Proceed
	// Abort vetoes the enclosing step: the whole envelope for a top-level
	// pre action, the component for a component pre action.
	Abort
)

func (v Verdict) String() string {
	switch v {
	case Proceed:
		return "proceed"
	case Abort:
		return "abort"
	}
	return "indifferent"
}

// Phase says when an action runs relative to the step it guards.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// ActionCall is passed to an ActionFunc.
type ActionCall struct {
	Name   string
	Params map[string]any
	Phase  Phase
	// Path is the component path, or "" for top-level actions.
	Path string
}

// ActionFunc implements a named action. The Verdict of post actions is
// ignored.
//
// Envelopes an action applies with ctx, through Applier.Apply or a Client,
// are queued and run after the current pass instead of blocking it.
type ActionFunc func(ctx context.Context, call ActionCall) (Verdict, error)

// Actions is a registry of named actions the server may ask the page to run.
//
// Register everything before applying responses:
//
//	actions := fract.NewActions().
//	    Register("confirm-delete", confirmDelete).
//	    Register("focus", focusFirstInput)
//
// Lookups are safe for concurrent use.
type Actions struct {
	mu    sync.RWMutex
	funcs map[string]ActionFunc
}

// NewActions creates an empty registry.
func NewActions() *Actions {
	return &Actions{funcs: make(map[string]ActionFunc)}
}

// Register adds an action. Panics if the name is empty or already taken.
func (a *Actions) Register(name string, fn ActionFunc) *Actions {
	a.mu.Lock()
	defer a.mu.Unlock()

	if name == "" {
		panic("fract: action name must not be empty")
	}
	if _, exists := a.funcs[name]; exists {
		panic(fmt.Sprintf("fract: action %q registered twice", name))
	}
	a.funcs[name] = fn
	return a
}

// Has reports whether name is registered.
func (a *Actions) Has(name string) bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.funcs[name]
	return ok
}

// Names returns the registered names, sorted.
func (a *Actions) Names() []string {
	if a == nil {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.funcs))
	for name := range a.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the action a descriptor names. A zero descriptor is
// Indifferent. Panics inside the action are returned as ErrActionPanic.
func (a *Actions) Run(ctx context.Context, desc *Action, phase Phase, path string) (v Verdict, err error) {
	if desc.IsZero() {
		return Indifferent, nil
	}

	var fn ActionFunc
	if a != nil {
		a.mu.RLock()
		fn = a.funcs[desc.Name]
		a.mu.RUnlock()
	}
	if fn == nil {
		return Indifferent, fmt.Errorf("%w: %q", ErrUnknownAction, desc.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			v, err = Indifferent, fmt.Errorf("%w: %q: %v", ErrActionPanic, desc.Name, r)
		}
	}()

	return fn(ctx, ActionCall{
		Name:   desc.Name,
		Params: desc.Params,
		Phase:  phase,
		Path:   path,
	})
}

// BuiltinActions returns a registry holding the stock actions:
//   - "abort": always vetoes
//   - "proceed": always proceeds
//   - "log": logs its params at info level on logger
func BuiltinActions(logger *zap.Logger) *Actions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewActions().
		Register("abort", func(context.Context, ActionCall) (Verdict, error) {
			return Abort, nil
		}).
		Register("proceed", func(context.Context, ActionCall) (Verdict, error) {
			return Proceed, nil
		}).
		Register("log", func(_ context.Context, call ActionCall) (Verdict, error) {
			logger.Info("fract action",
				zap.String("phase", string(call.Phase)),
				zap.String("path", call.Path),
				zap.Any("params", call.Params),
			)
			return Indifferent, nil
		})
}
