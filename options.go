package fract

import "go.uber.org/zap"

// Option configures an Applier.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	actions   *Actions
	navigator Navigator
	observer  Observer
}

func defaultOptions() options {
	return options{
		logger:   zap.NewNop(),
		actions:  NewActions(),
		observer: nopObserver{},
	}
}

// WithLogger sets the logger for diagnostics. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithActions sets the registry actions are looked up in. Without it every
// action named by a response fails with ErrUnknownAction.
func WithActions(actions *Actions) Option {
	return func(o *options) {
		if actions != nil {
			o.actions = actions
		}
	}
}

// WithNavigator overrides how redirects are followed. By default the
// document is used if it implements Navigator.
func WithNavigator(nav Navigator) Option {
	return func(o *options) {
		o.navigator = nav
	}
}

// WithObserver registers an observer for application events.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}
