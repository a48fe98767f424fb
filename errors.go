package fract

import "errors"

// Sentinel errors for response application and transport.
var (
	ErrMultipleFractions = errors.New("fract: more than one fraction returned for replace")
	ErrMultipleRoots     = errors.New("fract: fraction has more than one root element")
	ErrEmptyFraction     = errors.New("fract: fraction has no root element")
	ErrUnknownAction     = errors.New("fract: action is not registered")
	ErrActionPanic       = errors.New("fract: action panicked")
	ErrComponentPanic    = errors.New("fract: component update panicked")
	ErrNoNavigator       = errors.New("fract: document cannot navigate")
	ErrNoFormReader      = errors.New("fract: document cannot read forms")
	ErrInvalidEnvelope   = errors.New("fract: invalid envelope")
	ErrSignatureInvalid  = errors.New("fract: envelope signature verification failed")
)

// IsFractionError reports whether err was caused by malformed fraction markup.
func IsFractionError(err error) bool {
	return errors.Is(err, ErrMultipleRoots) || errors.Is(err, ErrEmptyFraction) || errors.Is(err, ErrMultipleFractions)
}

// IsActionError reports whether err came from running an action.
func IsActionError(err error) bool {
	return errors.Is(err, ErrUnknownAction) || errors.Is(err, ErrActionPanic)
}
