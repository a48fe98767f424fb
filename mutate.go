package fract

import (
	"context"
	"fmt"
)

// Mutate places elems relative to target using method and reports whether
// the document changed. Unknown methods, empty elems and detached targets
// leave the document untouched.
//
// It returns ErrMultipleFractions when replace is given more than one
// element; the target is left in place in that case.
func Mutate[N any](ctx context.Context, doc Document[N], method Method, path string, target N, elems []N) (bool, error) {
	if len(elems) == 0 {
		return false, nil
	}
	switch method.orDefault() {
	case MethodReplace:
		return replace(ctx, doc, path, target, elems)
	case MethodPrepend:
		return prepend(ctx, doc, target, elems)
	case MethodAppend:
		return appendAfter(ctx, doc, target, elems)
	}
	return false, nil
}

func replace[N any](ctx context.Context, doc Document[N], path string, target N, elems []N) (bool, error) {
	if len(elems) > 1 {
		return false, fmt.Errorf("%w: path %q got %d", ErrMultipleFractions, path, len(elems))
	}
	if ok, err := doc.Attached(ctx, target); err != nil || !ok {
		return false, err
	}
	if err := doc.Replace(ctx, target, elems[0]); err != nil {
		return false, err
	}
	return true, nil
}

// prepend inserts every element before the original target, which yields
// e1, e2, ..., target.
func prepend[N any](ctx context.Context, doc Document[N], target N, elems []N) (bool, error) {
	if ok, err := doc.Attached(ctx, target); err != nil || !ok {
		return false, err
	}
	for i, el := range elems {
		if err := doc.InsertBefore(ctx, target, el); err != nil {
			return i > 0, fmt.Errorf("insert fraction %d: %w", i, err)
		}
	}
	return true, nil
}

// appendAfter moves the anchor to each inserted element, which yields
// target, e1, e2, ....
func appendAfter[N any](ctx context.Context, doc Document[N], target N, elems []N) (bool, error) {
	if ok, err := doc.Attached(ctx, target); err != nil || !ok {
		return false, err
	}
	anchor := target
	for i, el := range elems {
		if err := doc.InsertAfter(ctx, anchor, el); err != nil {
			return i > 0, fmt.Errorf("insert fraction %d: %w", i, err)
		}
		anchor = el
	}
	return true, nil
}
