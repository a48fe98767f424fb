package fract

import (
	"context"
	"fmt"
	"strings"
)

// BuildFragments parses each fraction into a detached element, keeping input
// order. Fractions are trimmed before parsing. The first fraction that does
// not hold exactly one root element fails the whole build, so callers never
// see a partial sequence.
func BuildFragments[N any](ctx context.Context, doc Document[N], fractions []string) ([]N, error) {
	if len(fractions) == 0 {
		return nil, nil
	}
	elems := make([]N, 0, len(fractions))
	for i, markup := range fractions {
		el, err := doc.Parse(ctx, strings.TrimSpace(markup))
		if err != nil {
			return nil, fmt.Errorf("fraction %d: %w", i, err)
		}
		elems = append(elems, el)
	}
	return elems, nil
}
