package vector

import (
	"fmt"
	"sort"
	"strings"
)

// Condition is a predicate over one metadata field. Exactly one of the
// operators is expected to be set; use the Eq/In/Ne constructors.
type Condition struct {
	Eq    any
	Ne    any
	In    []any
	hasEq bool
	hasNe bool
}

// Filter is a structured predicate over metadata fields. All field
// conditions must hold (logical AND).
type Filter map[string]Condition

// Eq matches records whose field equals v.
func Eq(v any) Condition {
	return Condition{Eq: v, hasEq: true}
}

// Ne matches records whose field is absent or differs from v.
func Ne(v any) Condition {
	return Condition{Ne: v, hasNe: true}
}

// In matches records whose field equals any of vs.
func In(vs ...any) Condition {
	return Condition{In: vs}
}

// IsEq reports whether the condition is an equality test. Needed by
// backends that translate conditions into native predicates.
func (c Condition) IsEq() bool { return c.hasEq }

// IsNe reports whether the condition is an inequality test.
func (c Condition) IsNe() bool { return c.hasNe }

// Matches evaluates the filter against a metadata map. Used by backends
// without native predicate pushdown (in-memory index, sqlite driver).
func (f Filter) Matches(metadata map[string]any) bool {
	for field, cond := range f {
		value, present := metadata[field]
		switch {
		case cond.hasEq:
			if !present || !looseEqual(value, cond.Eq) {
				return false
			}
		case cond.hasNe:
			// Absent fields satisfy $ne; only a present equal value fails.
			if present && looseEqual(value, cond.Ne) {
				return false
			}
		case cond.In != nil:
			if !present {
				return false
			}
			found := false
			for _, candidate := range cond.In {
				if looseEqual(value, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// String renders the filter in a stable order, for logging.
func (f Filter) String() string {
	if len(f) == 0 {
		return "{}"
	}
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		cond := f[field]
		switch {
		case cond.hasEq:
			parts = append(parts, fmt.Sprintf("%s=%v", field, cond.Eq))
		case cond.hasNe:
			parts = append(parts, fmt.Sprintf("%s!=%v", field, cond.Ne))
		case cond.In != nil:
			parts = append(parts, fmt.Sprintf("%s in %v", field, cond.In))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// looseEqual compares metadata values across the numeric/string types that
// survive a JSON round trip (int filters vs float64 metadata, etc).
func looseEqual(a, b any) bool {
	if a == b {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
