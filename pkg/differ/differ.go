package differ

import (
	"fmt"
)

// Apply sets *dst to *value when their text forms differ and records the
// change in cs. A nil value means the source had nothing to say about the
// field and leaves it untouched. It reports whether dst changed.
func Apply[T comparable](cs *Changeset, field string, dst *T, value *T) bool {
	if value == nil {
		return false
	}
	oldText, newText := Text(*dst), Text(*value)
	if oldText == newText {
		return false
	}
	*dst = *value
	cs.Record(field, oldText, newText)
	return true
}

// Set is Apply for a value that is always present.
func Set[T comparable](cs *Changeset, field string, dst *T, value T) bool {
	return Apply(cs, field, dst, &value)
}

// Text is the comparison form of a field value. Zero values render as the
// empty string so that an unset field and an explicit zero compare equal.
func Text[T comparable](v T) string {
	var zero T
	if v == zero {
		return ""
	}
	if s, ok := any(v).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
