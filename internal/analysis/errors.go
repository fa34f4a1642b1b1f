package analysis

import "fmt"

// InvalidColumnError indicates a column that is absent or cannot be used for
// numeric statistics.
type InvalidColumnError struct {
	Column string
	Reason string
}

func (e *InvalidColumnError) Error() string {
	return fmt.Sprintf("invalid column %q: %s", e.Column, e.Reason)
}

// InvalidMethodError indicates an unrecognized method, action or mode token.
type InvalidMethodError struct {
	Kind  string // method|action|format|correlation
	Value string
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Kind, e.Value)
}

// MissingCustomIntervalError is returned for a custom method without any
// interval when the caller does not accept the Z-score fallback.
type MissingCustomIntervalError struct {
	Column string
}

func (e *MissingCustomIntervalError) Error() string {
	return fmt.Sprintf("custom method on %q needs at least one of lower/upper", e.Column)
}
