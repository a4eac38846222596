package dna

import "fmt"

// FormatError reports a malformed or truncated binary container. It aborts
// the load; partially decoded data is never returned.
type FormatError struct {
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("dna: malformed container at byte %d: %s", e.Offset, e.Reason)
	}
	return fmt.Sprintf("dna: malformed container: %s", e.Reason)
}

// UnsupportedVersionError reports a container whose version field is newer
// than this package understands. Loaders fail rather than guess at unknown
// section layouts.
type UnsupportedVersionError struct {
	Version uint16
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("dna: unsupported container version %d (current %d)", e.Version, FormatVersion)
}

// DanglingReferenceError reports a behavior graph that names a joint, blend
// shape, animated map, or channel missing from the corresponding table.
// Raised at load time, never deferred to evaluation.
type DanglingReferenceError struct {
	Kind  string // "joint", "shape", "map", "control", "channel"
	Index int
	Where string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dna: %s references unknown %s %d", e.Where, e.Kind, e.Index)
}

// CyclicExpressionError reports a pose-space expression whose inputs are
// not raw controls. Expressions form a flat layer over the control vector;
// an expression feeding another expression is a dependency cycle in the
// channel graph and is rejected when the document is built.
type CyclicExpressionError struct {
	Expression string
	Input      int
}

func (e *CyclicExpressionError) Error() string {
	return fmt.Sprintf("dna: expression %q input %d is not a raw control", e.Expression, e.Input)
}
