package calibrate

import "fmt"

// IndexMismatchError reports a capture whose vertex indices or joint and
// shape identities do not line up with the document. Calibrate depends on
// stable indices; callers hitting this should rebuild through Overwrite
// instead.
type IndexMismatchError struct {
	Kind string // "lod", "vertex", "joint", "shape"
	LOD  int    // -1 when the mismatch is not scoped to a level of detail
	Name string // offending joint or shape name for identity mismatches
	Want int
	Got  int
}

func (e *IndexMismatchError) Error() string {
	switch e.Kind {
	case "lod":
		return fmt.Sprintf("calibrate: capture has %d lods, document has %d", e.Got, e.Want)
	case "vertex":
		return fmt.Sprintf("calibrate: lod %d: capture has %d vertices, document has %d", e.LOD, e.Got, e.Want)
	case "joint":
		return fmt.Sprintf("calibrate: capture names unknown joint %q", e.Name)
	case "shape":
		return fmt.Sprintf("calibrate: lod %d: capture names unknown blend shape %q", e.LOD, e.Name)
	}
	return fmt.Sprintf("calibrate: capture does not match document (%s)", e.Kind)
}
