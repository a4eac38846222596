package uvmap

import "fmt"

// MappingError reports that a mesh cannot participate in UV
// correspondence because it lacks the data the mapper searches.
type MappingError struct {
	Mesh   string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("uvmap: mesh %q: %s", e.Mesh, e.Reason)
}
