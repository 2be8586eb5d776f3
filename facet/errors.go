package facet

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned at wiring time when a required
	// collaborator is missing.
	ErrConfiguration = errors.New("facet: invalid configuration")

	// ErrShardMismatch is returned by a strict IndexCounter when a class and
	// the result it is counted against have a different number of shards.
	ErrShardMismatch = errors.New("facet: shard count mismatch")
)

// ClassError reports the failure of one facet class. Sibling classes are
// unaffected.
type ClassError struct {
	Facet string
	Class string
	Err   error
}

func (e *ClassError) Error() string {
	switch {
	case e.Class == "":
		return fmt.Sprintf("facet %s: %v", e.Facet, e.Err)
	case e.Facet == "":
		return fmt.Sprintf("facet class %s: %v", e.Class, e.Err)
	default:
		return fmt.Sprintf("facet %s: class %s: %v", e.Facet, e.Class, e.Err)
	}
}

func (e *ClassError) Unwrap() error { return e.Err }
