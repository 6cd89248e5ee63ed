package scene

import (
	"errors"
	"fmt"
)

// ErrMalformedIndices is the sentinel wrapped by every IndexError.
var ErrMalformedIndices = errors.New("malformed index buffer")

// IndexError reports a corrupt index buffer on one primitive of one node.
type IndexError struct {
	Node      int
	Primitive int
	// Index is the offending position in the index buffer, or -1 when the buffer length is wrong.
	Index int
	// Value is the offending index value.
	Value uint32
	// Count is the number of indices (length errors) or positions (range errors) involved.
	Count  int
	Reason string
}

func (e *IndexError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("node %d primitive %d: %s: %d indices is not a multiple of 3",
			e.Node, e.Primitive, e.Reason, e.Count)
	}
	return fmt.Sprintf("node %d primitive %d: %s: index[%d] = %d, have %d positions",
		e.Node, e.Primitive, e.Reason, e.Index, e.Value, e.Count)
}

// Unwrap makes errors.Is(err, ErrMalformedIndices) hold for every IndexError.
func (e *IndexError) Unwrap() error {
	return ErrMalformedIndices
}
