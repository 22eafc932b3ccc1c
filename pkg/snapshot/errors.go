package snapshot

import "fmt"

// InvariantError is the panic value raised when the symbol table or type
// model is in a state that upstream analysis must never produce, such as a
// partial type or an unbound import reaching the snapshot builder.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "snapshot invariant violated: " + e.Msg
}

// ShapeError is the panic value raised when two snapshots handed to Diff do
// not have the shape the builder produces
type ShapeError struct {
	Name string
	Msg  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("malformed snapshot for %s: %s", e.Name, e.Msg)
}

func invariant(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
