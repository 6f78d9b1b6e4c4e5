package driver

import "fmt"

// LoadError reports an input file that could not be read. It is fatal for
// the run.
type LoadError struct {
	Path string
	What string // "descriptor", "template directory"
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot read %s %s: %v", e.What, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
