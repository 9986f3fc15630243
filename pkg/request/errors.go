package request

import "fmt"

// BuildError reports a malformed call shape. It is a caller-contract
// violation, not a runtime condition to recover from.
type BuildError struct {
	Op     string
	Reason string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("building request (%s): %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("building request (%s): %s", e.Op, e.Reason)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
