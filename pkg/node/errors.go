package node

import "fmt"

// LifecycleError reports an operation attempted from a state that does
// not permit it — e.g. Start called twice, or Originate after Close.
type LifecycleError struct {
	Op    string
	State State
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("node: %s: invalid from state %s", e.Op, e.State)
}
