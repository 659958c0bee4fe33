package kafka

import (
	"errors"
	"fmt"
)

// ErrClusterNotFound is returned when an operation names a cluster that is
// not in the registry. It is reported to the caller; it never brings the
// process down.
var ErrClusterNotFound = errors.New("cluster not found")

// RemoteError wraps a failure from the broker side of an administrative
// call. The underlying error is surfaced as-is and never retried here;
// retries are the caller's decision.
type RemoteError struct {
	Op  string // the administrative operation, e.g. "describe cluster"
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func remoteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}
