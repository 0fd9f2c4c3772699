package neo4j

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks failures to reach the server or read its response.
	ErrTransport = errors.New("neo4j transport error")
	// ErrStatement marks statements the server rejected.
	ErrStatement = errors.New("neo4j statement error")
)

// ExecutionError describes a failed statement. Err is ErrTransport or
// ErrStatement, possibly wrapping the underlying cause.
type ExecutionError struct {
	Statement  string
	Parameters map[string]any
	Code       string
	Message    string
	Err        error
}

func (e *ExecutionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %s (statement: %s)", e.Err, e.Code, e.Message, e.Statement)
	}
	return fmt.Sprintf("%s: %s (statement: %s)", e.Err, e.Message, e.Statement)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
