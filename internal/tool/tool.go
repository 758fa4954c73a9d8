// Package tool provides the catalog of editor operations callable over the
// bridge and their executors.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Definition describes one callable tool. Definitions are created once at
// startup and never mutated.
type Definition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Executor performs one tool invocation. The returned value must be
// JSON-serializable.
type Executor func(ctx context.Context, args json.RawMessage) (any, error)

// Error sentinels distinguishing argument problems from failures of the
// underlying editor or version-control operation.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrExternalTool    = errors.New("external tool failure")
)

func invalidArgf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, a...))
}

func externalf(err error) error {
	return fmt.Errorf("%w: %v", ErrExternalTool, err)
}

// decodeArgs unmarshals tool arguments into dst, treating malformed input as
// an argument error.
func decodeArgs(args json.RawMessage, dst any) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return invalidArgf("malformed arguments: %v", err)
	}
	return nil
}
