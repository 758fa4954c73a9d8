package tool

import (
	"context"
	"encoding/json"
)

// runCommand invokes an arbitrary editor command by id. Deliberately
// unconstrained: the bridge serves trusted local automation, so any valid
// command id is accepted.
func (r *Registry) runCommand(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Command == "" {
		return nil, invalidArgf("command is required")
	}

	result, err := r.editor.ExecuteCommand(ctx, in.Command, in.Args)
	if err != nil {
		return nil, externalf(err)
	}

	return map[string]any{
		"command": in.Command,
		"result":  result,
	}, nil
}
