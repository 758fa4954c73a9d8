package tool

import (
	"context"
	"encoding/json"

	"github.com/opencode-ai/editorbridge/internal/editor"
)

// openFile opens a single file, optionally moving the caret to a line.
func (r *Registry) openFile(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Path string `json:"path"`
		Line int    `json:"line"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, invalidArgf("path is required")
	}
	if in.Line < 0 {
		return nil, invalidArgf("line must be positive")
	}

	if err := r.editor.OpenFile(ctx, in.Path, editor.OpenOptions{Line: in.Line}); err != nil {
		return nil, externalf(err)
	}

	return map[string]any{
		"success": true,
		"path":    in.Path,
	}, nil
}

// openDiff opens a working-copy-vs-ref comparison. The executor only issues
// the comparison request; a file missing at ref is the diff view's problem.
func (r *Registry) openDiff(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Path string `json:"path"`
		Ref  string `json:"ref"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, invalidArgf("path is required")
	}
	if in.Ref == "" {
		in.Ref = "HEAD"
	}

	if err := r.editor.OpenDiff(ctx, in.Path, in.Ref, editor.OpenOptions{}); err != nil {
		return nil, externalf(err)
	}

	return map[string]any{
		"success": true,
		"path":    in.Path,
		"ref":     in.Ref,
	}, nil
}
