package tool

import (
	"context"
	"encoding/json"

	"github.com/opencode-ai/editorbridge/internal/editor"
	"github.com/opencode-ai/editorbridge/internal/logging"
	"github.com/opencode-ai/editorbridge/internal/vcs"
)

type changedFilesArgs struct {
	RepoPath string `json:"repoPath"`
	FromRef  string `json:"fromRef"`
	ToRef    string `json:"toRef"`
}

func (a *changedFilesArgs) validate() error {
	if a.RepoPath == "" {
		return invalidArgf("repoPath is required")
	}
	if a.FromRef == "" {
		a.FromRef = vcs.DefaultFromRef
	}
	if a.ToRef == "" {
		a.ToRef = vcs.DefaultToRef
	}
	return nil
}

// getChangedFiles lists the diff between two refs. Results are computed per
// call; the working tree may have moved since the last one.
func (r *Registry) getChangedFiles(ctx context.Context, args json.RawMessage) (any, error) {
	var in changedFilesArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	files, err := vcs.ChangedFiles(ctx, in.RepoPath, in.FromRef, in.ToRef)
	if err != nil {
		return nil, externalf(err)
	}
	if files == nil {
		files = []vcs.ChangedFile{}
	}

	return map[string]any{
		"files":   files,
		"fromRef": in.FromRef,
		"toRef":   in.ToRef,
	}, nil
}

// openChangedFiles opens every changed file between two refs: deletions are
// skipped, additions open as plain files, everything else opens as a diff
// against fromRef. Per-file open failures are logged and skipped; they never
// abort the batch.
func (r *Registry) openChangedFiles(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		changedFilesArgs
		Isolated  bool `json:"isolated"`
		NewWindow bool `json:"newWindow"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	// Isolation takes precedence; the legacy window mode is suppressed.
	newWindow := in.NewWindow
	if in.Isolated {
		newWindow = false
	}

	files, err := vcs.ChangedFiles(ctx, in.RepoPath, in.FromRef, in.ToRef)
	if err != nil {
		return nil, externalf(err)
	}

	opened := []string{}
	for _, f := range files {
		if f.Status == vcs.StatusDeleted {
			// Nothing to diff against an absent working file.
			continue
		}

		opts := editor.OpenOptions{
			Pin: true,
			// First open lands in the dedicated group/window; the rest
			// follow it.
			NewWindow: (in.Isolated || newWindow) && len(opened) == 0,
		}

		var openErr error
		if f.Status == vcs.StatusAdded {
			// No prior version exists; open plain.
			openErr = r.editor.OpenFile(ctx, f.Path, opts)
		} else {
			openErr = r.editor.OpenDiff(ctx, f.Path, in.FromRef, opts)
		}
		if openErr != nil {
			logging.Warn().Str("path", f.Path).Err(openErr).Msg("failed to open changed file, skipping")
			continue
		}
		opened = append(opened, f.Path)
	}

	return map[string]any{
		"opened":    opened,
		"total":     len(files),
		"isolated":  in.Isolated,
		"newWindow": newWindow,
	}, nil
}
