package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/opencode-ai/editorbridge/internal/logging"
	"github.com/opencode-ai/editorbridge/internal/vcs"
)

// CLIEditor drives an editor through its command-line interface (VS Code
// compatible: --goto, --diff, --new-window). The ref side of a diff is
// materialized to a temporary file since the CLI cannot address git objects.
type CLIEditor struct {
	// Bin is the editor executable, e.g. "code".
	Bin string
}

// NewCLIEditor returns a CLI-backed editor using the given executable.
func NewCLIEditor(bin string) *CLIEditor {
	if bin == "" {
		bin = "code"
	}
	return &CLIEditor{Bin: bin}
}

// OpenFile opens path, optionally at a caret line via --goto.
func (e *CLIEditor) OpenFile(ctx context.Context, path string, opts OpenOptions) error {
	args := e.windowArgs(opts)
	if opts.Line > 0 {
		args = append(args, "--goto", fmt.Sprintf("%s:%d", path, opts.Line))
	} else {
		args = append(args, path)
	}
	_, err := e.run(ctx, args)
	return err
}

// OpenDiff opens a two-pane comparison of path's working copy against its
// content at ref. A file missing at ref diffs against an empty left side.
func (e *CLIEditor) OpenDiff(ctx context.Context, path, ref string, opts OpenOptions) error {
	refSide, err := e.materializeRef(ctx, path, ref)
	if err != nil {
		return err
	}

	args := append(e.windowArgs(opts), "--diff", refSide, path)
	_, err = e.run(ctx, args)
	return err
}

// ExecuteCommand passes the command id and positional arguments through to
// the editor executable and returns its trimmed stdout, or nil when empty.
func (e *CLIEditor) ExecuteCommand(ctx context.Context, command string, args []string) (any, error) {
	out, err := e.run(ctx, append([]string{command}, args...))
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return out, nil
}

// windowArgs maps window placement options to CLI flags. Pin has no CLI
// flag (the VS Code CLI cannot pin a tab), so this adapter drops it; editors
// integrated through a richer channel can honor it.
func (e *CLIEditor) windowArgs(opts OpenOptions) []string {
	if opts.NewWindow {
		return []string{"--new-window"}
	}
	return []string{"--reuse-window"}
}

func (e *CLIEditor) run(ctx context.Context, args []string) (string, error) {
	logging.Debug().Str("bin", e.Bin).Strs("args", args).Msg("editor invocation")

	cmd := exec.CommandContext(ctx, e.Bin, args...)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("%s: %s", e.Bin, strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("%s: %w", e.Bin, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// materializeRef writes path's content at ref to a temp file and returns its
// name. When the file did not exist at ref the temp file is left empty so the
// diff view shows a pure addition.
func (e *CLIEditor) materializeRef(ctx context.Context, path, ref string) (string, error) {
	content, err := vcs.ShowFile(ctx, filepath.Dir(path), ref, path)
	if err != nil {
		logging.Debug().Str("path", path).Str("ref", ref).Err(err).
			Msg("no content at ref, diffing against empty")
		content = ""
	}

	base := filepath.Base(path)
	tmp, err := os.CreateTemp("", fmt.Sprintf("%s.%s.*", base, sanitizeRef(ref)))
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := tmp.WriteString(content); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// sanitizeRef makes a ref safe for use in a file name.
func sanitizeRef(ref string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '~', '^':
			return '-'
		}
		return r
	}, ref)
}
