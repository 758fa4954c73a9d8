// Package editor abstracts the host editor's document, window and command
// surfaces so tool executors can be tested against a fake.
package editor

import "context"

// OpenOptions controls how a file or diff is presented.
type OpenOptions struct {
	// Line moves the caret to this 1-based line and scrolls it into view.
	// Zero means no caret movement.
	Line int
	// Pin keeps the opened item from being replaced by the next open.
	Pin bool
	// NewWindow opens the item in a fresh top-level window.
	NewWindow bool
}

// Editor is the host editor seen by the tool executors.
type Editor interface {
	// OpenFile opens path in the editing surface.
	OpenFile(ctx context.Context, path string, opts OpenOptions) error
	// OpenDiff opens a two-pane comparison between the working copy of path
	// and its content at ref. The diff view itself handles the case where
	// the file did not exist at ref.
	OpenDiff(ctx context.Context, path, ref string, opts OpenOptions) error
	// ExecuteCommand invokes an arbitrary editor command by id with
	// positional arguments and returns its result value, or nil.
	ExecuteCommand(ctx context.Context, command string, args []string) (any, error)
}
