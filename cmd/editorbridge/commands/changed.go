package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/editorbridge/internal/vcs"
)

var (
	changedFrom string
	changedTo   string
	changedDir  string
	changedStat bool
)

var changedCmd = &cobra.Command{
	Use:   "changed",
	Short: "List files changed between two refs",
	Long: `List the files that differ between two refs in a local repository.

This reads the repository directly and does not require a running
server. With --stat, per-file line additions and deletions are shown.`,
	RunE: runChanged,
}

func init() {
	changedCmd.Flags().StringVar(&changedFrom, "from", vcs.DefaultFromRef, "Base ref")
	changedCmd.Flags().StringVar(&changedTo, "to", vcs.DefaultToRef, "Target ref")
	changedCmd.Flags().StringVar(&changedDir, "directory", "", "Repository directory")
	changedCmd.Flags().BoolVar(&changedStat, "stat", false, "Show line additions and deletions per file")
}

func runChanged(cmd *cobra.Command, args []string) error {
	repoPath, err := GetWorkDir(changedDir)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	files, err := vcs.ChangedFiles(ctx, repoPath, changedFrom, changedTo)
	if err != nil {
		return err
	}

	for _, file := range files {
		if !changedStat {
			fmt.Printf("%s\t%s\n", file.Status, file.Path)
			continue
		}

		additions, deletions := fileStats(ctx, repoPath, file)
		fmt.Printf("%s\t+%d\t-%d\t%s\n", file.Status, additions, deletions, file.Path)
	}
	return nil
}

// fileStats diffs a file's content at the two refs. Added files diff against
// empty; deleted files read the worktree side as empty.
func fileStats(ctx context.Context, repoPath string, file vcs.ChangedFile) (additions, deletions int) {
	var before, after string

	if file.Status != vcs.StatusAdded {
		before, _ = vcs.ShowFile(ctx, repoPath, changedFrom, file.Path)
	}
	if file.Status != vcs.StatusDeleted {
		if content, err := vcs.ShowFile(ctx, repoPath, changedTo, file.Path); err == nil {
			after = content
		} else if data, err := os.ReadFile(file.Path); err == nil {
			after = string(data)
		}
	}

	return vcs.DiffStats(before, after)
}
