// Package vcs provides version control system integration.
//
// All operations shell out to the git CLI and are computed on demand: the
// working tree may change between calls, so nothing here is cached.
package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status classifies a changed file.
type Status string

// Statuses reported by git diff --name-status.
const (
	StatusAdded    Status = "A"
	StatusModified Status = "M"
	StatusDeleted  Status = "D"
	StatusRenamed  Status = "R"
	StatusCopied   Status = "C"
)

// ChangedFile is one entry of a diff between two refs. Path is absolute; for
// renames and copies it is the current (new) path.
type ChangedFile struct {
	Path   string `json:"path"`
	Status Status `json:"status"`
}

// Default refs for change listings.
const (
	DefaultFromRef = "HEAD~1"
	DefaultToRef   = "HEAD"
)

// git runs a git subcommand in dir and returns its trimmed stdout.
func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ChangedFiles lists the files that differ between fromRef and toRef in the
// repository at repoPath. Order matches the underlying diff output.
func ChangedFiles(ctx context.Context, repoPath, fromRef, toRef string) ([]ChangedFile, error) {
	if fromRef == "" {
		fromRef = DefaultFromRef
	}
	if toRef == "" {
		toRef = DefaultToRef
	}

	out, err := git(ctx, repoPath, "diff", "--name-status", fromRef, toRef)
	if err != nil {
		return nil, err
	}

	var files []ChangedFile
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		file, ok := parseNameStatus(repoPath, line)
		if !ok {
			continue
		}
		files = append(files, file)
	}
	return files, nil
}

// parseNameStatus parses one line of git diff --name-status output.
// Plain changes look like "M\tpath"; renames and copies carry a similarity
// score and both paths: "R100\told\tnew".
func parseNameStatus(repoPath, line string) (ChangedFile, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 || fields[0] == "" {
		return ChangedFile{}, false
	}

	status := Status(fields[0][:1])
	path := fields[1]
	if (status == StatusRenamed || status == StatusCopied) && len(fields) >= 3 {
		path = fields[2]
	}

	switch status {
	case StatusAdded, StatusModified, StatusDeleted, StatusRenamed, StatusCopied:
	default:
		return ChangedFile{}, false
	}

	return ChangedFile{
		Path:   filepath.Join(repoPath, path),
		Status: status,
	}, true
}

// RepoRoot returns the top-level directory of the repository containing dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	return git(ctx, dir, "rev-parse", "--show-toplevel")
}

// CurrentBranch returns the current branch name, or an empty string when dir
// is not a repository.
func CurrentBranch(dir string) string {
	out, err := git(context.Background(), dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return ""
	}
	return out
}

// MergeBase returns the merge base of HEAD and ref.
func MergeBase(ctx context.Context, repoPath, ref string) (string, error) {
	return git(ctx, repoPath, "merge-base", "HEAD", ref)
}

// ShowFile returns the content of path as of ref. Path may be absolute or
// repo-relative. Returns an error when the file did not exist at ref.
func ShowFile(ctx context.Context, repoPath, ref, path string) (string, error) {
	rel := path
	if filepath.IsAbs(path) {
		root, err := RepoRoot(ctx, repoPath)
		if err != nil {
			return "", err
		}
		rel, err = filepath.Rel(root, path)
		if err != nil {
			return "", err
		}
	}

	cmd := exec.CommandContext(ctx, "git", "show", ref+":"+filepath.ToSlash(rel))
	cmd.Dir = repoPath
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("git show: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("git show: %w", err)
	}
	return string(out), nil
}
