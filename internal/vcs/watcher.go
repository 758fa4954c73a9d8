package vcs

import (
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/opencode-ai/editorbridge/internal/logging"
)

// Watcher tracks git branch changes by monitoring the .git directory.
type Watcher struct {
	watcher       *fsnotify.Watcher
	workDir       string
	gitDir        string
	currentBranch string
	onChange      func(branch string)
	stopCh        chan struct{}
	doneCh        chan struct{}
	started       bool
	mu            sync.RWMutex
}

// NewWatcher creates a branch watcher for the given work directory. The
// onChange callback (optional) fires whenever the checked-out branch changes.
// Returns nil, nil if the directory is not a git repository.
func NewWatcher(workDir string, onChange func(branch string)) (*Watcher, error) {
	gitDir := findGitDir(workDir)
	if gitDir == "" {
		logging.Debug().Str("workDir", workDir).Msg("not a git repository, branch watcher disabled")
		return nil, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the .git directory itself; watching HEAD directly is unreliable
	// because git replaces the file on checkout.
	if err := w.Add(gitDir); err != nil {
		w.Close()
		return nil, err
	}

	branch := CurrentBranch(workDir)
	logging.Info().Str("branch", branch).Str("gitDir", gitDir).Msg("branch watcher initialized")

	return &Watcher{
		watcher:       w,
		workDir:       workDir,
		gitDir:        gitDir,
		currentBranch: branch,
		onChange:      onChange,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}, nil
}

// Start begins watching for branch changes.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 && strings.HasSuffix(ev.Name, "HEAD") {
				w.checkBranchChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Msg("branch watcher error")
		}
	}
}

func (w *Watcher) checkBranchChange() {
	newBranch := CurrentBranch(w.workDir)

	w.mu.Lock()
	oldBranch := w.currentBranch
	changed := newBranch != oldBranch
	if changed {
		w.currentBranch = newBranch
	}
	onChange := w.onChange
	w.mu.Unlock()

	if changed {
		logging.Info().Str("from", oldBranch).Str("to", newBranch).Msg("branch changed")
		if onChange != nil {
			onChange(newBranch)
		}
	}
}

// CurrentBranch returns the currently tracked branch name.
func (w *Watcher) CurrentBranch() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentBranch
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
		// Already stopped
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}

	return w.watcher.Close()
}

// findGitDir locates the .git directory for a work directory. Uses git so
// worktrees (where .git is a file) resolve correctly.
func findGitDir(workDir string) string {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = workDir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}

	gitDir := strings.TrimSpace(string(out))
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(workDir, gitDir)
	}
	return gitDir
}
