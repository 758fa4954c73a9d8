package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/editorbridge/internal/config"
	"github.com/opencode-ai/editorbridge/internal/editor"
	"github.com/opencode-ai/editorbridge/internal/logging"
	"github.com/opencode-ai/editorbridge/internal/server"
	"github.com/opencode-ai/editorbridge/internal/session"
	"github.com/opencode-ai/editorbridge/internal/tool"
	"github.com/opencode-ai/editorbridge/internal/vcs"
)

var (
	servePort     int
	serveHostname string
	serveDir      string
	serveEditor   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editorbridge server",
	Long: `Start the bridge server that agents connect to over SSE.

The server binds loopback by default and drives the editor configured
via --editor, the config file, or EDITORBRIDGE_EDITOR.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "", "Hostname to listen on")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory")
	serveCmd.Flags().StringVar(&serveEditor, "editor", "", "Editor executable")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	_ = godotenv.Load(".env")

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}

	// Flags override file and environment config.
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveHostname != "" {
		cfg.Host = serveHostname
	}
	if serveEditor != "" {
		cfg.Editor = serveEditor
	}
	if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		logging.Init(logging.Config{
			Level:  logging.ParseLevel(cfg.LogLevel),
			Pretty: prettyLog,
		})
	}

	logging.Info().
		Str("version", Version).
		Str("workdir", workDir).
		Msg("starting editorbridge server")

	registry := tool.NewRegistry(editor.NewCLIEditor(cfg.Editor))
	sessions := session.NewManager()

	serverConfig := server.DefaultConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	serverConfig.Version = Version

	// The branch watcher is best effort: outside a repository /status just
	// omits the branch field.
	watcher, err := vcs.NewWatcher(workDir, func(branch string) {
		logging.Info().Str("branch", branch).Msg("branch changed")
	})
	if err != nil {
		logging.Warn().Err(err).Msg("branch watcher unavailable")
	}
	if watcher != nil {
		watcher.Start()
		defer watcher.Stop()
		serverConfig.Branch = watcher.CurrentBranch
	}

	srv := server.New(serverConfig, registry, sessions)

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Str("addr", "http://"+srv.Addr()).
			Int("tools", registry.Len()).
			Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		// Bind failures (port already taken) land here.
		return err
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown error")
	}

	logging.Info().Msg("server stopped")
	return nil
}
