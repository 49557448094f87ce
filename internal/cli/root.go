// Package cli defines the codewizard command line: serve, migrate, sweep and
// promote.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/codewizard/internal/config"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// Execute runs the CLI until ctx is cancelled or the command returns.
func Execute(ctx context.Context) error {
	return newRootCmd(os.Stderr).ExecuteContext(ctx)
}

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logOut     io.Writer
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	opts := &options{logOut: logOut}

	cmd := &cobra.Command{
		Use:           "codewizard",
		Short:         "Learning platform API: accounts, lessons, quizzes and progress",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"),
		"path to YAML config (optional; env vars override it)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newSweepCmd(opts))
	cmd.AddCommand(newPromoteCmd(opts))
	return cmd
}

// load reads the configuration and installs the logger it describes as
// the slog default.
func (o *options) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, nil, err
	}
	logger := newLogger(cfg, o.logOut)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ensureDBDir creates the database's parent directory, like mkdir -p.
// In-memory databases have none.
func ensureDBDir(path string) error {
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
