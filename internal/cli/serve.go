package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/seantiz/batchgate/internal/api"
	"github.com/seantiz/batchgate/internal/config"
	"github.com/seantiz/batchgate/internal/engine"
	"github.com/seantiz/batchgate/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ListenAddr string
	DBPath     string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the batch HTTP API. Batches and their outcomes are recorded in a
SQLite database. Flags default to the BATCHGATE_* environment variables.

Example:
  batchgate serve --listen :8080 --db ./batchgate.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.ListenAddr, "listen", rootOpts.cfg.ListenAddr, "listen address")
	cmd.Flags().StringVar(&opts.DBPath, "db", rootOpts.cfg.DBPath, "path to SQLite database")

	return cmd
}

func serve(opts *ServeOptions, w io.Writer) error {
	cfg := opts.cfg
	cfg.ListenAddr = opts.ListenAddr
	cfg.DBPath = opts.DBPath
	cfg.BackendURL = opts.BackendURL
	if opts.Verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	logger := config.NewLogger(w, cfg.LogLevel, cfg.LogFormat)

	logger.Info("batchgate: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"backend_url", cfg.BackendURL,
	)

	reg, err := opts.registry()
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	eng := engine.NewEngine(db, opts.backend(reg, logger), reg, logger)
	defer eng.Wait()

	srv := api.NewServer(cfg.ListenAddr, db, eng, logger)
	if err := srv.Run(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	return nil
}
