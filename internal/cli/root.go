// Package cli implements the batchgate command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/seantiz/batchgate/internal/backend"
	"github.com/seantiz/batchgate/internal/backend/formclient"
	"github.com/seantiz/batchgate/internal/backend/memory"
	"github.com/seantiz/batchgate/internal/config"
	"github.com/seantiz/batchgate/internal/metadata"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose        bool
	Format         string // "json" | "text"
	BackendURL     string
	BackendTimeout time.Duration
	MetadataPath   string

	// cfg supplies flag defaults from the environment.
	cfg config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the batchgate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{cfg: config.Load()}

	cmd := &cobra.Command{
		Use:   "batchgate",
		Short: "Precheck and execute entity mutation batches",
		Long: `batchgate runs ordered batches of create, update and delete requests
against a CRUD backend. In standard mode every request is executed; in strict
mode each request is only checked, with read-only lookups, and the reasons it
would fail are reported.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.BackendURL, "backend-url", opts.cfg.BackendURL,
		"backend endpoint; empty uses an in-memory backend")
	cmd.PersistentFlags().DurationVar(&opts.BackendTimeout, "backend-timeout", opts.cfg.BackendTimeout,
		"timeout per backend call (0 for none)")
	cmd.PersistentFlags().StringVar(&opts.MetadataPath, "metadata", opts.cfg.MetadataPath,
		"YAML entity catalog; empty uses the built-in catalog")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewEntitiesCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))

	return cmd
}

// logger returns a text logger on w, at debug level when verbose.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return config.NewLogger(w, level, config.LogFormatText)
}

// registry loads the configured entity catalog.
func (o *RootOptions) registry() (*metadata.Registry, error) {
	reg, err := config.LoadRegistry(o.MetadataPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load metadata", err)
	}
	return reg, nil
}

// backend returns the remote form client when a URL is configured, otherwise
// an in-memory backend over reg.
func (o *RootOptions) backend(reg *metadata.Registry, logger *slog.Logger) backend.Backend {
	if o.BackendURL == "" {
		logger.Info("no backend URL configured, using in-memory backend")
		return memory.New(reg)
	}
	return formclient.New(o.BackendURL,
		formclient.WithTimeout(o.BackendTimeout),
		formclient.WithLogger(logger),
	)
}
