package cli

import (
	"github.com/spf13/cobra"

	"github.com/seantiz/batchgate/internal/demo"
	"github.com/seantiz/batchgate/internal/engine"
	"github.com/seantiz/batchgate/internal/model"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Mode  string
	Photo string
	Seed  uint64
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a sample graduation-records batch",
		Long: `Run a sample batch against the alumnograduacion entity.

In strict mode the batch holds an incomplete duplicate request followed by a
complete one; in standard mode it creates a single complete student. Without
--photo a small built-in JPEG is attached.

Example:
  batchgate demo --mode strict
  batchgate demo --mode standard --photo acto.jpg --backend-url http://localhost/api/index.php`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", string(model.ModeStrict), "run mode (standard|strict)")
	cmd.Flags().StringVar(&opts.Photo, "photo", "", "JPEG to attach")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed for generated values (0 for random)")

	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
	logger := opts.logger(cmd.ErrOrStderr())

	mode, err := model.ParseMode(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid mode", err)
	}

	photo := demo.SamplePhoto()
	if opts.Photo != "" {
		if photo, err = demo.LoadPhoto(opts.Photo); err != nil {
			return WrapExitError(ExitCommandError, "failed to load photo", err)
		}
	}

	gen := demo.New()
	if opts.Seed != 0 {
		gen = demo.NewSeeded(opts.Seed)
	}

	requests := gen.StandardBatch(&photo)
	if mode == model.ModeStrict {
		requests = gen.StrictBatch(&photo)
	}

	reg, err := opts.registry()
	if err != nil {
		return err
	}
	batch := engine.NewBatch(requests, mode, opts.backend(reg, logger), reg, engine.WithLogger(logger))
	report := NewReport(batch.Mode(), batch.Run(cmd.Context()))

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := out.Report(report); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}
	return nil
}
