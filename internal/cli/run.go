package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/seantiz/batchgate/internal/engine"
	"github.com/seantiz/batchgate/internal/model"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	File string
	Mode string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a batch file",
		Long: `Run the requests in a batch file and print one outcome per request.

The file holds either a JSON array of requests or an object with "mode" and
"requests" members. A --mode flag overrides the file's mode. The command exits
with status 1 when any request did not pass.

Example:
  batchgate run --file batch.json --mode strict
  batchgate run --file - --backend-url http://localhost/api/index.php < batch.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "batch file, or - for stdin (required)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "run mode (standard|strict)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// batchFile is the object form of a batch file.
type batchFile struct {
	Mode     string          `json:"mode"`
	Requests json.RawMessage `json:"requests"`
}

// parseBatchFile decodes data as a request array or a batch object. A
// requests member that is not an array yields no requests.
func parseBatchFile(data []byte) (string, []model.Request, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil, fmt.Errorf("empty batch file")
	}

	var mode string
	raw := json.RawMessage(data)
	if data[0] == '{' {
		var f batchFile
		if err := json.Unmarshal(data, &f); err != nil {
			return "", nil, fmt.Errorf("decode batch file: %w", err)
		}
		mode, raw = f.Mode, bytes.TrimSpace(f.Requests)
	}

	var requests []model.Request
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &requests); err != nil {
			return "", nil, fmt.Errorf("decode requests: %w", err)
		}
	}
	return mode, requests, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func runBatch(opts *RunOptions, cmd *cobra.Command) error {
	logger := opts.logger(cmd.ErrOrStderr())

	data, err := readInput(opts.File, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read batch file", err)
	}
	fileMode, requests, err := parseBatchFile(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid batch file", err)
	}

	modeName := fileMode
	if opts.Mode != "" {
		modeName = opts.Mode
	}
	mode, err := model.ParseMode(modeName)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid mode", err)
	}

	reg, err := opts.registry()
	if err != nil {
		return err
	}
	be := opts.backend(reg, logger)

	logger.Debug("running batch", "mode", string(mode), "requests", len(requests))
	batch := engine.NewBatch(requests, mode, be, reg, engine.WithLogger(logger))
	report := NewReport(batch.Mode(), batch.Run(cmd.Context()))

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if err := out.Report(report); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}
	if !report.OK {
		return NewExitError(ExitFailure, "batch not ok")
	}
	return nil
}
