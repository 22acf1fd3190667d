package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/seantiz/batchgate/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Batch ran but not every request passed
	ExitCommandError = 2 // Command error (unreadable file, bad metadata, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Report is the printed result of one batch run. OK holds when every
// outcome passed.
type Report struct {
	OK       bool            `json:"ok"`
	Mode     model.Mode      `json:"mode"`
	Outcomes []model.Outcome `json:"outcomes"`
}

// NewReport builds the report for outcomes produced in mode.
func NewReport(mode model.Mode, outcomes []model.Outcome) Report {
	if outcomes == nil {
		outcomes = []model.Outcome{}
	}
	return Report{
		OK:       model.AllPassed(outcomes),
		Mode:     mode,
		Outcomes: outcomes,
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Report writes r in the configured format.
func (f *OutputFormatter) Report(r Report) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	passed, failed := model.Tally(r.Outcomes)
	fmt.Fprintf(f.Writer, "mode: %s  ok: %t  (%d passed, %d failed)\n", r.Mode, r.OK, passed, failed)
	for _, o := range r.Outcomes {
		writeOutcome(f.Writer, o)
	}
	return nil
}

func writeOutcome(w io.Writer, o model.Outcome) {
	switch {
	case o.Verdict != nil:
		status := "EXECUTABLE"
		if !o.Verdict.Executable {
			status = "NOT EXECUTABLE"
		}
		fmt.Fprintf(w, "[%d] %s %s  %s\n", o.Index, o.Action, o.Entity, status)
		if o.Verdict.Note != "" {
			fmt.Fprintf(w, "      note: %s\n", o.Verdict.Note)
		}
		for _, c := range o.Verdict.Conflicts {
			fmt.Fprintf(w, "      %s: %s\n", c.Kind, c.Message)
		}
	case o.Execution != nil:
		status := "OK"
		if !o.Execution.OK {
			status = "FAILED"
		}
		fmt.Fprintf(w, "[%d] %s %s  %s  code=%v\n", o.Index, o.Action, o.Entity, status, o.Execution.ResultCode)
		if o.Execution.Error != "" {
			fmt.Fprintf(w, "      error: %s\n", o.Execution.Error)
		}
	}
}

// JSON writes v as indented JSON.
func (f *OutputFormatter) JSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
