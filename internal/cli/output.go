package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	ferrors "github.com/randalmurphal/flowchart/pkg/flowchart/errors"
	"github.com/randalmurphal/flowchart/pkg/flowchart/expr"
	"github.com/randalmurphal/flowchart/pkg/flowchart/service"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution, including a paused run
	ExitFailure      = 1 // Run failed or flowchart is invalid
	ExitCommandError = 2 // Bad arguments, unreadable files, invalid settings
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
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// JSON writes v as indented JSON.
func (f *OutputFormatter) JSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Printf writes a line of text output.
func (f *OutputFormatter) Printf(format string, args ...any) {
	fmt.Fprintf(f.Writer, format+"\n", args...)
}

// Execution renders a run result.
func (f *OutputFormatter) Execution(resp service.ExecuteResponse) error {
	if f.Format == "json" {
		return f.JSON(resp)
	}

	if resp.Status != "" {
		f.Printf("status: %s", resp.Status)
	}
	if resp.RunID != "" {
		f.Printf("run: %s", resp.RunID)
	}
	if resp.Status != "" {
		f.Printf("steps: %d", resp.Steps)
	}
	if resp.Current != "" {
		f.Printf("paused at: %s", resp.Current)
	}
	if ctx := resp.Context; ctx != nil {
		if len(ctx.Output) == 0 {
			f.Printf("output: (none)")
		} else {
			f.Printf("output:")
			for _, v := range ctx.Output {
				f.Printf("  %s", expr.FormatValue(v))
			}
		}
		if len(ctx.Variables) == 0 {
			f.Printf("variables: (none)")
		} else {
			f.Printf("variables:")
			for _, v := range ctx.Variables {
				f.Printf("  %s = %s (%s)", v.Name, expr.FormatValue(v.Value), v.Type)
			}
		}
	}
	if len(resp.Diagnostics) > 0 {
		f.Printf("diagnostics:")
		for _, d := range resp.Diagnostics {
			f.Printf("  [%s] %s: %s", d.NodeID, d.Kind, d.Message)
		}
	}
	f.Failure(resp.Error)
	return nil
}

// Failure renders an error detail in text mode. It is a no-op for nil.
func (f *OutputFormatter) Failure(d *ferrors.Detail) {
	if d == nil || f.Format == "json" {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "error [%s]", d.Code)
	if d.NodeID != "" {
		fmt.Fprintf(&b, " at %s", d.NodeID)
	}
	fmt.Fprintf(&b, ": %s", d.Message)
	f.Printf("%s", b.String())
}
