package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowchart/pkg/flowchart"
	ferrors "github.com/randalmurphal/flowchart/pkg/flowchart/errors"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Nodes    int               `json:"nodes"`
	Edges    int               `json:"edges"`
	Errors   []*ferrors.Detail `json:"errors,omitempty"`
	Warnings []WarningView     `json:"warnings,omitempty"`
}

// WarningView is a lint finding.
type WarningView struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a flowchart without running it",
		Long: `Validate hydrates a flowchart file (.json, .yaml or .yml) and reports
structural errors. Lint warnings, such as unreachable nodes or branches
with a missing edge, are listed but do not fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	payload, err := loadPayload(path)
	if err != nil {
		return err
	}

	result := ValidationResult{Nodes: len(payload.Nodes), Edges: len(payload.Edges)}
	g, err := flowchart.Hydrate(payload, flowchart.WithLintLogger(nil))
	if err != nil {
		for _, e := range splitJoined(err) {
			result.Errors = append(result.Errors, ferrors.Describe(e))
		}
	} else {
		result.Valid = true
		for _, w := range g.Lint() {
			result.Warnings = append(result.Warnings, WarningView{ID: w.ID, Message: w.Message})
		}
	}

	if opts.Format == "json" {
		if err := out.JSON(result); err != nil {
			return err
		}
	} else {
		if result.Valid {
			out.Printf("valid: %d nodes, %d edges", result.Nodes, result.Edges)
		} else {
			out.Printf("invalid: %d problem(s)", len(result.Errors))
		}
		for _, d := range result.Errors {
			out.Printf("  %s", d.Message)
		}
		for _, w := range result.Warnings {
			out.Printf("warning [%s]: %s", w.ID, w.Message)
		}
	}

	if !result.Valid {
		return WrapExitError(ExitFailure, fmt.Sprintf("%s is invalid", path), err)
	}
	return nil
}

// splitJoined expands an errors.Join result into its parts.
func splitJoined(err error) []error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}
	return []error{err}
}
