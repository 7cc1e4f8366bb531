package cli

import (
	"github.com/spf13/cobra"

	ferrors "github.com/randalmurphal/flowchart/pkg/flowchart/errors"
	"github.com/randalmurphal/flowchart/pkg/flowchart/service"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	ID                string
	RunID             string
	MaxSteps          int
	IgnoreBreakpoints bool
	Inputs            []string
	MetricsOut        string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a flowchart",
		Long: `Run stores the flowchart in the configured repository and executes it
from START until it reaches END, fails, or pauses on a breakpoint.

A paused run is checkpointed when a checkpoint store is configured and can
be continued with "flowchart resume --run-id".

INPUT nodes read values from --input name=value; repeat the flag to queue
several values for the same variable.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "flowchart id (default: file name without extension)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id (default: random)")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, "step budget (default: from settings)")
	cmd.Flags().BoolVar(&opts.IgnoreBreakpoints, "ignore-breakpoints", false, "run through breakpoints")
	cmd.Flags().StringArrayVarP(&opts.Inputs, "input", "i", nil, "INPUT value as name=value")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

	inputs, err := parseAssignments(opts.Inputs)
	if err != nil {
		return err
	}

	sess, err := openSession(ctx, rootOpts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()

	id := opts.ID
	if id == "" {
		id = flowchartID(path)
	}
	if err := sess.saveFile(ctx, id, path); err != nil {
		return reportStoreError(out, "store flowchart", err)
	}

	resp, runErr := sess.svc.Execute(ctx, service.ExecuteRequest{
		FlowchartID: id,
		Options: service.ExecuteOptions{
			IgnoreBreakpoints: opts.IgnoreBreakpoints || sess.settings.IgnoreBreakpoints,
			MaxSteps:          opts.MaxSteps,
			RunID:             opts.RunID,
			Inputs:            inputs,
		},
	})
	if err := out.Execution(resp); err != nil {
		return err
	}
	if err := sess.writeMetrics(opts.MetricsOut); err != nil {
		return WrapExitError(ExitCommandError, "write metrics", err)
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return nil
}

// reportStoreError prints a failed save and picks the exit code: an
// invalid flowchart is a failure, anything else a command error.
func reportStoreError(out *OutputFormatter, msg string, err error) error {
	if _, ok := err.(*ExitError); ok {
		return err
	}
	resp := service.ExecuteResponse{Error: ferrors.Describe(err)}
	if out.Format == "json" {
		if jerr := out.JSON(resp); jerr != nil {
			return jerr
		}
	} else {
		out.Failure(resp.Error)
	}
	if ferrors.CodeOf(err) == ferrors.CodeInvalidGraph {
		return WrapExitError(ExitFailure, msg, err)
	}
	return WrapExitError(ExitCommandError, msg, err)
}
