package cli

import (
	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowchart/pkg/flowchart/service"
)

// ResumeOptions holds flags for the resume command.
type ResumeOptions struct {
	ID         string
	RunID      string
	Inputs     []string
	MetricsOut string
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResumeOptions{}

	cmd := &cobra.Command{
		Use:   "resume <file> --run-id <id>",
		Short: "Continue a run that paused on a breakpoint",
		Long: `Resume loads the latest checkpoint of a paused run and continues it
against the flowchart in <file>. The flowchart must still contain the node
the run paused on.

Runs only survive between invocations with a persistent checkpoint store
(checkpoint.store: sqlite).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ID, "id", "", "flowchart id (default: file name without extension)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run to resume")
	cmd.Flags().StringArrayVarP(&opts.Inputs, "input", "i", nil, "INPUT value as name=value")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file")
	_ = cmd.MarkFlagRequired("run-id")

	return cmd
}

func runResume(rootOpts *RootOptions, opts *ResumeOptions, path string, cmd *cobra.Command) error {
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

	resp, runErr := sess.svc.Resume(ctx, service.ResumeRequest{
		FlowchartID: id,
		RunID:       opts.RunID,
		Inputs:      inputs,
	})
	if err := out.Execution(resp); err != nil {
		return err
	}
	if err := sess.writeMetrics(opts.MetricsOut); err != nil {
		return WrapExitError(ExitCommandError, "write metrics", err)
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "resume failed", runErr)
	}
	return nil
}
