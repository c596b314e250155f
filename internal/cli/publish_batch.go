package cli

import (
	"github.com/spf13/cobra"

	"service-dispatch/internal/config"
)

// NewPublishBatchCommand creates the publish-batch command.
func NewPublishBatchCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "publish-batch",
		Short: "Publish the jobs of a file one after another",
		Long: `Publish every job listed under "jobs" in a YAML or JSON file, pausing
interval_seconds between cycles. Each job runs a full bidding cycle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublishBatch(rootOpts, file, cmd)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "jobs file (.yaml, .yml or .json)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runPublishBatch(rootOpts *RootOptions, file string, cmd *cobra.Command) error {
	fleet, err := config.LoadFleet(file)
	if err != nil {
		return WrapExitError(ExitCommandError, "read jobs file", err)
	}
	jobs, err := fleet.MatchingJobs()
	if err != nil {
		return WrapExitError(ExitCommandError, "read jobs file", err)
	}
	if len(jobs) == 0 {
		return NewExitError(ExitCommandError, "jobs file lists no jobs")
	}

	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	outcomes, err := s.engine().RunBatch(commandContext(cmd), jobs, fleet.Interval())
	if emitErr := emitOutcomes(rootOpts.formatter(cmd), outcomes); emitErr != nil {
		return emitErr
	}
	if err != nil {
		return commandError("publish batch", err)
	}
	return nil
}
