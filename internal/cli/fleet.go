package cli

import (
	"time"

	"github.com/spf13/cobra"

	"service-dispatch/internal/config"
	"service-dispatch/internal/service/orchestrator"
)

// FleetOptions holds the flags of the fleet command.
type FleetOptions struct {
	File         string
	KeepRunning  bool
	ReadyTimeout time.Duration
}

// NewFleetCommand creates the fleet command.
func NewFleetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FleetOptions{}

	cmd := &cobra.Command{
		Use:   "fleet",
		Short: "Run couriers and the manager together in one process",
		Long: `Start every courier listed in the fleet file, wait until all of them
listen, then publish the file's jobs. Without --keep-running the couriers stop
once the last job finished.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFleet(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "fleet file (.yaml, .yml or .json)")
	cmd.Flags().BoolVar(&opts.KeepRunning, "keep-running", false, "keep couriers listening after the jobs ran")
	cmd.Flags().DurationVar(&opts.ReadyTimeout, "ready-timeout", 10*time.Second, "how long to wait for couriers to subscribe")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runFleet(rootOpts *RootOptions, opts *FleetOptions, cmd *cobra.Command) error {
	fleet, err := config.LoadFleet(opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "read fleet file", err)
	}
	jobs, err := fleet.MatchingJobs()
	if err != nil {
		return WrapExitError(ExitCommandError, "read fleet file", err)
	}

	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	o := orchestrator.New(s.store, s.engine(), s.logger, s.metrics)
	report, err := o.Run(commandContext(cmd), orchestrator.Plan{
		Couriers:     fleet.Couriers,
		Jobs:         jobs,
		Interval:     fleet.Interval(),
		StopWhenDone: !opts.KeepRunning,
		ReadyTimeout: opts.ReadyTimeout,
	})
	if emitErr := emitOutcomes(rootOpts.formatter(cmd), report.Outcomes); emitErr != nil {
		return emitErr
	}
	return err
}
