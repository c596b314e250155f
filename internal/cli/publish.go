package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/config"
	"service-dispatch/internal/service/matching"
)

// PublishOptions holds the flags of the publish command.
type PublishOptions struct {
	Pickup      string
	Dropoff     string
	Reward      float64
	WaitSeconds float64
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one job and wait for its assignment",
		Long: `Publish one delivery job, collect bids for the bidding window and
assign the courier with the lowest ETA. Couriers must be listening on the same
store, for example through "dispatchctl courier".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublish(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Pickup, "pickup", config.DefaultPickup, "pickup location")
	cmd.Flags().StringVar(&opts.Dropoff, "dropoff", config.DefaultDropoff, "dropoff location")
	cmd.Flags().Float64Var(&opts.Reward, "reward", config.DefaultReward, "reward offered to the courier")
	cmd.Flags().Float64Var(&opts.WaitSeconds, "wait", 0, "bidding window in seconds (0 uses MATCHING_WINDOW)")

	return cmd
}

func runPublish(rootOpts *RootOptions, opts *PublishOptions, cmd *cobra.Command) error {
	if opts.WaitSeconds < 0 {
		return NewExitError(ExitCommandError, "--wait must be non-negative")
	}
	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := s.engine().RunCycle(commandContext(cmd), matching.Job{
		Pickup:  opts.Pickup,
		Dropoff: opts.Dropoff,
		Reward:  opts.Reward,
		Window:  time.Duration(opts.WaitSeconds * float64(time.Second)),
	})
	if err != nil {
		return commandError("publish", err)
	}
	v := toOutcomeView(out)
	return rootOpts.formatter(cmd).Emit(v, func(w io.Writer) error { return writeOutcome(w, v) })
}

// commandError maps invalid input to ExitCommandError.
func commandError(what string, err error) error {
	if errors.Is(err, apperr.ErrInvalid) {
		return WrapExitError(ExitCommandError, what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
