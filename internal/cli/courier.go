package cli

import (
	"github.com/spf13/cobra"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/courier"
)

// NewCourierCommand creates the courier command.
func NewCourierCommand(rootOpts *RootOptions) *cobra.Command {
	p := courier.Profile{}

	cmd := &cobra.Command{
		Use:   "courier",
		Short: "Run one simulated courier until interrupted",
		Long: `Run a courier agent: it bids on every open announcement with its
accept rate and prints the assignments it receives.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCourier(rootOpts, p, cmd)
		},
	}

	cmd.Flags().StringVar(&p.ID, "id", "", "courier id")
	cmd.Flags().StringVar(&p.Name, "name", "", "display name (defaults to the id)")
	cmd.Flags().Float64Var(&p.AcceptRate, "accept-rate", courier.DefaultAcceptRate, "probability of bidding on an announcement")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runCourier(rootOpts *RootOptions, p courier.Profile, cmd *cobra.Command) error {
	if err := p.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "courier", err)
	}
	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	f := rootOpts.formatter(cmd)
	agent, err := courier.NewAgent(p, s.store,
		courier.WithLogger(s.logger),
		courier.WithMetrics(s.metrics),
		courier.WithOnAssigned(func(n domain.Notification) {
			if err := emitNotification(f, n); err != nil {
				s.logger.Warn("write assignment", logx.Err(err))
			}
		}),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "courier", err)
	}
	s.logger.Info("courier listening", logx.String("courier_id", p.ID))
	return agent.Run(commandContext(cmd))
}
