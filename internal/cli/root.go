// Package cli implements dispatchctl, the operator command line of the
// dispatch system.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"service-dispatch/internal/app"
	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/metrics"
	"service-dispatch/internal/service/matching"
	"service-dispatch/internal/store"
)

// RootOptions holds global flags and the configuration shared by every command.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	cfg       *config.Config
	cfgErr    error
	openStore app.StoreOpener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the dispatchctl root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(app.OpenStore)
}

func newRootCommand(open app.StoreOpener) *cobra.Command {
	_ = godotenv.Load(".env")
	cfg, err := config.FromEnv()
	if err != nil {
		cfg = config.Default()
	}
	opts := &RootOptions{cfg: cfg, cfgErr: err, openStore: open}

	cmd := &cobra.Command{
		Use:   "dispatchctl",
		Short: "Operate the courier dispatch system",
		Long: `dispatchctl publishes delivery jobs, runs simulated couriers and
watches the selections recorded in the event store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if opts.cfgErr != nil {
				return WrapExitError(ExitCommandError, "load config", opts.cfgErr)
			}
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Verbose {
				opts.cfg.Log.Level = "debug"
			}
			if err := opts.cfg.Validate(); err != nil {
				return WrapExitError(ExitCommandError, "invalid config", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	config.BindFlags(cmd.PersistentFlags(), opts.cfg)

	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewPublishBatchCommand(opts))
	cmd.AddCommand(NewCourierCommand(opts))
	cmd.AddCommand(NewFleetCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// session is an opened store plus what commands build on it.
type session struct {
	cfg     *config.Config
	logger  logx.Logger
	metrics *metrics.Metrics
	store   store.Store
}

func (o *RootOptions) open(cmd *cobra.Command) (*session, error) {
	logger, err := app.NewLogger(o.cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "logger", err)
	}
	st, err := o.openStore(commandContext(cmd), o.cfg, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	return &session{cfg: o.cfg, logger: logger, metrics: metrics.New(nil), store: st}, nil
}

func (s *session) engine() *matching.Engine {
	mc := s.cfg.Matching
	return matching.NewEngine(s.store, matching.Config{
		Window:           mc.Window,
		PollInterval:     mc.PollInterval,
		BatchInterval:    mc.BatchInterval,
		OperationTimeout: mc.OperationTimeout,
	}, s.logger, s.metrics)
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("store close error", logx.Err(err))
	}
	_ = s.logger.Sync()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
