package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/store"
)

// WatchOptions holds the flags of the watch command.
type WatchOptions struct {
	Notifications bool
	CourierID     string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print selections as they are recorded",
		Long: `Tail the selections appended to the store and print one line per
assignment until interrupted. With --notifications (or --courier) the
notification stream is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Notifications, "notifications", false, "watch notifications instead of selections")
	cmd.Flags().StringVar(&opts.CourierID, "courier", "", "only notifications of this courier")

	return cmd
}

func runWatch(rootOpts *RootOptions, opts *WatchOptions, cmd *cobra.Command) error {
	s, err := rootOpts.open(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	f := rootOpts.formatter(cmd)

	if opts.Notifications || opts.CourierID != "" {
		sub, err := s.store.WatchNotifications(ctx, opts.CourierID)
		if err != nil {
			return err
		}
		defer sub.Close()
		return tail(ctx, sub, func(n domain.Notification) error { return emitNotification(f, n) })
	}

	sub, err := s.store.WatchSelections(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()
	return tail(ctx, sub, func(sel domain.Selection) error { return emitSelection(f, sel) })
}

func tail[T any](ctx context.Context, sub *store.Subscription[T], emit func(T) error) error {
	for {
		doc, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, store.ErrClosed) {
				return nil
			}
			return err
		}
		if err := emit(doc); err != nil {
			return err
		}
	}
}
