package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the collections and indexes of the event store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := rootOpts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.store.EnsureIndexes(commandContext(cmd)); err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}
			backend := s.cfg.Store.Backend
			return rootOpts.formatter(cmd).Emit(map[string]string{"backend": backend, "status": "ok"}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "indexes ensured on %s\n", backend)
				return err
			})
		},
	}
}
