package unlocks

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/payhole/payments/internal/application/payment/usecases"
)

func newClearCommand() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every unlock record",
		Long:  `Remove every unlock record from the ledger. Credentials already issued stay valid until they expire, but status lookups for them return not found.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return errors.New("refusing to clear the ledger without --yes")
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			removed, err := usecases.NewClearUnlocksUseCase(s.ledger, s.log).Execute(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d unlock record(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm removal of all records")

	return cmd
}
