package unlocks

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/payhole/payments/internal/application/payment/usecases"
	"github.com/payhole/payments/internal/domain/unlock"
	apperrors "github.com/payhole/payments/internal/shared/errors"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func newListCommand() *cobra.Command {
	var (
		wallet     string
		output     string
		activeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List unlock records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputJSON && output != outputYAML {
				return fmt.Errorf("unsupported output format %q (want json or yaml)", output)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := usecases.NewListUnlocksUseCase(s.ledger, s.log).Execute(cmd.Context(), wallet)
			if err != nil {
				if apperrors.IsNotFoundError(err) {
					return fmt.Errorf("no unlock record for wallet %s", wallet)
				}
				return err
			}

			if activeOnly {
				records = filterActive(records, time.Now())
			}

			return writeRecords(cmd.OutOrStdout(), records, output)
		},
	}

	cmd.Flags().StringVarP(&wallet, "wallet", "w", "", "Only show the record for this wallet")
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Output format (json, yaml)")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only show records whose unlock window is still open")

	return cmd
}

func filterActive(records []*unlock.UnlockRecord, now time.Time) []*unlock.UnlockRecord {
	active := make([]*unlock.UnlockRecord, 0, len(records))
	for _, r := range records {
		if r.Active(now) {
			active = append(active, r)
		}
	}
	return active
}

// yamlRecord keeps the yaml keys aligned with the JSON wire names.
type yamlRecord struct {
	Wallet    string `yaml:"wallet"`
	Signature string `yaml:"signature"`
	ExpiresAt string `yaml:"expiresAt"`
	CreatedAt string `yaml:"createdAt"`
	UpdatedAt string `yaml:"updatedAt"`
}

func writeRecords(w io.Writer, records []*unlock.UnlockRecord, format string) error {
	if records == nil {
		records = []*unlock.UnlockRecord{}
	}

	switch format {
	case outputYAML:
		out := make([]yamlRecord, 0, len(records))
		for _, r := range records {
			out = append(out, yamlRecord{
				Wallet:    r.Wallet,
				Signature: r.Signature,
				ExpiresAt: r.ExpiresAt.UTC().Format(time.RFC3339Nano),
				CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
				UpdatedAt: r.UpdatedAt.UTC().Format(time.RFC3339Nano),
			})
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
}
