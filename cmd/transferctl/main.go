// transferctl submits a transfer through the aggregator's sandbox without
// going through the HTTP API. Useful for verifying aggregator credentials
// and the two-step authorize/create flow.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikhil/bankbridge/internal/aggregator"
	"github.com/nikhil/bankbridge/internal/config"
	"github.com/nikhil/bankbridge/internal/logging"
	"github.com/nikhil/bankbridge/internal/service"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var in service.TransferInput

	cmd := &cobra.Command{
		Use:           "transferctl",
		Short:         "Submit a transfer through the financial aggregator",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := logging.New(cfg.Logging)

			aggClient, err := aggregator.NewHTTPClient(aggregator.Options{
				BaseURL:        cfg.Aggregator.BaseURL,
				ClientID:       cfg.Aggregator.ClientID,
				Secret:         cfg.Aggregator.Secret,
				RequestTimeout: cfg.Aggregator.RequestTimeout,
			})
			if err != nil {
				return fmt.Errorf("create aggregator client: %w", err)
			}

			// No ledger here: transferctl talks to the aggregator only.
			svc := service.NewTransferService(aggClient, nil, logger)

			transfer, err := svc.CreateTransfer(cmd.Context(), in)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(transfer)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&in.AccessToken, "access-token", "", "aggregator access token for the source account")
	flags.StringVar(&in.AccountID, "account-id", "", "source account identifier")
	flags.StringVar(&in.FundingAccountID, "funding-account-id", "", "funding account identifier")
	flags.StringVar(&in.Type, "type", "credit", "transfer type")
	flags.StringVar(&in.Network, "network", "ach", "transfer network")
	flags.StringVar(&in.Amount, "amount", "", "transfer amount, e.g. 10.00")
	flags.StringVar(&in.ACHClass, "ach-class", "ppd", "ACH compliance class")
	flags.StringVar(&in.Description, "description", "payment", "transfer description")
	flags.StringVar(&in.LegalName, "legal-name", "", "payer legal name")

	_ = cmd.MarkFlagRequired("access-token")
	_ = cmd.MarkFlagRequired("account-id")
	_ = cmd.MarkFlagRequired("funding-account-id")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("legal-name")

	return cmd
}
