package commands

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

func newReportCommand(a *app) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Account and envelope reports for a cycle",
	}
	reportCmd.AddCommand(newReportAccountsCommand(a), newReportEnvelopesCommand(a))
	return reportCmd
}

func newReportAccountsCommand(a *app) *cobra.Command {
	var label string
	var accountIDs []string
	var accountType string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Opening and closing balance per account and unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cycleFlag(label)
			if err != nil {
				return err
			}
			svc, cfg, err := a.open(cmd)
			if err != nil {
				return err
			}

			ids := accountIDs
			accts := svc.Accounts()
			switch {
			case len(ids) > 0 && accountType != "":
				return errors.New("use either --account or --type")
			case accountType != "":
				for _, acct := range accts.ByType(model.AccountType(accountType)) {
					ids = append(ids, acct.ID)
				}
				if len(ids) == 0 {
					return fmt.Errorf("no %s accounts", accountType)
				}
			case len(ids) == 0:
				for _, g := range append(accts.Groups(), "") {
					for _, acct := range accts.ByGroup(g) {
						ids = append(ids, acct.ID)
					}
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cycle %s\n", c)
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ACCOUNT\tUNIT\tOPENING\tCLOSING\tCHANGE")
			for _, accountID := range ids {
				bal, err := svc.AccountBalance(accountID, c.Label)
				if err != nil {
					return err
				}
				for _, unit := range bal.Units() {
					b := bal[unit]
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", accountID, unit,
						fixed(b.Opening, unit), fixed(b.Closing, unit), fixed(b.Delta, unit))
				}
			}
			// Units are never converted; the total covers the reporting currency only.
			total, err := svc.AccountsBalance(ids, c.Label)
			if err != nil {
				return err
			}
			if unit := cfg.Ledger.ReportingCurrency; unit != "" {
				if b, ok := total[unit]; ok {
					fmt.Fprintf(tw, "TOTAL\t%s\t%s\t%s\t%s\n", unit,
						fixed(b.Opening, unit), fixed(b.Closing, unit), fixed(b.Delta, unit))
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&label, "cycle", "", "cycle label YYYY-MM (default: current cycle)")
	cmd.Flags().StringSliceVar(&accountIDs, "account", nil, "accounts to report (default: all)")
	cmd.Flags().StringVar(&accountType, "type", "", "report only accounts of this type (checking, savings, credit, ...)")

	return cmd
}

func newReportEnvelopesCommand(a *app) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "envelopes",
		Short: "Spend against budget per envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cycleFlag(label)
			if err != nil {
				return err
			}
			svc, _, err := a.open(cmd)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cycle %s\n", c)
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ENVELOPE\tBUDGET\tSPENT\tREMAINING\tUSED\tSKIPPED")
			for _, env := range svc.Envelopes().Active() {
				u, err := svc.EnvelopeUsage(env.ID, c.Label)
				if err != nil {
					return err
				}
				used := "-"
				if u.Percent.Valid {
					used = u.Percent.Decimal.Shift(2).StringFixed(1) + "%"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", env.ID, u.Budget, u.Spent, u.Remaining(), used, len(u.Skipped))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&label, "cycle", "", "cycle label YYYY-MM (default: current cycle)")

	return cmd
}

func fixed(d decimal.Decimal, unit string) string {
	return d.StringFixed(money.PrecisionOf(unit))
}
