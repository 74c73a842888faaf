package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/balance"
	"github.com/cleared-dev/envelope/internal/ledger"
)

func newBalanceCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "balance [txid...]",
		Short: "Reconcile transactions",
		Long: "Offset unattributed spending against P&L and merge the two sides of " +
			"transfers. With --all, every transaction that is not balanced is processed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("give transaction ids or --all")
			}
			svc, cfg, err := a.open(cmd)
			if err != nil {
				return err
			}

			var reports []ledger.Report
			if all {
				reports, err = svc.BalanceAll()
				if err != nil {
					return err
				}
			} else {
				for _, txID := range args {
					rep, err := svc.Balance(txID)
					if errors.Is(err, balance.ErrUnreconcilable) {
						rep = ledger.Report{TxID: txID, Err: err}
					} else if err != nil {
						return err
					}
					reports = append(reports, rep)
				}
			}

			failed := 0
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tOUTCOME\tSTATE\tNOTE")
			for _, r := range reports {
				if r.Err != nil {
					failed++
					fmt.Fprintf(tw, "%s\tfailed\t%s\t%v\n", r.TxID, r.State, r.Err)
					continue
				}
				note := ""
				if r.MergedFrom != "" {
					note = "merged " + r.MergedFrom
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.TxID, r.Outcome, r.State, note)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if err := a.commit(cmd, cfg, fmt.Sprintf("balance: %d transaction(s)", len(reports)-failed)); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d transaction(s) could not be reconciled: %w", failed, balance.ErrUnreconcilable)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "balance every transaction that needs it")

	return cmd
}
