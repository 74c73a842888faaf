package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/balance"
	"github.com/cleared-dev/envelope/internal/model"
)

func newClassifyCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "classify [txid...]",
		Short: "Show the balance state of transactions",
		Long:  "Show the balance state of the given transactions, or of every transaction that is not balanced.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.open(cmd)
			if err != nil {
				return err
			}
			var txs []model.Transaction
			if len(args) > 0 {
				for _, txID := range args {
					tx, err := svc.Get(txID)
					if err != nil {
						return err
					}
					txs = append(txs, tx)
				}
			} else {
				for _, tx := range svc.All() {
					if all || tx.State != model.StateBalanced {
						txs = append(txs, tx)
					}
				}
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tSTATE\tTYPE\tLEGS\tPAYEE")
			for _, tx := range txs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", tx.ID, balance.Classify(tx), txType(tx.Type), len(tx.Legs), tx.Payee)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include balanced transactions")

	return cmd
}

func txType(t model.TxType) string {
	if t == model.TxNone {
		return "-"
	}
	return string(t)
}
