package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newReclassifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reclassify <txid> <leg> [envelope]",
		Short: "Move a leg to another envelope",
		Long:  "Set the envelope of one leg. Without an envelope the leg's category is cleared.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			leg, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("leg index %q: %w", args[1], err)
			}
			category := ""
			if len(args) == 3 {
				category = args[2]
			}
			svc, cfg, err := a.open(cmd)
			if err != nil {
				return err
			}
			tx, err := svc.Reclassify(args[0], leg, category)
			if err != nil {
				return err
			}
			shown := category
			if shown == "" {
				shown = "(none)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s leg %d -> %s (%s)\n", tx.ID, leg, shown, tx.State)
			return a.commit(cmd, cfg, fmt.Sprintf("reclassify: %s leg %d -> %s", tx.ID, leg, shown))
		},
	}
}
