package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCycleCommand(a *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "cycle [label]",
		Short: "Show cycle boundaries",
		Long:  "Show the start and end of a cycle (YYYY-MM). Without a label, the cycle running now.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := ""
			if len(args) > 0 {
				label = args[0]
			}
			c, err := cycleFlag(label)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "CYCLE\tSTART\tEND")
			for i := 0; i < count; i++ {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Label, c.Start.Format(time.RFC3339), c.End.Format(time.RFC3339))
				c = c.Next()
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of consecutive cycles to show")

	return cmd
}
