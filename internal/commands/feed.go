package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/accounts"
	"github.com/cleared-dev/envelope/internal/config"
	"github.com/cleared-dev/envelope/internal/importer"
)

func newFeedCommand(a *app) *cobra.Command {
	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Manage import feeds",
	}
	feedCmd.AddCommand(newFeedAddCommand(a), newFeedListCommand(a))
	return feedCmd
}

func newFeedAddCommand(a *app) *cobra.Command {
	var f config.Feed

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a feed that imports into an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Name = args[0]
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if _, ok := cfg.Feed(f.Name); ok {
				return fmt.Errorf("feed %q already exists", f.Name)
			}
			if importer.DefaultRegistry().Get(f.Format) == nil {
				return fmt.Errorf("unknown feed format %q", f.Format)
			}
			accts, err := accounts.Load(a.repo)
			if err != nil {
				return err
			}
			if !accts.Exists(f.AccountID) {
				return fmt.Errorf("unknown account %q", f.AccountID)
			}
			cfg.Feeds = append(cfg.Feeds, f)
			if err := config.Save(a.configPath(), cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added feed %s (%s) -> %s\n", f.Name, f.Format, f.AccountID)
			return a.commit(cmd, cfg, fmt.Sprintf("feed: add %s", f.Name))
		},
	}

	cmd.Flags().StringVar(&f.Format, "format", "", "export format: chase or ofx (required)")
	cmd.Flags().StringVar(&f.AccountID, "account", "", "account the feed posts into (required)")
	cmd.Flags().StringVar(&f.ExternalID, "external-id", "", "account number at the institution")
	_ = cmd.MarkFlagRequired("format")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newFeedListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "FEED\tFORMAT\tACCOUNT")
			for _, f := range cfg.Feeds {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.Format, f.AccountID)
			}
			return tw.Flush()
		},
	}
}
