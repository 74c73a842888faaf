package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/importer"
)

func newImportCommand(a *app) *cobra.Command {
	var feedName string

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import bank exports through a feed",
		Long: "Import the given files through a feed. Without files, every " +
			"export waiting in import/ is imported and moved to import/processed/.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := a.open(cmd)
			if err != nil {
				return err
			}
			feed, ok := cfg.Feed(feedName)
			if !ok {
				return fmt.Errorf("unknown feed %q", feedName)
			}
			parser := importer.DefaultRegistry().Get(feed.Format)
			if parser == nil {
				return fmt.Errorf("feed %s: unknown format %q", feed.Name, feed.Format)
			}
			target := importer.Target{Feed: feed.Name, AccountID: feed.AccountID}

			files := args
			scanned := len(args) == 0
			if scanned {
				infos, err := importer.Scan(a.repo)
				if err != nil {
					return err
				}
				for _, fi := range infos {
					files = append(files, fi.Path)
				}
				if len(files) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import")
					return nil
				}
			}

			for _, path := range files {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("opening %s: %w", path, err)
				}
				res, err := svc.Import(parser, f, target)
				f.Close()
				if err != nil {
					return fmt.Errorf("importing %s: %w", path, err)
				}
				if scanned {
					if err := importer.MarkProcessed(a.repo, filepath.Base(path)); err != nil {
						return err
					}
				}
				ids := make([]string, len(res.Added))
				for i, tx := range res.Added {
					ids[i] = tx.ID
				}
				line := fmt.Sprintf("%s: imported %d of %d (%d duplicates)", filepath.Base(path), len(res.Added), res.Parsed, res.Duplicates)
				if len(ids) > 0 {
					line += " " + strings.Join(ids, " ")
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
				if err := a.commit(cmd, cfg, fmt.Sprintf("import: %s (%d added)", filepath.Base(path), len(res.Added))); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&feedName, "feed", "", "configured feed name (required)")
	_ = cmd.MarkFlagRequired("feed")

	return cmd
}
