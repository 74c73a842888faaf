package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/envelope/internal/accounts"
	"github.com/cleared-dev/envelope/internal/config"
	"github.com/cleared-dev/envelope/internal/envelopes"
	"github.com/cleared-dev/envelope/internal/gitops"
	"github.com/cleared-dev/envelope/internal/journal"
	"github.com/cleared-dev/envelope/internal/money"
)

func newInitCommand(a *app) *cobra.Command {
	var name string
	var currency string
	var useGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.repo
			if len(args) > 0 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return fmt.Errorf("resolving path: %w", err)
				}
				dir = abs
			}
			if err := runInit(dir, name, currency, useGit); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger %q at %s\n", name, dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "ledger name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&currency, "currency", "USD", "reporting currency (ISO-4217)")
	cmd.Flags().BoolVar(&useGit, "git", false, "keep the ledger in git and commit every change")

	return cmd
}

func runInit(dir, name, currency string, useGit bool) error {
	currency = strings.ToUpper(currency)
	if !money.IsFiat(currency) {
		return fmt.Errorf("reporting currency %q is not a known fiat currency", currency)
	}
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	// Create directory structure.
	dirs := []string{
		"accounts",
		"envelopes",
		journal.Dir,
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write ledger.yaml.
	cfg := config.Default(name, currency)
	cfg.Storage.Git = useGit
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := accounts.NewService(accounts.DefaultAccounts(currency)).Save(dir); err != nil {
		return fmt.Errorf("writing accounts: %w", err)
	}
	if err := envelopes.NewService(envelopes.DefaultEnvelopes(currency)).Save(dir); err != nil {
		return fmt.Errorf("writing envelopes: %w", err)
	}

	// Write .gitignore.
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(".ledger-cache/\n"), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Write import/.gitkeep.
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if !useGit {
		return nil
	}
	if !gitops.IsRepo(dir) {
		if err := gitops.Init(dir); err != nil {
			return err
		}
	}
	if _, err := gitops.CommitAll(dir, fmt.Sprintf("init: ledger %s", name), gitops.DefaultAuthor); err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}
	return nil
}
