package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/accounts"
	"github.com/cleared-dev/envelope/internal/commands"
	"github.com/cleared-dev/envelope/internal/config"
	"github.com/cleared-dev/envelope/internal/envelopes"
)

func runEnvelope(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func initLedger(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runEnvelope(t, "init", dir, "--name", "Household")
	require.NoError(t, err)
	return dir
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := initLedger(t)

	expectedDirs := []string{
		"accounts",
		"envelopes",
		"journal",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	out, err := runEnvelope(t, "init", dir, "--name", "Household", "--currency", "hkd")
	require.NoError(t, err)
	assert.Contains(t, out, `Initialized ledger "Household"`)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "Household", cfg.Ledger.Name)
	assert.Equal(t, "HKD", cfg.Ledger.ReportingCurrency)
	assert.True(t, cfg.Storage.Snapshot)
}

func TestInit_Registries(t *testing.T) {
	dir := initLedger(t)

	accts, err := accounts.Load(dir)
	require.NoError(t, err)
	assert.Len(t, accts.All(), 3)
	assert.True(t, accts.Exists("acct.checking"))

	envs, err := envelopes.Load(dir)
	require.NoError(t, err)
	assert.Len(t, envs.Active(), 5)
}

func TestInit_Gitignore(t *testing.T) {
	dir := initLedger(t)
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), ".ledger-cache/")
}

func TestInit_RequiresName(t *testing.T) {
	_, err := runEnvelope(t, "init", t.TempDir())
	require.Error(t, err, "init without --name should fail")
}

func TestInit_RejectsUnknownCurrency(t *testing.T) {
	_, err := runEnvelope(t, "init", t.TempDir(), "--name", "x", "--currency", "ETH")
	assert.ErrorContains(t, err, "not a known fiat currency")
}

func TestInit_RefusesExistingLedger(t *testing.T) {
	dir := initLedger(t)
	_, err := runEnvelope(t, "init", dir, "--name", "again")
	assert.ErrorContains(t, err, "already exists")
}

func TestInit_UsesRepoFlag(t *testing.T) {
	dir := t.TempDir()
	_, err := runEnvelope(t, "--repo", dir, "init", "--name", "Household")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, config.FileName))
}
