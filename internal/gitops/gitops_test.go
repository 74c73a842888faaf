package gitops

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func lastCommit(t *testing.T, dir, format string) string {
	t.Helper()
	out, err := git(dir, "log", "--format="+format, "-1")
	require.NoError(t, err)
	return out
}

func TestInit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	require.NoError(t, Init(dir))

	_, err := os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err, ".git directory should exist")
}

func TestIsRepo(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	assert.False(t, IsRepo(dir), "empty dir should not be a repo")

	require.NoError(t, Init(dir))
	assert.True(t, IsRepo(dir), "initialized dir should be a repo")
}

func TestCommitAll(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025-03.csv"), []byte("id\n"), 0o644))

	who := Author{Name: "Test Author", Email: "test@example.com"}
	hash, err := CommitAll(dir, "import: chase.csv", who)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	assert.Equal(t, "import: chase.csv", lastCommit(t, dir, "%s"))
	assert.Equal(t, "Test Author <test@example.com>", lastCommit(t, dir, "%an <%ae>"))
	assert.Equal(t, "Test Author <test@example.com>", lastCommit(t, dir, "%cn <%ce>"))
}

func TestCommitAll_NothingToCommit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	_, err := CommitAll(dir, "first", DefaultAuthor)
	require.NoError(t, err)

	hash, err := CommitAll(dir, "second", DefaultAuthor)
	require.NoError(t, err)
	assert.Empty(t, hash)
	assert.Equal(t, "first", lastCommit(t, dir, "%s"))
}

func TestCommitAll_NotARepo(t *testing.T) {
	requireGit(t)
	_, err := CommitAll(t.TempDir(), "msg", DefaultAuthor)
	assert.Error(t, err)
}

func TestSubcommand(t *testing.T) {
	assert.Equal(t, "commit", subcommand([]string{"-c", "user.name=x", "-c", "user.email=y", "commit", "-m", "msg"}))
	assert.Equal(t, "add", subcommand([]string{"add", "-A"}))
	assert.Equal(t, "", subcommand(nil))
}
