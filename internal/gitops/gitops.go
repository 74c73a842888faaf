// Package gitops records ledger changes as commits in the repository's git
// history.
package gitops

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoGit is returned when the git binary is not on PATH.
var ErrNoGit = errors.New("git not found in PATH")

// Author identifies who a commit is made by. It is used for both author and
// committer so commits work without a global git identity.
type Author struct {
	Name  string
	Email string
}

// DefaultAuthor is used by the CLI.
var DefaultAuthor = Author{Name: "envelope", Email: "envelope@localhost"}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

func git(dir string, args ...string) (string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", ErrNoGit
	}
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %s: %w", subcommand(args), strings.TrimSpace(out.String()), err)
	}
	return strings.TrimSpace(out.String()), nil
}

func subcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" {
			i++
			continue
		}
		return args[i]
	}
	return ""
}

// Init initializes a new git repository at dir.
func Init(dir string) error {
	_, err := git(dir, "init", "--quiet")
	return err
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// CommitAll stages every change under dir and commits it. It returns the
// short hash of the new commit, or "" when there was nothing to commit.
func CommitAll(dir, message string, who Author) (string, error) {
	if _, err := git(dir, "add", "-A"); err != nil {
		return "", err
	}
	status, err := git(dir, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	if status == "" {
		return "", nil
	}
	if _, err := git(dir,
		"-c", "user.name="+who.Name,
		"-c", "user.email="+who.Email,
		"commit", "--quiet", "-m", message, "--author", who.String(),
	); err != nil {
		return "", err
	}
	return git(dir, "rev-parse", "--short", "HEAD")
}
