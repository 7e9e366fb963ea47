package source

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"assertscan/pkg/errors"
)

// gitRunner executes a git command. Injectable in tests.
type gitRunner func(ctx context.Context, args ...string) error

func runGit(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// clone performs a shallow (depth-1) checkout of repoURL into a
// subdirectory of workspace named after the URL's final path segment.
// A non-zero git exit status is surfaced as an acquisition error rather
// than silently yielding an empty directory.
func (a *Acquirer) clone(ctx context.Context, repoURL, workspace string) (string, error) {
	dest := filepath.Join(workspace, repoDirName(repoURL))
	if err := a.git(ctx, "clone", "--depth", "1", repoURL, dest); err != nil {
		return "", errors.Wrap(errors.ErrCodeAcquisition, err, "clone %s", repoURL)
	}
	return dest, nil
}

// repoDirName derives a checkout directory name from the repository URL.
func repoDirName(repoURL string) string {
	name := repoURL
	if u, err := url.Parse(repoURL); err == nil && u.Path != "" {
		name = u.Path
	}
	name = strings.TrimSuffix(path.Base(strings.TrimSuffix(name, "/")), ".git")
	if name == "" || name == "." || name == "/" {
		name = "repo"
	}
	return name
}
