package pypi

import (
	"context"
	"regexp"
	"strings"

	"assertscan/pkg/errors"
	"assertscan/pkg/source"
)

// githubRE matches a GitHub owner/repo prefix at the start of a URL;
// trailing path segments are ignored.
var githubRE = regexp.MustCompile(`^(https?://github\.com/[^/]+/[^/]+)`)

// repoURLKeys are the well-known project-URL labels checked, in priority
// order, when no URL matches the owner/repo pattern directly.
var repoURLKeys = []string{"Source", "Code", "Repository", "GitHub: repo", "Source Code", "Homepage", "GitHub"}

// issueURLKeys are issue-tracker labels used as a last resort; a
// trailing /issues segment is stripped from their values.
var issueURLKeys = []string{"Issues", "Bug Tracker", "Bug Reports"}

// Locator resolves a package name to a source location using PyPI
// metadata: the linked repository when one is discoverable, otherwise
// the current version's source distribution, otherwise none.
type Locator struct {
	client  *Client
	refresh bool
}

// NewLocator creates a Locator on top of a PyPI client.
// If refresh is true, cached metadata is bypassed.
func NewLocator(client *Client, refresh bool) *Locator {
	return &Locator{client: client, refresh: refresh}
}

// Locate queries PyPI once and derives a location from the response.
// Returns source.None() (with nil error) when the metadata yields
// neither a repository URL nor an sdist artifact; transport failures
// propagate as errors.
func (l *Locator) Locate(ctx context.Context, pkg string) (source.Location, error) {
	info, err := l.client.FetchPackage(ctx, pkg, l.refresh)
	if err != nil {
		return source.None(), errors.Wrap(errors.ErrCodeResolution, err, "fetching metadata for %s", pkg)
	}

	if url := RepositoryURL(info); url != "" {
		return source.Repository(url), nil
	}
	if url := SourceDistURL(info); url != "" {
		return source.Archive(url), nil
	}
	return source.None(), nil
}

// RepositoryURL extracts a GitHub repository URL from package metadata.
//
// Heuristics, first match wins:
//  1. Any project URL matching https?://github.com/<owner>/<repo>
//     (trailing path ignored, owner/repo prefix returned).
//  2. Well-known labels (Source, Code, Repository, ...) whose value
//     contains github.com; labels are also tried lowercased.
//  3. Issue-tracker labels, with a trailing /issues stripped.
//
// Returns "" when nothing matches.
func RepositoryURL(info *PackageInfo) string {
	for _, value := range info.ProjectURLs {
		if m := githubRE.FindStringSubmatch(value); m != nil {
			return m[1]
		}
	}

	for _, key := range repoURLKeys {
		if url := lookupKey(info.ProjectURLs, key); url != "" && strings.Contains(url, "github.com") {
			return url
		}
	}

	for _, key := range issueURLKeys {
		if url := lookupKey(info.ProjectURLs, key); url != "" && strings.Contains(url, "github.com") {
			return strings.TrimSuffix(url, "/issues")
		}
	}

	return ""
}

// SourceDistURL returns the URL of the first sdist artifact of the
// package's current version, or "" if the version has none.
func SourceDistURL(info *PackageInfo) string {
	for _, artifact := range info.Releases[info.Version] {
		if artifact.PackageType == "sdist" {
			return artifact.URL
		}
	}
	return ""
}

// lookupKey fetches a project URL by label, trying the exact label and
// its lowercase form.
func lookupKey(urls map[string]string, key string) string {
	if url, ok := urls[key]; ok {
		return url
	}
	return urls[strings.ToLower(key)]
}
