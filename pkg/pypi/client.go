// Package pypi provides access to the PyPI package registry and the
// heuristics that turn published metadata into a source location.
package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"assertscan/pkg/cache"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a package doesn't exist in the registry.
	ErrNotFound = errors.New("package not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors,
	// non-success responses).
	ErrNetwork = errors.New("network error")
)

// PackageInfo holds the metadata assertscan needs from PyPI: the
// declared project URLs for repository discovery and the current
// version's release artifacts for the sdist fallback.
type PackageInfo struct {
	Name        string                `json:"name"`
	Version     string                `json:"version"`
	ProjectURLs map[string]string     `json:"project_urls"`
	Releases    map[string][]Artifact `json:"releases"`
}

// Artifact describes one release file of a package version.
type Artifact struct {
	URL         string `json:"url"`
	PackageType string `json:"packagetype"`
}

// Client provides access to the PyPI package registry API.
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	ttl     time.Duration
	baseURL string
}

// NewClient creates a PyPI client with the given cache backend.
// Use cache.NewNullCache() to disable caching.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		cache:   backend,
		ttl:     cacheTTL,
		baseURL: "https://pypi.org/pypi",
	}
}

// FetchPackage retrieves metadata for a Python package from PyPI.
//
// The pkg parameter is normalized automatically (case-insensitive,
// underscores→hyphens, PEP 503). If refresh is true the cache is
// bypassed. There is deliberately no retry: a transport failure or
// non-success status is terminal for the caller's package.
//
// Returns ErrNotFound if the package doesn't exist and ErrNetwork for
// any other HTTP failure.
func (c *Client) FetchPackage(ctx context.Context, pkg string, refresh bool) (*PackageInfo, error) {
	pkg = NormalizePkgName(pkg)
	key := "pypi:" + pkg

	if !refresh {
		if data, hit, _ := c.cache.Get(ctx, key); hit {
			var info PackageInfo
			if err := json.Unmarshal(data, &info); err == nil {
				return &info, nil
			}
		}
	}

	info, err := c.fetch(ctx, pkg)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(info); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
	}
	return info, nil
}

func (c *Client) fetch(ctx context.Context, pkg string) (*PackageInfo, error) {
	url := fmt.Sprintf("%s/%s/json", c.baseURL, pkg)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: pypi package %s", ErrNotFound, pkg)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode pypi response: %w", err)
	}

	urls := make(map[string]string, len(data.Info.ProjectURLs))
	for k, v := range data.Info.ProjectURLs {
		if s, ok := v.(string); ok {
			urls[k] = s
		}
	}

	return &PackageInfo{
		Name:        data.Info.Name,
		Version:     data.Info.Version,
		ProjectURLs: urls,
		Releases:    data.Releases,
	}, nil
}

type apiResponse struct {
	Info     apiInfo               `json:"info"`
	Releases map[string][]Artifact `json:"releases"`
}

type apiInfo struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	ProjectURLs map[string]any `json:"project_urls"`
}

// NormalizePkgName converts a package name to its canonical form.
// Applies lowercase and replaces underscores with hyphens, following
// PEP 503 normalization rules used by PyPI.
func NormalizePkgName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}
