package source

import (
	"context"
	"net/http"
	"time"

	"assertscan/pkg/errors"
)

// downloadTimeout bounds a single archive download.
// Source distributions can be large, so this is much longer than the
// metadata client's timeout.
const downloadTimeout = 5 * time.Minute

// Acquirer produces local source trees from resolved locations.
// It is safe for concurrent use.
type Acquirer struct {
	http *http.Client
	git  gitRunner
}

// NewAcquirer creates an Acquirer with default HTTP and git runners.
func NewAcquirer() *Acquirer {
	return &Acquirer{
		http: &http.Client{Timeout: downloadTimeout},
		git:  runGit,
	}
}

// Acquire fetches the source tree for loc into a fresh subdirectory of
// workspace and returns that directory. The workspace must be exclusive
// to one package; callers create one subdirectory of the run workspace
// per package.
//
// A failed checkout, download, or extraction returns an
// ACQUISITION_FAILED error (UNSUPPORTED_FORMAT for unknown archive
// extensions). Callers must not pass a None location.
func (a *Acquirer) Acquire(ctx context.Context, loc Location, workspace string) (string, error) {
	switch loc.Kind {
	case KindRepository:
		return a.clone(ctx, loc.URL, workspace)
	case KindArchive:
		return a.downloadAndExtract(ctx, loc.URL, workspace)
	default:
		return "", errors.New(errors.ErrCodeInternal, "acquire called with no location")
	}
}
