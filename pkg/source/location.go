// Package source acquires package source trees from their resolved
// locations: a shallow git checkout for repository URLs, or a download
// and extraction for source-distribution archives.
package source

// Kind discriminates the Location variant.
type Kind int

const (
	// KindNone means no usable source location was found.
	KindNone Kind = iota
	// KindRepository is a version-controlled repository URL.
	KindRepository
	// KindArchive is a downloadable source-distribution archive URL.
	KindArchive
)

// String returns a human-readable name for logging.
func (k Kind) String() string {
	switch k {
	case KindRepository:
		return "repository"
	case KindArchive:
		return "archive"
	default:
		return "none"
	}
}

// Location is a resolved source location for a package.
// The zero value is the None variant.
type Location struct {
	Kind Kind
	URL  string
}

// Repository returns a repository Location.
func Repository(url string) Location {
	return Location{Kind: KindRepository, URL: url}
}

// Archive returns an archive Location.
func Archive(url string) Location {
	return Location{Kind: KindArchive, URL: url}
}

// None returns the empty Location.
func None() Location {
	return Location{}
}

// IsNone reports whether no location was found.
func (l Location) IsNone() bool {
	return l.Kind == KindNone
}
