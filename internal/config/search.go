package config

import (
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

// LegacyMajor is the interpreter major version served by the @python2 overlay.
const LegacyMajor = 2

// DefaultVersion is the target version used when none is configured.
var DefaultVersion = Version{Major: 3, Minor: 12}

// Version is a target interpreter version (major, minor).
type Version struct {
	Major int
	Minor int
}

// Compare orders versions the way tuples compare.
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		if v.Major < other.Major {
			return -1
		}
		return 1
	}
	if v.Minor != other.Minor {
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// IsLegacy reports whether v targets the legacy major version.
func (v Version) IsLegacy() bool {
	return v.Major == LegacyMajor
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ParseVersion parses "MAJOR.MINOR".
func ParseVersion(s string) (Version, error) {
	major, minor, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Version{}, fmt.Errorf("%w: %q is not MAJOR.MINOR", ErrInvalidVersion, s)
	}
	maj, err := strconv.Atoi(major)
	if err != nil || maj < 0 {
		return Version{}, fmt.Errorf("%w: bad major in %q", ErrInvalidVersion, s)
	}
	mnr, err := strconv.Atoi(minor)
	if err != nil || mnr < 0 {
		return Version{}, fmt.Errorf("%w: bad minor in %q", ErrInvalidVersion, s)
	}
	return Version{Major: maj, Minor: mnr}, nil
}

// DefaultPlatform maps the running GOOS onto the matching sys.platform value.
func DefaultPlatform() string {
	return platformFor(runtime.GOOS)
}

func platformFor(goos string) string {
	switch goos {
	case "windows":
		return "win32"
	case "darwin", "ios":
		return "darwin"
	case "aix", "freebsd", "openbsd", "netbsd", "dragonfly":
		return goos
	default:
		return "linux"
	}
}

// SearchConfig is the immutable context for finding and parsing stubs.
// It is built once per session and passed by value.
type SearchConfig struct {
	typeshed       string
	searchPath     []string
	version        Version
	platform       string
	strictWarnings bool
	allowPyFiles   bool
}

// SearchOption customizes a SearchConfig at construction time.
type SearchOption func(*SearchConfig)

// WithStrictWarnings promotes recoverable parser ambiguities to errors.
func WithStrictWarnings(strict bool) SearchOption {
	return func(c *SearchConfig) { c.strictWarnings = strict }
}

// WithAllowPyFiles enables the .py source fallback in installed packages.
func WithAllowPyFiles(allow bool) SearchOption {
	return func(c *SearchConfig) { c.allowPyFiles = allow }
}

// NewSearchConfig builds a SearchConfig. The search path is copied.
func NewSearchConfig(typeshed string, searchPath []string, version Version, platform string, opts ...SearchOption) SearchConfig {
	c := SearchConfig{
		typeshed:   typeshed,
		searchPath: slices.Clone(searchPath),
		version:    version,
		platform:   platform,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c SearchConfig) Typeshed() string     { return c.typeshed }
func (c SearchConfig) Version() Version     { return c.version }
func (c SearchConfig) Platform() string     { return c.platform }
func (c SearchConfig) StrictWarnings() bool { return c.strictWarnings }
func (c SearchConfig) AllowPyFiles() bool   { return c.allowPyFiles }
func (c SearchConfig) IsLegacy() bool       { return c.version.IsLegacy() }

// SearchPath returns a copy of the ordered search roots.
func (c SearchConfig) SearchPath() []string { return slices.Clone(c.searchPath) }

func (c SearchConfig) String() string {
	return fmt.Sprintf("SearchConfig{typeshed=%s version=%s platform=%s search_path=%v}",
		c.typeshed, c.version, c.platform, c.searchPath)
}
