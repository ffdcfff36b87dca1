package finder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/maypok86/otter"
	"github.com/spf13/afero"

	"github.com/mvp-joe/stubscope/internal/config"
)

const (
	// ManifestName is the version manifest at the corpus root.
	ManifestName = "VERSIONS"

	// LegacyDir is the overlay consulted first for the legacy major version.
	LegacyDir = "@python2"
)

// ErrManifestNotFound means the corpus root has no VERSIONS file, so no
// module's version range can be determined.
var ErrManifestNotFound = errors.New("version manifest not found")

// ManifestError reports a malformed manifest line.
type ManifestError struct {
	Path string
	Line int
	Text string
	Err  error
}

func (e *ManifestError) Error() string {
	msg := fmt.Sprintf("%s:%d: malformed manifest line %q", e.Path, e.Line, e.Text)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ManifestError) Unwrap() error { return e.Err }

// VersionRange is the span of interpreter versions a top-level module exists
// for. Max is nil when the module has not been removed.
type VersionRange struct {
	Min        config.Version
	Max        *config.Version
	LegacyOnly bool
}

// Contains reports whether a lookup at v may use this module.
func (r VersionRange) Contains(v config.Version) bool {
	if v.Less(r.Min) {
		return false
	}
	return r.Max == nil || !r.Max.Less(v)
}

// VersionTable maps top-level module names to their version range.
type VersionTable map[string]VersionRange

// manifestKey identifies one revision of a corpus manifest. An edit to
// VERSIONS or to the legacy overlay listing yields a new key.
type manifestKey struct {
	root       string
	size       int64
	modTime    int64
	legacyTime int64
}

// manifests memoizes tables read from the real filesystem. In-memory
// filesystems are never cached.
var manifests = mustCache[manifestKey, VersionTable](64)

func mustCache[K comparable, V any](capacity int) otter.Cache[K, V] {
	cache, err := otter.MustBuilder[K, V](capacity).Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build cache: %v", err))
	}
	return cache
}

// LoadVersionTable reads the manifest of the corpus rooted at typeshed.
func LoadVersionTable(fsys afero.Fs, typeshed string) (VersionTable, error) {
	manifestPath := filepath.Join(typeshed, ManifestName)
	info, err := fsys.Stat(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestNotFound, manifestPath, err)
	}

	_, onDisk := fsys.(*afero.OsFs)
	key := manifestKey{
		root:    filepath.Clean(typeshed),
		size:    info.Size(),
		modTime: info.ModTime().UnixNano(),
	}
	legacyDir := filepath.Join(typeshed, LegacyDir)
	if legacyInfo, err := fsys.Stat(legacyDir); err == nil {
		key.legacyTime = legacyInfo.ModTime().UnixNano()
	}
	if onDisk {
		if table, ok := manifests.Get(key); ok {
			return table, nil
		}
	}

	data, err := afero.ReadFile(fsys, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestNotFound, manifestPath, err)
	}

	legacy := make(map[string]bool)
	for _, entry := range safeReadDir(fsys, legacyDir) {
		legacy[entry.Name()] = true
	}

	table, err := ParseVersionTable(data, manifestPath, legacy)
	if err != nil {
		return nil, err
	}
	if onDisk {
		manifests.Set(key, table)
	}
	return table, nil
}

// ParseVersionTable parses manifest lines of the form "module: min[-max]".
// Text after '#' is a comment. legacyEntries is the listing of the legacy
// overlay directory; a module is legacy-only when its name or its stub file
// name appears there.
func ParseVersionTable(data []byte, path string, legacyEntries map[string]bool) (VersionTable, error) {
	table := make(VersionTable)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line, _, _ := strings.Cut(raw, "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		module, bounds, ok := strings.Cut(line, ": ")
		if !ok || strings.TrimSpace(module) == "" {
			return nil, &ManifestError{Path: path, Line: lineNo, Text: raw}
		}
		module = strings.TrimSpace(module)

		minStr, maxStr, hasMax := strings.Cut(strings.TrimSpace(bounds), "-")
		minVersion, err := config.ParseVersion(minStr)
		if err != nil {
			return nil, &ManifestError{Path: path, Line: lineNo, Text: raw, Err: err}
		}
		r := VersionRange{
			Min:        minVersion,
			LegacyOnly: legacyEntries[module] || legacyEntries[module+".pyi"],
		}
		if hasMax && strings.TrimSpace(maxStr) != "" {
			maxVersion, err := config.ParseVersion(maxStr)
			if err != nil {
				return nil, &ManifestError{Path: path, Line: lineNo, Text: raw, Err: err}
			}
			r.Max = &maxVersion
		}
		table[module] = r
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return table, nil
}
