package finder

import (
	"path/filepath"
	"strings"
)

// StubFile is one module yielded by AllStubFiles.
type StubFile struct {
	Module ModulePath
	Path   string
}

// AllStubFiles enumerates every module reachable for the configured version
// and platform: stub-only packages, then normal packages, then the corpus.
// Each module name is reported once, from the first tier that has it. Only
// .pyi files are yielded.
func (f *Finder) AllStubFiles() []StubFile {
	w := &walker{finder: f, seen: make(map[ModulePath]bool)}

	for _, stubPackages := range []bool{true, false} {
		for _, root := range f.cfg.SearchPath() {
			if !safeExists(f.fs, root) {
				continue
			}
			for _, entry := range safeReadDir(f.fs, root) {
				dir := filepath.Join(root, entry.Name())
				if !safeIsDir(f.fs, dir) {
					continue
				}
				if stubPackages {
					if !strings.HasSuffix(entry.Name(), "-stubs") {
						continue
					}
				} else if !isIdentifier(entry.Name()) {
					continue
				}
				w.walkPackage(dir, root)
			}
		}
	}

	typeshedDirs := []string{f.cfg.Typeshed()}
	if f.cfg.IsLegacy() {
		typeshedDirs = append([]string{filepath.Join(f.cfg.Typeshed(), LegacyDir)}, typeshedDirs...)
	}
	for i, dir := range typeshedDirs {
		overlay := f.cfg.IsLegacy() && i == 0
		w.walkTypeshed(dir, overlay)
	}

	return w.out
}

type walker struct {
	finder *Finder
	seen   map[ModulePath]bool
	out    []StubFile
}

func (w *walker) add(root, path string) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return
	}
	name := moduleFromPath(rel)
	if name.IsEmpty() || w.seen[name] {
		return
	}
	w.seen[name] = true
	w.out = append(w.out, StubFile{Module: name, Path: path})
}

// walkTypeshed visits the corpus root, skipping top-level modules the
// manifest does not list or that do not exist at the target version.
func (w *walker) walkTypeshed(dir string, overlay bool) {
	f := w.finder
	var files, dirs []string
	for _, entry := range safeReadDir(f.fs, dir) {
		path := filepath.Join(dir, entry.Name())
		switch {
		case safeIsDir(f.fs, path) && isIdentifier(entry.Name()):
			dirs = append(dirs, path)
		case safeIsFile(f.fs, path) && strings.HasSuffix(entry.Name(), ".pyi"):
			files = append(files, path)
		}
	}

	allowed := func(top string) bool {
		r, ok := f.versions[top]
		if !ok || !r.Contains(f.cfg.Version()) {
			return false
		}
		// legacy-only modules come from the overlay alone
		return !(f.cfg.IsLegacy() && !overlay && r.LegacyOnly)
	}

	for _, path := range files {
		if allowed(strings.TrimSuffix(filepath.Base(path), ".pyi")) {
			w.add(dir, path)
		}
	}
	for _, path := range dirs {
		if allowed(filepath.Base(path)) {
			w.walkPackage(path, dir)
		}
	}
}

// walkPackage yields the .pyi files under dir, files before sub-packages.
// Sub-directories are only descended when they carry an __init__ file.
func (w *walker) walkPackage(dir, root string) {
	f := w.finder
	var subdirs []string
	for _, entry := range safeReadDir(f.fs, dir) {
		path := filepath.Join(dir, entry.Name())
		if safeIsDir(f.fs, path) {
			if isIdentifier(entry.Name()) && hasInit(f, path) {
				subdirs = append(subdirs, path)
			}
			continue
		}
		if safeIsFile(f.fs, path) && filepath.Ext(path) == ".pyi" {
			w.add(root, path)
		}
	}
	for _, sub := range subdirs {
		w.walkPackage(sub, root)
	}
}

func hasInit(f *Finder, dir string) bool {
	for _, init := range initNames {
		if safeIsFile(f.fs, filepath.Join(dir, init)) {
			return true
		}
	}
	return false
}
