package finder

import (
	"os"

	"github.com/spf13/afero"
)

// Probes are best-effort: any OS error (permissions, transient I/O) reads as
// "does not exist" instead of failing the lookup.

func safeExists(fsys afero.Fs, path string) bool {
	_, err := fsys.Stat(path)
	return err == nil
}

func safeIsDir(fsys afero.Fs, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && info.IsDir()
}

func safeIsFile(fsys afero.Fs, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// safeReadDir lists a directory sorted by name, or nothing on error.
func safeReadDir(fsys afero.Fs, path string) []os.FileInfo {
	entries, err := afero.ReadDir(fsys, path)
	if err != nil {
		return nil
	}
	return entries
}
