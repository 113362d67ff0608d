package vos

import (
	"errors"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

func findExecutable(vos VOS, file string) error {
	d, err := vos.Stat(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case err != nil:
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// LookPath searches for an executable named file in the directories named by
// the PATH environment variable. If file contains a slash, it is tried directly
// and the PATH is not consulted. Relative results are resolved against the
// working directory of vos.
func LookPath(vos VOS, file string) (string, error) {
	if strings.Contains(file, "/") {
		abs, err := Abs(vos, file)
		if err != nil {
			return "", err
		}
		if err := findExecutable(vos, abs); err != nil {
			return "", err
		}
		return abs, nil
	}

	for _, dir := range filepath.SplitList(vos.Getenv("PATH")) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path, err := Abs(vos, filepath.Join(dir, file))
		if err != nil {
			continue
		}
		if err := findExecutable(vos, path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}
