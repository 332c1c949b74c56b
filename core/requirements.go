package core

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/huangsam/packlint/schema"
)

// ErrLockData is returned when dependency lock data is missing or unreadable.
// Every container build depends on it, so callers treat it as fatal.
var ErrLockData = errors.New("dependency lock data unavailable")

//go:embed resources/pipfile_python2/Pipfile.lock resources/pipfile_python3/Pipfile.lock
var lockFS embed.FS

// lockDirs maps a python runtime to its lock directory.
var lockDirs = map[schema.RuntimeKind]string{
	schema.Python2Runtime: "pipfile_python2",
	schema.Python3Runtime: "pipfile_python3",
}

type pipfileLock struct {
	Develop map[string]struct {
		Version string `json:"version"`
	} `json:"develop"`
}

// LoadRequirements reads the Pipfile.lock of each python runtime and returns
// its develop entries as pinned specifiers. An empty lockDir uses the embedded copies.
func LoadRequirements(lockDir string) (map[schema.RuntimeKind][]string, error) {
	var fsys fs.FS
	root := "resources"
	if lockDir != "" {
		fsys = os.DirFS(filepath.Clean(lockDir))
		root = "."
	} else {
		fsys = lockFS
	}

	out := make(map[schema.RuntimeKind][]string, len(lockDirs))
	for runtime, dir := range lockDirs {
		name := path.Join(root, dir, "Pipfile.lock")
		reqs, err := parseLock(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLockData, name, err)
		}
		out[runtime] = reqs
	}
	return out, nil
}

func parseLock(fsys fs.FS, name string) ([]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var lock pipfileLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("corrupt lock file: %w", err)
	}
	if len(lock.Develop) == 0 {
		return nil, errors.New("lock file has no develop entries")
	}

	reqs := make([]string, 0, len(lock.Develop))
	for pkg, entry := range lock.Develop {
		reqs = append(reqs, schema.FormatSpecifier(pkg, entry.Version))
	}
	slices.Sort(reqs)
	return reqs, nil
}
