package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
)

// mandatoryModulePaths are repo-relative files every python package needs to lint and test.
var mandatoryModulePaths = []string{
	"Tests/demistomock/demistomock.py",
	"Tests/scripts/dev_envs/pytest/conftest.py",
	"Scripts/CommonServerPython/CommonServerPython.py",
}

// userModule is always present, even if empty.
const userModule = "CommonServerUserPython.py"

// collectMandatoryModules reads each module from <remote>/master, falling back to the
// working tree. Without a git client only the working tree is read. Missing modules
// are returned as the second value.
func collectMandatoryModules(ctx context.Context, git contract.GitClient, repoRoot, remote string, fetch bool, logger *slog.Logger) (map[string][]byte, []string) {
	modules := map[string][]byte{userModule: {}}
	if repoRoot == "" {
		return modules, mandatoryModulePaths
	}

	ref := remote + "/master"
	if fetch && git != nil {
		if err := git.Fetch(ctx, repoRoot, remote, "master"); err != nil {
			logger.Warn("fetch of mandatory modules failed, using local refs", "remote", remote, "error", err)
		}
	}

	var missing []string
	for _, rel := range mandatoryModulePaths {
		var content []byte
		err := errors.New("no git client")
		if git != nil {
			content, err = git.ShowFile(ctx, repoRoot, ref, rel)
		}
		if err != nil {
			logger.Debug("module not found at ref, trying working tree", "module", rel, "ref", ref, "error", err)
			content, err = os.ReadFile(filepath.Join(repoRoot, filepath.FromSlash(rel)))
		}
		if err != nil {
			missing = append(missing, rel)
			continue
		}
		modules[filepath.Base(rel)] = content
	}
	return modules, missing
}

// moduleInjection tracks the files one package run wrote into its directory.
type moduleInjection struct {
	created []string
}

// injectModules writes the mandatory modules and the package's ApiModules into
// its directory. Files that already exist are left untouched.
func injectModules(pkg schema.Package, facts *schema.Facts) (*moduleInjection, error) {
	inj := &moduleInjection{}
	var errs []error

	for name, content := range facts.MandatoryModules {
		if err := inj.write(filepath.Join(pkg.Dir, name), content); err != nil {
			errs = append(errs, err)
		}
	}

	for _, mod := range pkg.ImportedModules {
		if !facts.HasRepo() {
			errs = append(errs, fmt.Errorf("cannot resolve %s without a repository", mod))
			continue
		}
		src := filepath.Join(facts.RepoRoot, "Packs", "ApiModules", "Scripts", mod, mod+".py")
		content, err := os.ReadFile(src)
		if err != nil {
			errs = append(errs, fmt.Errorf("read api module %s: %w", mod, err))
			continue
		}
		if err := inj.write(filepath.Join(pkg.Dir, mod+".py"), content); err != nil {
			errs = append(errs, err)
		}
	}
	return inj, errors.Join(errs...)
}

func (m *moduleInjection) write(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	m.created = append(m.created, path)
	return nil
}

// cleanup removes only the files this injection created.
func (m *moduleInjection) cleanup() error {
	var errs []error
	for _, path := range m.created {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	m.created = nil
	return errors.Join(errs...)
}
