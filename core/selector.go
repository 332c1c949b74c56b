package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
)

// packageShapes are the directory globs that hold packages under a pack root.
var packageShapes = []string{"Integrations/*", "Scripts/*", "Beta_Integrations/*"}

// SelectOptions describes how packages are chosen.
type SelectOptions struct {
	Inputs  []string
	All     bool
	GitOnly bool
	Remote  string
	Git     contract.GitClient
	Logger  *slog.Logger
}

// SelectPackages resolves the packages to lint. An empty result is valid.
func SelectPackages(ctx context.Context, facts *schema.Facts, opts SelectOptions) ([]schema.Package, error) {
	if !opts.All && !opts.GitOnly {
		pkgs := make([]schema.Package, 0, len(opts.Inputs))
		for _, p := range opts.Inputs {
			pkg, err := LoadPackage(p)
			if err != nil {
				return nil, err
			}
			pkgs = append(pkgs, pkg)
		}
		return pkgs, nil
	}

	if !facts.HasRepo() {
		return nil, errors.New("--all-packages and --git need a repository; pass explicit paths with --input")
	}
	candidates, err := discoverPackages(facts.RepoRoot)
	if err != nil {
		return nil, err
	}
	if opts.GitOnly {
		changed, err := changedFiles(ctx, facts.RepoRoot, opts)
		if err != nil {
			return nil, err
		}
		candidates = filterTouched(candidates, changed)
	}

	logger := opts.Logger
	if logger == nil {
		logger = contract.NewDiscardLogger()
	}
	pkgs := make([]schema.Package, 0, len(candidates))
	for _, dir := range candidates {
		rel, err := filepath.Rel(facts.RepoRoot, dir)
		if err != nil {
			rel = dir
		}
		pkg, err := LoadPackage(dir)
		if err != nil {
			// A broken yml costs only its own package.
			logger.Warn("package metadata unreadable; skipping", "package", rel, "error", err)
			pkg = schema.Package{Dir: dir, Name: filepath.Base(dir), Runtime: schema.UnknownRuntime}
		}
		pkg.Path = rel
		pkgs = append(pkgs, pkg)
	}
	slices.SortFunc(pkgs, func(a, b schema.Package) int { return strings.Compare(a.Path, b.Path) })
	return pkgs, nil
}

// discoverPackages globs package shapes at the repo root and under every pack.
func discoverPackages(root string) ([]string, error) {
	bases := []string{root}
	packs, err := filepath.Glob(filepath.Join(root, "Packs", "*"))
	if err != nil {
		return nil, err
	}
	bases = append(bases, packs...)

	var dirs []string
	for _, base := range bases {
		for _, shape := range packageShapes {
			matches, err := filepath.Glob(filepath.Join(base, shape))
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				if isDir(m) {
					dirs = append(dirs, m)
				}
			}
		}
	}
	slices.Sort(dirs)
	return slices.Compact(dirs), nil
}

// changedFiles is the union of untracked, staged and upstream-diff files as absolute paths.
func changedFiles(ctx context.Context, root string, opts SelectOptions) ([]string, error) {
	if opts.Git == nil {
		return nil, errors.New("git client required for --git")
	}
	untracked, err := opts.Git.ListUntrackedFiles(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("list untracked files: %w", err)
	}
	staged, err := opts.Git.ListStagedFiles(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("list staged files: %w", err)
	}

	remote := opts.Remote
	if remote == "" {
		remote = contract.DefaultGitRemote
	}
	committed, err := opts.Git.GetChangedFilesSince(ctx, root, remote+"/master")
	if err != nil {
		// A missing upstream ref should not hide local changes.
		if opts.Logger != nil {
			opts.Logger.Warn("could not diff against upstream", "ref", remote+"/master", "error", err)
		}
		committed = nil
	}

	all := slices.Concat(untracked, staged, committed)
	out := make([]string, 0, len(all))
	for _, f := range all {
		out = append(out, filepath.Join(root, filepath.FromSlash(f)))
	}
	return out, nil
}

// filterTouched keeps candidates that contain at least one changed file.
func filterTouched(candidates, changed []string) []string {
	var out []string
	for _, dir := range candidates {
		prefix := dir + string(filepath.Separator)
		if slices.ContainsFunc(changed, func(f string) bool { return strings.HasPrefix(f, prefix) }) {
			out = append(out, dir)
		}
	}
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
