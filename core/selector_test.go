package core

import (
	"context"
	"errors"
	"testing"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contentRepo lays out a small content repository and returns its root.
func contentRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writePackage(t, root, "Integrations/Legacy", map[string]string{"Legacy.yml": python3YML, "Legacy.py": "x = 1\n"})
	writePackage(t, root, "Packs/HelloWorld/Integrations/HelloWorld", map[string]string{"HelloWorld.yml": python3YML, "HelloWorld.py": "x = 1\n"})
	writePackage(t, root, "Packs/HelloWorld/Scripts/Sum", map[string]string{"Sum.yml": "type: python\n", "Sum.py": "x = 1\n"})
	writePackage(t, root, "Packs/Beta/Beta_Integrations/Preview", map[string]string{"Preview.yml": python3YML, "Preview.py": "x = 1\n"})
	writePackage(t, root, "Packs/HelloWorld/ReleaseNotes", map[string]string{"1_0_0.md": "notes"})
	return root
}

func paths(pkgs []schema.Package) []string {
	out := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, p.Path)
	}
	return out
}

func TestSelectPackages_All(t *testing.T) {
	root := contentRepo(t)
	facts := &schema.Facts{RepoRoot: root}

	pkgs, err := SelectPackages(context.Background(), facts, SelectOptions{All: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Integrations/Legacy",
		"Packs/Beta/Beta_Integrations/Preview",
		"Packs/HelloWorld/Integrations/HelloWorld",
		"Packs/HelloWorld/Scripts/Sum",
	}, paths(pkgs))
}

func TestSelectPackages_BrokenMetadataIsSkipped(t *testing.T) {
	root := contentRepo(t)
	writePackage(t, root, "Packs/Broken/Scripts/Broken", map[string]string{"Broken.yml": "script: [unclosed\n", "Broken.py": "x = 1\n"})
	facts := &schema.Facts{RepoRoot: root}

	pkgs, err := SelectPackages(context.Background(), facts, SelectOptions{All: true})
	require.NoError(t, err, "one malformed yml must not abort the selection")
	require.Len(t, pkgs, 5)

	var broken schema.Package
	for _, p := range pkgs {
		if p.Path == "Packs/Broken/Scripts/Broken" {
			broken = p
			continue
		}
		assert.NotEqual(t, schema.UnknownRuntime, p.Runtime, p.Path)
	}
	assert.Equal(t, "Broken", broken.Name)
	assert.Equal(t, schema.UnknownRuntime, broken.Runtime)

	res := NewLinter(facts, nil, nil, nil, LinterOptions{}, nil).RunPackage(context.Background(), broken, 0)
	assert.True(t, res.Skipped)
}

func TestSelectPackages_Explicit(t *testing.T) {
	root := contentRepo(t)
	dir := root + "/Packs/HelloWorld/Scripts/Sum"

	pkgs, err := SelectPackages(context.Background(), &schema.Facts{}, SelectOptions{Inputs: []string{dir}})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, dir, pkgs[0].Path, "explicit paths are used verbatim")
	assert.Equal(t, "Sum", pkgs[0].Name)
}

func TestSelectPackages_NoRepo(t *testing.T) {
	_, err := SelectPackages(context.Background(), &schema.Facts{}, SelectOptions{All: true})
	assert.Error(t, err)
	_, err = SelectPackages(context.Background(), &schema.Facts{}, SelectOptions{GitOnly: true})
	assert.Error(t, err)
}

func TestSelectPackages_GitUnion(t *testing.T) {
	ctx := context.Background()
	root := contentRepo(t)

	git := new(contract.MockGitClient)
	git.On("ListUntrackedFiles", ctx, root).Return([]string{"Packs/HelloWorld/Scripts/Sum/Sum.py"}, nil)
	git.On("ListStagedFiles", ctx, root).Return([]string{"Integrations/Legacy/Legacy.yml"}, nil)
	git.On("GetChangedFilesSince", ctx, root, "origin/master").
		Return([]string{"Packs/HelloWorld/Integrations/HelloWorld/test_data/input.json", "README.md"}, nil)

	pkgs, err := SelectPackages(ctx, &schema.Facts{RepoRoot: root}, SelectOptions{GitOnly: true, Git: git})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Integrations/Legacy",
		"Packs/HelloWorld/Integrations/HelloWorld",
		"Packs/HelloWorld/Scripts/Sum",
	}, paths(pkgs))
	git.AssertExpectations(t)
}

func TestSelectPackages_GitNoChanges(t *testing.T) {
	ctx := context.Background()
	root := contentRepo(t)

	git := new(contract.MockGitClient)
	git.On("ListUntrackedFiles", ctx, root).Return([]string{}, nil)
	git.On("ListStagedFiles", ctx, root).Return([]string{}, nil)
	git.On("GetChangedFilesSince", ctx, root, "upstream/master").Return(nil, errors.New("unknown revision"))

	pkgs, err := SelectPackages(ctx, &schema.Facts{RepoRoot: root}, SelectOptions{GitOnly: true, Remote: "upstream", Git: git})
	require.NoError(t, err)
	assert.Empty(t, pkgs)
}

func TestSelectPackages_GitListError(t *testing.T) {
	ctx := context.Background()
	root := contentRepo(t)

	git := new(contract.MockGitClient)
	git.On("ListUntrackedFiles", ctx, root).Return(nil, errors.New("git exploded"))

	_, err := SelectPackages(ctx, &schema.Facts{RepoRoot: root}, SelectOptions{GitOnly: true, Git: git})
	assert.Error(t, err)
}

func TestFilterTouched(t *testing.T) {
	candidates := []string{"/repo/Scripts/A", "/repo/Scripts/AB"}
	changed := []string{"/repo/Scripts/AB/AB.py"}
	assert.Equal(t, []string{"/repo/Scripts/AB"}, filterTouched(candidates, changed))
}
