package core

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/huangsam/packlint/schema"
	"gopkg.in/yaml.v3"
)

// Default base images when the package yml names none.
const (
	DefaultPythonImage     = "demisto/python:1.3-alpine"
	DefaultPowershellImage = "demisto/powershell:7.1.3.22028"
)

// apiModuleImport matches `from FooApiModule import *`.
var apiModuleImport = regexp.MustCompile(`from ([\w\d]+ApiModule) import \*`)

// scriptSection is the part of a package yml that decides how it is linted.
type scriptSection struct {
	Type            string   `yaml:"type"`
	Subtype         string   `yaml:"subtype"`
	DockerImage     string   `yaml:"dockerimage"`
	AltDockerImages []string `yaml:"alt_dockerimages"`
}

// packageYAML accepts the script keys both at top level (scripts) and
// nested under `script:` (integrations).
type packageYAML struct {
	scriptSection `yaml:",inline"`
	Script        yaml.Node `yaml:"script"`
}

// LoadPackage inspects a package directory. Path is kept as the report identity;
// relative paths resolve against the current directory.
func LoadPackage(path string) (schema.Package, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return schema.Package{}, fmt.Errorf("resolve package %q: %w", path, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return schema.Package{}, fmt.Errorf("package %q: %w", path, err)
	}
	if !info.IsDir() {
		return schema.Package{}, fmt.Errorf("package %q is not a directory", path)
	}

	pkg := schema.Package{
		Path:    filepath.Clean(path),
		Dir:     dir,
		Name:    filepath.Base(dir),
		Runtime: schema.UnknownRuntime,
	}

	section, found, err := readScriptSection(dir, pkg.Name)
	if err != nil {
		return schema.Package{}, err
	}
	if !found {
		return pkg, nil
	}
	pkg.Runtime, pkg.Images = classify(section)
	if pkg.Runtime == schema.UnknownRuntime {
		return pkg, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return schema.Package{}, fmt.Errorf("read package %q: %w", path, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if isTestFile(name) {
			pkg.HasTests = true
			continue
		}
		if isLintFile(pkg.Runtime, name) {
			pkg.LintFiles = append(pkg.LintFiles, name)
		}
	}
	slices.Sort(pkg.LintFiles)

	if pkg.Runtime.IsPython() {
		if pkg.ExtraRequirements, err = readExtraRequirements(dir); err != nil {
			return schema.Package{}, err
		}
		if pkg.ImportedModules, err = scanApiModules(dir, pkg.LintFiles); err != nil {
			return schema.Package{}, err
		}
	}
	return pkg, nil
}

// readScriptSection loads <name>.yml or <name>.yaml from the package directory.
func readScriptSection(dir, name string) (scriptSection, bool, error) {
	for _, ext := range []string{".yml", ".yaml"} {
		data, err := os.ReadFile(filepath.Join(dir, name+ext))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return scriptSection{}, false, err
		}

		var doc packageYAML
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return scriptSection{}, false, fmt.Errorf("parse %s%s: %w", name, ext, err)
		}
		if doc.Script.Kind == yaml.MappingNode {
			var nested scriptSection
			if err := doc.Script.Decode(&nested); err != nil {
				return scriptSection{}, false, fmt.Errorf("parse script section of %s%s: %w", name, ext, err)
			}
			return nested, true, nil
		}
		return doc.scriptSection, true, nil
	}
	return scriptSection{}, false, nil
}

// classify maps yml keys to a runtime kind and the ordered list of target images.
func classify(s scriptSection) (schema.RuntimeKind, []string) {
	var runtime schema.RuntimeKind
	var fallback string
	switch strings.ToLower(s.Type) {
	case "python":
		runtime = schema.Python2Runtime
		if strings.ToLower(s.Subtype) == "python3" {
			runtime = schema.Python3Runtime
		}
		fallback = DefaultPythonImage
	case "powershell":
		runtime = schema.PowershellRuntime
		fallback = DefaultPowershellImage
	default:
		return schema.UnknownRuntime, nil
	}

	images := []string{}
	primary := strings.TrimSpace(s.DockerImage)
	if primary == "" {
		primary = fallback
	}
	images = append(images, primary)
	for _, alt := range s.AltDockerImages {
		if alt = strings.TrimSpace(alt); alt != "" && !slices.Contains(images, alt) {
			images = append(images, alt)
		}
	}
	return runtime, images
}

func isTestFile(name string) bool {
	return (strings.HasSuffix(name, ".py") && (strings.HasPrefix(name, "test_") || strings.HasSuffix(name, "_test.py"))) ||
		strings.HasSuffix(name, ".Tests.ps1")
}

func isLintFile(runtime schema.RuntimeKind, name string) bool {
	if name == "__init__.py" || slices.Contains(ExcludedFiles, name) {
		return false
	}
	if runtime == schema.PowershellRuntime {
		return strings.HasSuffix(name, ".ps1")
	}
	return strings.HasSuffix(name, ".py")
}

// readExtraRequirements returns the non-comment lines of test-requirements.txt.
func readExtraRequirements(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, "test-requirements.txt"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var reqs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		reqs = append(reqs, line)
	}
	return reqs, scanner.Err()
}

// scanApiModules finds ApiModule star imports in the lint files.
func scanApiModules(dir string, files []string) ([]string, error) {
	var modules []string
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		for _, m := range apiModuleImport.FindAllSubmatch(data, -1) {
			if mod := string(m[1]); !slices.Contains(modules, mod) {
				modules = append(modules, mod)
			}
		}
	}
	return modules, nil
}
