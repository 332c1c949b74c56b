// Package schema holds the shared data model for packlint.
package schema

import "time"

// Degradation records a capability that was unavailable at startup.
type Degradation struct {
	Capability string `json:"capability"`
	Reason     string `json:"reason"`
}

// Facts is the process-wide environment record, computed once and never mutated.
type Facts struct {
	RepoRoot         string                   `json:"repo_root"`
	Requirements     map[RuntimeKind][]string `json:"requirements"`
	MandatoryModules map[string][]byte        `json:"-"`
	DockerAvailable  bool                     `json:"docker_available"`
	NetworkAvailable bool                     `json:"network_available"`
	Degradations     []Degradation            `json:"degradations,omitempty"`
}

// HasRepo reports whether a repository root was detected.
func (f *Facts) HasRepo() bool {
	return f.RepoRoot != ""
}

// RequirementsFor returns the pinned requirements for the runtime.
// Python versions below 3 share the python2 manifest.
func (f *Facts) RequirementsFor(runtimeVersion string) []string {
	if len(runtimeVersion) > 0 && runtimeVersion[0] < '3' {
		return f.Requirements[Python2Runtime]
	}
	return f.Requirements[Python3Runtime]
}

// Package is a directory holding one integration or script. Path is the
// report identity; Dir is the absolute directory the tools run in.
type Package struct {
	Path              string      `json:"path"`
	Dir               string      `json:"-"`
	Name              string      `json:"name"`
	Runtime           RuntimeKind `json:"runtime"`
	Images            []string    `json:"images,omitempty"`
	LintFiles         []string    `json:"lint_files,omitempty"`
	HasTests          bool        `json:"has_tests"`
	ExtraRequirements []string    `json:"extra_requirements,omitempty"`
	ImportedModules   []string    `json:"imported_modules,omitempty"`
}

// TestCase is one unit test result parsed from the pytest report.
type TestCase struct {
	Name    string      `json:"name"`
	Outcome TestOutcome `json:"outcome"`
	Trace   []string    `json:"trace,omitempty"`
}

// CheckOutcome is the result of one tool run.
type CheckOutcome struct {
	Tool       ToolName    `json:"tool"`
	Bit        FailureBits `json:"bit"`
	Errors     string      `json:"errors,omitempty"`
	Tests      []TestCase  `json:"tests,omitempty"`
	DurationMs int64       `json:"duration_ms"`
}

// Failed reports whether the tool failed.
func (o CheckOutcome) Failed() bool {
	return o.Bit != NoFailures
}

// ImageResult groups the outcomes of the container-scoped tools for one image.
type ImageResult struct {
	Image          string         `json:"image"`
	RuntimeVersion string         `json:"runtime_version"`
	Build          *CheckOutcome  `json:"build,omitempty"`
	Outcomes       []CheckOutcome `json:"outcomes,omitempty"`
}

// PackageResult aggregates every outcome for one package. It is immutable once
// the runner returns it.
type PackageResult struct {
	Package  string         `json:"package"`
	Runtime  RuntimeKind    `json:"runtime"`
	ExitCode FailureBits    `json:"exit_code"`
	Skipped  bool           `json:"skipped,omitempty"`
	Outcomes []CheckOutcome `json:"outcomes,omitempty"`
	Images   []ImageResult  `json:"images,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
}

// AllOutcomes returns host outcomes followed by every image's build and tool outcomes.
func (r PackageResult) AllOutcomes() []CheckOutcome {
	all := append([]CheckOutcome{}, r.Outcomes...)
	for _, img := range r.Images {
		if img.Build != nil {
			all = append(all, *img.Build)
		}
		all = append(all, img.Outcomes...)
	}
	return all
}

// Outcome returns the first outcome for the tool across host and images.
func (r PackageResult) Outcome(tool ToolName) (CheckOutcome, bool) {
	for _, o := range r.AllOutcomes() {
		if o.Tool == tool {
			return o, true
		}
	}
	return CheckOutcome{}, false
}
