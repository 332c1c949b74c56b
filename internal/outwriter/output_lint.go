package outwriter

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// maxErrorLines caps the tool output printed per package.
const maxErrorLines = 40

// ReportOptions controls how the console report is rendered.
type ReportOptions struct {
	Verbose  bool
	Color    bool
	Width    int
	Workers  int
	Duration time.Duration
}

// PrintLintReport renders the full console report: degradations, the per-tool
// summary, failure details, image build failures and the unit-test summary.
func PrintLintReport(w io.Writer, report *schema.AggregateReport, opts ReportOptions) error {
	label := contract.GetPlainLabel
	title := fmt.Sprint
	if opts.Color {
		label = contract.GetColorLabel
		title = contract.InfoColor.Sprint
	}
	if opts.Width <= 0 {
		opts.Width = GetMaxErrorWidth(0)
	}

	printDegradations(w, report)

	fmt.Fprintln(w, title("Lint Summary"))
	if err := printToolSummary(w, report, label); err != nil {
		return fmt.Errorf("error writing summary table: %w", err)
	}

	printToolFailures(w, report, opts, title)
	printImageFailures(w, report, opts, title)

	if err := printTestSummary(w, report, opts, title); err != nil {
		return fmt.Errorf("error writing test table: %w", err)
	}

	fmt.Fprintf(w, "Linted %d packages in %v with %d workers. Exit code: %d (%s)\n",
		len(report.Packages), opts.Duration, max(opts.Workers, 1), report.ExitCode.ExitStatus(), report.ExitCode)
	return nil
}

// summaryTools picks the tools that apply to the runtimes seen, in execution order.
func summaryTools(report *schema.AggregateReport) []schema.ToolName {
	python := report.RuntimesSeen[schema.Python2Runtime] || report.RuntimesSeen[schema.Python3Runtime]
	pwsh := report.RuntimesSeen[schema.PowershellRuntime]
	if !python && !pwsh {
		return schema.AllTools
	}
	var tools []schema.ToolName
	for _, tool := range schema.AllTools {
		switch tool {
		case schema.ImageTool:
			tools = append(tools, tool)
		case schema.PwshAnalyzeTool, schema.PwshTestTool:
			if pwsh {
				tools = append(tools, tool)
			}
		default:
			if python {
				tools = append(tools, tool)
			}
		}
	}
	return tools
}

// skipNote describes why a tool did not run.
func skipNote(report *schema.AggregateReport, tool schema.ToolName) string {
	reason, ok := report.Skipped.Reason(tool)
	if !ok {
		return ""
	}
	if reason == schema.SkipByFlag {
		return "disabled by flag"
	}
	return "docker unavailable"
}

// printToolSummary prints one row per tool with its pass/fail/skip status.
func printToolSummary(w io.Writer, report *schema.AggregateReport, label func(string) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Tool", "Status", "Failing", "Note"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, tool := range summaryTools(report) {
		data = append(data, []string{
			string(tool),
			label(report.ToolStatus(tool)),
			strconv.Itoa(len(report.Failing[tool])),
			skipNote(report, tool),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// failedOutcome pairs a failing outcome with the image it ran on, if any.
type failedOutcome struct {
	image   string
	outcome schema.CheckOutcome
}

// failuresFor returns the failing outcomes of tool within one package result.
func failuresFor(res schema.PackageResult, tool schema.ToolName) []failedOutcome {
	var out []failedOutcome
	for _, o := range res.Outcomes {
		if o.Tool == tool && o.Failed() {
			out = append(out, failedOutcome{outcome: o})
		}
	}
	for _, img := range res.Images {
		for _, o := range img.Outcomes {
			if o.Tool == tool && o.Failed() {
				out = append(out, failedOutcome{image: img.Image, outcome: o})
			}
		}
	}
	return out
}

// printToolFailures lists the error output of every failing package, grouped by tool.
func printToolFailures(w io.Writer, report *schema.AggregateReport, opts ReportOptions, title func(...any) string) {
	for _, tool := range schema.AllTools {
		if tool == schema.ImageTool {
			continue
		}
		failing := slices.Sorted(slices.Values(report.Failing[tool]))
		if len(failing) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", title(fmt.Sprintf("%s failed in %d packages", tool, len(failing))))
		for _, pkg := range failing {
			for _, f := range failuresFor(report.Packages[pkg], tool) {
				if f.image != "" {
					fmt.Fprintf(w, "  %s (%s)\n", pkg, f.image)
				} else {
					fmt.Fprintf(w, "  %s\n", pkg)
				}
				fmt.Fprint(w, indentBlock(f.outcome.Errors, opts.Width, maxErrorLines))
			}
		}
	}
}

// printImageFailures lists images whose build failed, with the build error.
func printImageFailures(w io.Writer, report *schema.AggregateReport, opts ReportOptions, title func(...any) string) {
	failing := slices.Sorted(slices.Values(report.Failing[schema.ImageTool]))
	if len(failing) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title(fmt.Sprintf("Image build failed in %d packages", len(failing))))
	for _, pkg := range failing {
		for _, img := range report.Packages[pkg].Images {
			if img.Build == nil || !img.Build.Failed() {
				continue
			}
			fmt.Fprintf(w, "  %s (%s)\n", pkg, img.Image)
			fmt.Fprint(w, indentBlock(img.Build.Errors, opts.Width, maxErrorLines))
		}
	}
}

// printTestSummary prints the unit-test counts, then failed tests with their
// traces. Passed tests are listed only in verbose mode.
func printTestSummary(w io.Writer, report *schema.AggregateReport, opts ReportOptions, title func(...any) string) error {
	summary := report.Tests()
	fmt.Fprintf(w, "\n%s\n", title("Unit Tests"))
	if summary.PackagesWithTests == 0 {
		fmt.Fprintln(w, "  No unit tests were run.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Packages", "Passed", "Failed", "Tests Passed", "Tests Failed", "Tests Skipped"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	row := []string{
		strconv.Itoa(summary.PackagesWithTests),
		strconv.Itoa(summary.PassedPackages),
		strconv.Itoa(summary.FailedPackages),
		strconv.Itoa(summary.PassedTests),
		strconv.Itoa(summary.FailedTests),
		strconv.Itoa(summary.SkippedTests),
	}
	if err := table.Bulk([][]string{row}); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	for _, pkg := range report.SortedPackages() {
		for _, o := range report.Packages[pkg].AllOutcomes() {
			if !o.Tool.RunsUnitTests() {
				continue
			}
			if len(o.Tests) == 0 && o.Failed() {
				fmt.Fprintf(w, "  %s %s: %s\n", contract.FailValue, pkg, o.Tool)
				continue
			}
			for _, tc := range o.Tests {
				switch {
				case tc.Outcome == schema.TestFailed:
					fmt.Fprintf(w, "  %s %s: %s\n", contract.FailValue, pkg, schema.DisplayTestName(tc.Name))
					for _, line := range tc.Trace {
						for _, chunk := range wrapLine(line, opts.Width) {
							fmt.Fprintf(w, "%s%s\n", errorIndent, chunk)
						}
					}
				case tc.Outcome == schema.TestPassed && opts.Verbose:
					fmt.Fprintf(w, "  %s %s: %s\n", contract.PassValue, pkg, schema.DisplayTestName(tc.Name))
				}
			}
		}
	}
	return nil
}

// printDegradations notes the capabilities that were unavailable at startup.
func printDegradations(w io.Writer, report *schema.AggregateReport) {
	for _, d := range report.Degradations {
		fmt.Fprintf(w, "⚠️  %s unavailable: %s\n", d.Capability, d.Reason)
	}
	if len(report.Degradations) > 0 {
		fmt.Fprintln(w)
	}
}
