package cmd

import (
	"context"
	"os"

	"github.com/huangsam/packlint/core"
	"github.com/huangsam/packlint/internal/contract"
	"github.com/huangsam/packlint/internal/outwriter"
	"github.com/spf13/cobra"
)

// lintCmd runs the lint and test battery.
var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Lint and test packages.",
	Long: `Run flake8, bandit, mypy and vulture on the host, then build a test image
per docker image of each package and run pylint and pytest inside it.
Powershell packages run the powershell analyzer and tests instead.

Packages run concurrently. The failure bitmap is the OR of the failure
bits of every package:

  flake8=1 bandit=2 mypy=4 pytest=8 pylint=16 image=32 vulture=64
  pwsh_analyze=128 pwsh_test=256

The process exit status is the low 8 bits of the bitmap. When only
pwsh_test failed the status is 255. The full bitmap is in the summary
and the JSON report.

Examples:
  # Lint one integration
  packlint lint -i Packs/HelloWorld/Integrations/HelloWorld

  # Lint everything you touched, without unit tests
  packlint lint --git --no-test

  # Lint the whole repository with 8 workers and a JSON report
  packlint lint --all-packages -p 8 --json-report ./reports`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		code, err := runLint(rootCtx)
		if err != nil {
			shutdown()
			contract.LogFatal("Cannot run lint", err)
		}
		shutdown()
		os.Exit(code)
	},
}

// runLint executes one lint run and prints its report. The returned code is the exit status.
func runLint(ctx context.Context) (int, error) {
	deps, cleanup := newDependencies()
	defer cleanup()

	report, err := core.ExecuteLint(ctx, cfg, deps)
	if err != nil {
		return 0, err
	}

	ow := outwriter.NewOutWriter()
	if err := ow.WriteLint(os.Stdout, report, cfg); err != nil {
		return 0, err
	}
	if cfg.JSONReportDir != "" {
		if _, err := ow.WriteJSON(report, cfg.JSONReportDir); err != nil {
			contract.LogWarn("Could not write JSON report", err)
		}
	}
	return report.ExitCode.ExitStatus(), nil
}
