// Package main benchmarks packlint lint runs against a content repository.
// Each package is linted with the image cache disabled and then with the SQLite
// cache, treating the first cached run as cold and averaging the rest as warm.
// Results are written as CSV for comparing image build cost against reuse.
//
// Prerequisites:
// - packlint binary installed and available in PATH
// - Docker daemon reachable by the current user
// - A content repository checked out at the given directory
//
// Usage: go run benchmark/main.go [content-repo-dir] [package-path...]
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// defaultPackages are linted when no package paths are given.
var defaultPackages = []string{
	"Packs/HelloWorld/Integrations/HelloWorld",
	"Packs/CommonScripts/Scripts/Set",
	"Packs/Base/Scripts/CommonServerPython",
}

// BenchmarkResult holds the timings for one package.
type BenchmarkResult struct {
	Package     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoDir     string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Packages    []string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Printf("Usage: %s [content-repo-dir] [package-path...]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		RepoDir:     os.Args[1],
		Timeout:     15 * time.Minute,
		Workers:     4,
		NoCacheRuns: 2,
		CacheRuns:   4,
		Packages:    defaultPackages,
	}
	if len(os.Args) > 2 {
		config.Packages = os.Args[2:]
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing image cache...\n")
	clearCmd := exec.Command("packlint", "cache", "clear")
	clearCmd.Dir = config.RepoDir
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the packlint binary and every package exist.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("packlint"); err != nil {
		return errors.New("packlint binary not found in PATH")
	}
	for _, pkg := range config.Packages {
		if _, err := os.Stat(filepath.Join(config.RepoDir, pkg)); err != nil {
			return fmt.Errorf("package %s not found in %s", pkg, config.RepoDir)
		}
	}
	return nil
}

// runBenchmarks lints every configured package in both cache modes.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	fmt.Printf("Starting benchmark: %d packages, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Packages), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	results := make([]BenchmarkResult, 0, len(config.Packages))
	for _, pkg := range config.Packages {
		fmt.Printf("Benchmarking %s\n", pkg)

		_, noCacheAvg := runPhase(config, pkg, "none", config.NoCacheRuns)
		cold, warmAvg := runPhase(config, pkg, "sqlite", config.CacheRuns)

		coldTime := "TIMEOUT"
		if cold > 0 {
			coldTime = fmt.Sprintf("%.3fs", cold)
		}
		fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTime, warmAvg)

		results = append(results, BenchmarkResult{
			Package:     pkg,
			NoCacheTime: noCacheAvg,
			ColdTime:    coldTime,
			WarmTime:    warmAvg,
		})
	}
	return results
}

// runPhase lints pkg numRuns times and returns the first duration and the
// formatted average of the remaining ones.
func runPhase(config BenchmarkConfig, pkg, cacheBackend string, numRuns int) (float64, string) {
	fmt.Printf("  %s cache phase (%d runs)\n", cacheBackend, numRuns)

	var times []float64
	for range numRuns {
		if d, ok := lintOnce(config, pkg, cacheBackend); ok {
			times = append(times, d.Seconds())
		}
	}
	if len(times) == 0 {
		return 0, "TIMEOUT"
	}

	cold, warm := times[0], times[1:]
	if cacheBackend == "none" {
		warm = times
	}
	if len(warm) == 0 {
		return cold, "N/A"
	}
	var sum float64
	for _, t := range warm {
		sum += t
	}
	return cold, fmt.Sprintf("%.3fs", sum/float64(len(warm)))
}

// lintOnce runs a single lint and reports its duration. Lint findings make
// packlint exit non-zero, so completion is judged from the summary line.
func lintOnce(config BenchmarkConfig, pkg, cacheBackend string) (time.Duration, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	args := []string{
		"lint", "-i", pkg,
		"--workers", fmt.Sprint(config.Workers),
		"--cache-backend", cacheBackend,
		"--history-backend", "none",
		"--color", "no",
	}
	cmd := exec.CommandContext(ctx, "packlint", args...)
	cmd.Dir = config.RepoDir

	start := time.Now()
	output, _ := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return 0, false
	}
	return time.Since(start), isComplete(output)
}

// isComplete checks that the lint printed its final summary.
func isComplete(output []byte) bool {
	out := string(output)
	return strings.Contains(out, "Linted") && strings.Contains(out, "Exit code:")
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("packlint_benchmark_%s.csv", time.Now().Format("20060102_150405")))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"package", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write([]string{r.Package, r.NoCacheTime, r.ColdTime, r.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results.
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, r := range results {
		fmt.Printf("  %-50s: No-cache: %s, Cold: %s, Warm: %s\n", r.Package, r.NoCacheTime, r.ColdTime, r.WarmTime)
	}
}
