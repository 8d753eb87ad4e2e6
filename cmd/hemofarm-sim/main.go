// Package main is the headless scenario runner for the hemogen farm policy.
// It steps a private engine through scripted nights and reports pass/fail.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
	"github.com/MRamiBalles/HemogenFarm/internal/scenario"
)

var (
	scenarioNames []string
	jsonOutput    bool
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "hemofarm-sim",
	Short: "Run scripted hemogen farm scenarios against a headless engine",
	Long: `Runs each scenario on a fresh engine, stepping ticks directly instead of
waiting on the wall clock. Exits non-zero if any scenario fails.`,
	SilenceUsage: true,
	RunE:         runScenarios,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in scenarios",
	Run: func(cmd *cobra.Command, args []string) {
		for _, sc := range scenario.Builtin() {
			fmt.Printf("%-24s %s\n", sc.Name, sc.Description)
		}
	},
}

func init() {
	rootCmd.Flags().StringSliceVarP(&scenarioNames, "scenario", "s", nil, "Scenario names to run (default: all)")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine events to stderr")
	rootCmd.AddCommand(listCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	selected, err := scenario.Select(scenario.Builtin(), scenarioNames)
	if err != nil {
		return err
	}

	log := logger.NewNop()
	if verbose {
		log, err = logger.New(logger.Options{Development: true, Level: "debug"})
		if err != nil {
			return err
		}
		defer log.Sync()
	}

	results := scenario.Run(cmd.Context(), selected, log)

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		printResults(results, failed)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

func printResults(results []scenario.Result, failed int) {
	rule := strings.Repeat("=", 60)
	fmt.Println(rule)
	fmt.Println("HEMOGEN FARM SCENARIOS")
	fmt.Println(rule)
	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		fmt.Printf("[%s] %-24s scheduled=%d cancelled=%d completed=%d ticks=%d (%s)\n",
			status, r.Name, r.Scheduled, r.Cancelled, r.Completed, r.Ticks, r.Elapsed.Round(1e6))
		if r.Reason != "" {
			fmt.Println("       " + r.Reason)
		}
	}
	fmt.Println(rule)
	fmt.Printf("Passed: %d  Failed: %d\n", len(results)-failed, failed)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
