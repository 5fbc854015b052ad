package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var budgetFlags struct {
	org       string
	project   string
	limit     float64
	threshold float64
	format    string
}

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage monthly spending budgets",
	Long: `Manage per-organization/project monthly spending budgets.

Budgets cap calendar-month spend. Before a call is made, the engine
checks current month spend plus a cost estimate against the limit and
denies calls that would cross it. Missing budgets never block anything.

Subcommands:
  set     - Create or update a budget
  status  - Show current month status for one budget
  list    - List all budgets with current month figures

Examples:
  # Cap acme/demo at $50 per month, alerting at 80% (the default)
  promptops budget set --org acme --project demo --limit 50

  # Alert earlier
  promptops budget set --org acme --project demo --limit 50 --threshold 0.5

  # Where does acme/demo stand this month?
  promptops budget status --org acme --project demo`,
}

var budgetSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update a budget",
	RunE:  runBudgetSet,
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current month budget status",
	RunE:  runBudgetStatus,
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all budgets",
	RunE:  runBudgetList,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetSetCmd, budgetStatusCmd, budgetListCmd)

	for _, cmd := range []*cobra.Command{budgetSetCmd, budgetStatusCmd} {
		cmd.Flags().StringVar(&budgetFlags.org, "org", "", "organization (required)")
		cmd.Flags().StringVar(&budgetFlags.project, "project", "", "project (required)")
		cmd.MarkFlagRequired("org")
		cmd.MarkFlagRequired("project")
	}

	budgetSetCmd.Flags().Float64Var(&budgetFlags.limit, "limit", 0, "monthly limit in USD (required)")
	budgetSetCmd.Flags().Float64Var(&budgetFlags.threshold, "threshold", 0, "alert threshold as a 0..1 fraction (default 0.8)")
	budgetSetCmd.MarkFlagRequired("limit")

	budgetStatusCmd.Flags().StringVar(&budgetFlags.format, "format", "text", "output format: text, json")
	budgetListCmd.Flags().StringVar(&budgetFlags.format, "format", "text", "output format: text, json")
}

func runBudgetSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	calc, err := newCalculator(cfg)
	if err != nil {
		return err
	}
	store, err := openBudgetStore(cfg, calc)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, err := store.SetBudget(context.Background(),
		budgetFlags.org, budgetFlags.project, budgetFlags.limit, budgetFlags.threshold)
	if err != nil {
		return err
	}

	fmt.Printf("Budget for %s/%s: $%.2f/month, alert at %.0f%%\n",
		limit.Org, limit.Project, limit.MonthlyLimitUSD, limit.AlertThreshold*100)
	return nil
}

func runBudgetStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	calc, err := newCalculator(cfg)
	if err != nil {
		return err
	}
	store, err := openBudgetStore(cfg, calc)
	if err != nil {
		return err
	}
	defer store.Close()

	status, err := store.GetBudgetStatus(context.Background(), budgetFlags.org, budgetFlags.project)
	if err != nil {
		return err
	}

	if budgetFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	if !status.HasBudget {
		fmt.Printf("No budget set for %s/%s\n", budgetFlags.org, budgetFlags.project)
		return nil
	}

	fmt.Printf("Budget:     $%.2f/month\n", status.MonthlyLimitUSD)
	fmt.Printf("Spent:      $%.4f (%.1f%%)\n", status.CurrentSpendUSD, status.PercentUsed*100)
	fmt.Printf("Remaining:  $%.4f\n", status.RemainingUSD)
	switch {
	case status.OverBudget:
		fmt.Println("Status:     OVER BUDGET")
	case status.AlertTriggered:
		fmt.Printf("Status:     alert (past %.0f%% threshold)\n", status.AlertThreshold*100)
	default:
		fmt.Println("Status:     ok")
	}
	return nil
}

func runBudgetList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	calc, err := newCalculator(cfg)
	if err != nil {
		return err
	}
	store, err := openBudgetStore(cfg, calc)
	if err != nil {
		return err
	}
	defer store.Close()

	budgets, err := store.ListBudgets(context.Background())
	if err != nil {
		return err
	}

	if budgetFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(budgets)
	}

	if len(budgets) == 0 {
		fmt.Println("No budgets set")
		return nil
	}
	for _, b := range budgets {
		fmt.Printf("%s/%s: $%.4f of $%.2f (%.1f%%)\n",
			b.Org, b.Project, b.CurrentSpendUSD, b.MonthlyLimitUSD, b.PercentUsed*100)
	}
	return nil
}
