package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"promptops-hq/promptops/pkg/budget"
)

var spendFlags struct {
	org          string
	project      string
	provider     string
	model        string
	inputTokens  int
	outputTokens int
	days         int
	format       string
}

var spendCmd = &cobra.Command{
	Use:   "spend",
	Short: "Record and inspect the spend ledger",
	Long: `Record and inspect the append-only spend ledger.

Records are priced at write time from the current pricing table and are
never revised afterwards, so the ledger stays a faithful history even
when pricing changes.

Subcommands:
  record  - Append one spend record for a completed call
  history - Show recent spend records

Examples:
  # Record a call made outside the engine
  promptops spend record --org acme --project demo \
    --provider openai --model gpt-4o --input-tokens 1200 --output-tokens 300

  # Last two weeks of spend
  promptops spend history --org acme --project demo --days 14`,
}

var spendRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append one spend record",
	RunE:  runSpendRecord,
}

var spendHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent spend records",
	RunE:  runSpendHistory,
}

func init() {
	rootCmd.AddCommand(spendCmd)
	spendCmd.AddCommand(spendRecordCmd, spendHistoryCmd)

	for _, cmd := range []*cobra.Command{spendRecordCmd, spendHistoryCmd} {
		cmd.Flags().StringVar(&spendFlags.org, "org", "", "organization (required)")
		cmd.Flags().StringVar(&spendFlags.project, "project", "", "project (required)")
		cmd.MarkFlagRequired("org")
		cmd.MarkFlagRequired("project")
	}

	spendRecordCmd.Flags().StringVar(&spendFlags.provider, "provider", "", "provider name (required)")
	spendRecordCmd.Flags().StringVar(&spendFlags.model, "model", "", "model name (required)")
	spendRecordCmd.Flags().IntVar(&spendFlags.inputTokens, "input-tokens", 0, "prompt tokens consumed")
	spendRecordCmd.Flags().IntVar(&spendFlags.outputTokens, "output-tokens", 0, "completion tokens produced")
	spendRecordCmd.MarkFlagRequired("provider")
	spendRecordCmd.MarkFlagRequired("model")

	spendHistoryCmd.Flags().IntVar(&spendFlags.days, "days", 30, "trailing window in days")
	spendHistoryCmd.Flags().StringVar(&spendFlags.format, "format", "text", "output format: text, json")
}

func runSpendRecord(cmd *cobra.Command, args []string) error {
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

	cost, err := store.RecordSpend(context.Background(), budget.SpendEntry{
		Org:          spendFlags.org,
		Project:      spendFlags.project,
		Provider:     spendFlags.provider,
		Model:        spendFlags.model,
		InputTokens:  spendFlags.inputTokens,
		OutputTokens: spendFlags.outputTokens,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Recorded $%.6f for %s/%s (%s/%s, %d in / %d out)\n",
		cost, spendFlags.org, spendFlags.project,
		spendFlags.provider, spendFlags.model,
		spendFlags.inputTokens, spendFlags.outputTokens)
	return nil
}

func runSpendHistory(cmd *cobra.Command, args []string) error {
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

	records, err := store.GetSpendHistory(context.Background(),
		spendFlags.org, spendFlags.project, spendFlags.days)
	if err != nil {
		return err
	}

	if spendFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Printf("No spend recorded for %s/%s in the last %d days\n",
			spendFlags.org, spendFlags.project, spendFlags.days)
		return nil
	}

	var total float64
	for _, r := range records {
		fmt.Printf("%s  %-10s %-24s %6d in / %6d out  $%.6f\n",
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Provider, r.Model, r.InputTokens, r.OutputTokens, r.CostUSD)
		total += r.CostUSD
	}
	fmt.Printf("Total: $%.4f over %d records\n", total, len(records))
	return nil
}
