package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var pricingFlags struct {
	provider     string
	model        string
	inputTokens  int
	outputTokens int
	format       string
}

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Inspect the model pricing table",
	Long: `Inspect the model pricing table.

The table is loaded from the configured pricing file. If the file is
missing or unparsable the embedded defaults are used and written back.

Subcommands:
  show - Print the pricing table
  cost - Price a hypothetical call

Examples:
  # Full table
  promptops pricing show

  # One provider
  promptops pricing show --provider openai

  # What would 1200 input + 300 output tokens cost on gpt-4o?
  promptops pricing cost --provider openai --model gpt-4o \
    --input-tokens 1200 --output-tokens 300`,
}

var pricingShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the pricing table",
	RunE:  runPricingShow,
}

var pricingCostCmd = &cobra.Command{
	Use:   "cost",
	Short: "Price a hypothetical call",
	RunE:  runPricingCost,
}

func init() {
	rootCmd.AddCommand(pricingCmd)
	pricingCmd.AddCommand(pricingShowCmd, pricingCostCmd)

	pricingShowCmd.Flags().StringVar(&pricingFlags.provider, "provider", "", "show one provider only")
	pricingShowCmd.Flags().StringVar(&pricingFlags.format, "format", "text", "output format: text, json")

	pricingCostCmd.Flags().StringVar(&pricingFlags.provider, "provider", "", "provider name (required)")
	pricingCostCmd.Flags().StringVar(&pricingFlags.model, "model", "", "model name (required)")
	pricingCostCmd.Flags().IntVar(&pricingFlags.inputTokens, "input-tokens", 0, "prompt tokens")
	pricingCostCmd.Flags().IntVar(&pricingFlags.outputTokens, "output-tokens", 0, "completion tokens")
	pricingCostCmd.MarkFlagRequired("provider")
	pricingCostCmd.MarkFlagRequired("model")
}

func runPricingShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	calc, err := newCalculator(cfg)
	if err != nil {
		return err
	}
	table := calc.Table()

	if pricingFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}

	fmt.Printf("Pricing table %s (%s), per 1000 tokens\n", table.Version, table.Currency)

	providerNames := make([]string, 0, len(table.Providers))
	for name := range table.Providers {
		if pricingFlags.provider != "" && name != pricingFlags.provider {
			continue
		}
		providerNames = append(providerNames, name)
	}
	sort.Strings(providerNames)

	for _, name := range providerNames {
		fmt.Printf("%s:\n", name)
		models := table.Providers[name]
		modelNames := make([]string, 0, len(models))
		for m := range models {
			modelNames = append(modelNames, m)
		}
		sort.Strings(modelNames)
		for _, m := range modelNames {
			p := models[m]
			fmt.Printf("  %-32s $%.5f in / $%.5f out\n", m, p.InputCostPer1K, p.OutputCostPer1K)
		}
	}
	return nil
}

func runPricingCost(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	calc, err := newCalculator(cfg)
	if err != nil {
		return err
	}

	cost, err := calc.Cost(pricingFlags.provider, pricingFlags.model,
		pricingFlags.inputTokens, pricingFlags.outputTokens)
	if err != nil {
		return err
	}

	fmt.Printf("%s/%s: %d in / %d out = $%.6f\n",
		pricingFlags.provider, pricingFlags.model,
		pricingFlags.inputTokens, pricingFlags.outputTokens, cost)
	return nil
}
