package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"serial-novel-engine/internal/application/installment/model"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one installment from an outline",
	RunE:  runGenerate,
}

var (
	genSeriesID      string
	genNumber        int
	genTitle         string
	genOutlineFile   string
	genStructureFile string
	genStrategy      string
	genTier          int
	genOutFile       string
	genJSON          bool
)

func init() {
	generateCmd.Flags().StringVarP(&genSeriesID, "series", "s", "", "Series identifier (required)")
	generateCmd.Flags().IntVarP(&genNumber, "number", "n", 0, "Installment number (required)")
	generateCmd.Flags().StringVarP(&genTitle, "title", "t", "", "Installment title")
	generateCmd.Flags().StringVarP(&genOutlineFile, "outline", "i", "", "Path to the outline file, - for stdin (required)")
	generateCmd.Flags().StringVar(&genStructureFile, "structure", "", "Path to a structural outline file")
	generateCmd.Flags().StringVar(&genStrategy, "strategy", "", "Force a strategy: single-pass, chunked or beat-directed")
	generateCmd.Flags().IntVar(&genTier, "tier", 0, "Quality tier 1-3")
	generateCmd.Flags().StringVarP(&genOutFile, "out", "o", "", "Write the installment text to this file")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "Print the full result as JSON")

	for _, name := range []string{"series", "number", "outline"} {
		if err := generateCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	outline, err := readInput(genOutlineFile)
	if err != nil {
		return err
	}
	req := &model.Request{
		SeriesID:          genSeriesID,
		InstallmentNumber: genNumber,
		Title:             genTitle,
		Outline:           outline,
		Strategy:          genStrategy,
		Tier:              genTier,
	}
	if genStructureFile != "" {
		if req.StructuralOutline, err = readInput(genStructureFile); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	svc, cleanup, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := svc.Generate(ctx, req)
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	fmt.Fprintf(os.Stderr, "strategy=%s chars=%d calls=%d cost=$%.4f regenerated=%v rewrites=%d corrections=%d\n",
		res.Strategy, res.CharCount, res.Usage.Calls, res.Usage.EstimatedCostUSD, res.Regenerated, res.Rewrites, len(res.Corrections))

	if genJSON {
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if err := writeOutput("", string(b)); err != nil {
			return err
		}
		if genOutFile == "" {
			return nil
		}
	}
	return writeOutput(genOutFile, res.Text)
}
