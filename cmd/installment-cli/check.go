package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"serial-novel-engine/internal/application/installment/model"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the quality checks against an installment text",
	RunE:  runCheck,
}

var (
	checkInFile   string
	checkNumber   int
	checkStrategy string
)

func init() {
	checkCmd.Flags().StringVarP(&checkInFile, "in", "i", "-", "Input text file, - for stdin")
	checkCmd.Flags().IntVarP(&checkNumber, "number", "n", 1, "Installment number used by the first-installment rules")
	checkCmd.Flags().StringVar(&checkStrategy, "strategy", string(model.StrategySinglePass), "Strategy the text was produced with")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	text, err := readInput(checkInFile)
	if err != nil {
		return err
	}
	svc, cleanup, err := loadService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	violations, report := svc.Check(text, checkNumber, model.Strategy(checkStrategy))
	b, err := json.MarshalIndent(map[string]any{
		"violations": violations,
		"report":     report,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return writeOutput("", string(b))
}
