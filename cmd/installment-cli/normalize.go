package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Apply deterministic corrections to an installment text",
	RunE:  runNormalize,
}

var (
	normInFile  string
	normOutFile string
)

func init() {
	normalizeCmd.Flags().StringVarP(&normInFile, "in", "i", "-", "Input text file, - for stdin")
	normalizeCmd.Flags().StringVarP(&normOutFile, "out", "o", "", "Output file (defaults to stdout)")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	text, err := readInput(normInFile)
	if err != nil {
		return err
	}
	svc, cleanup, err := loadService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	out, corrections := svc.Normalize(text)
	for _, c := range corrections {
		fmt.Fprintf(os.Stderr, "%s: %q -> %q\n", c.Label, c.Before, c.After)
	}
	return writeOutput(normOutFile, out)
}
