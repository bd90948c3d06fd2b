package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cube-manager",
	Short: "Cube manager: schedules tasks across a pool of workers",
	Long: `cube-manager accepts task submissions over HTTP, dispatches
them round-robin across its configured workers, and reconciles its
task database against what each worker reports running.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(submitCmd)
}
