package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "distill",
	Short: "Policy distillation pipeline for value-based agents",
	Long: `Runs the policy distillation pipeline: train a teacher agent while dumping
raw states, collect a (state, Q-values) buffer with a frozen teacher, train a
student against softened teacher targets, or relabel old state dumps with a
newer teacher's Q-values.

The operating mode is chosen in the config file; exactly one of
teacher/student/test/add_expert_q must be set.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newExportCommand())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
