package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/distill-go/pkg/export"
)

func newExportCommand() *cobra.Command {
	var bufDir string
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a collected buffer directory to a Parquet file",
		Example: `  distill export --buffer data/distillation_buffer/CartPole-v1/dqn/20260301120000 \
    --out buffer.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := export.Buffer(bufDir, outPath)
			if err != nil {
				return err
			}
			fmt.Printf("exported %d samples to %s\n", rows, outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&bufDir, "buffer", "b", "", "buffer directory to export")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output parquet path")
	_ = cmd.MarkFlagRequired("buffer")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
