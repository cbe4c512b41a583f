package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/manifest"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/pipeline"
)

func newDecodeCmd() *cobra.Command {
	var (
		outDir string
		soft   bool
		hard   bool
	)

	cmd := &cobra.Command{
		Use:   "decode <voxel_dir>",
		Short: "Decode a Crystal Archive voxel store back into a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if soft && hard {
				return fmt.Errorf("--soft and --hard are mutually exclusive")
			}
			useSoft := !hard // soft is the default unless --hard is explicit

			raw, err := os.ReadFile(filepath.Join(args[0], "manifest.json"))
			if err != nil {
				return err
			}
			m, err := manifest.Load(raw)
			if err != nil {
				return err
			}
			tiles, err := readTiles(args[0])
			if err != nil {
				return err
			}

			result, err := pipeline.Decode(m, tiles, outDir, useSoft)
			if err != nil {
				return err
			}
			fmt.Printf("recovered %d file(s) into %s\n", len(result.Files), outDir)
			for _, w := range result.Warnings {
				fmt.Fprintln(os.Stderr, "warning:", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "output folder (required)")
	cmd.Flags().BoolVar(&soft, "soft", false, "use soft-decision LDPC decoding (default)")
	cmd.Flags().BoolVar(&hard, "hard", false, "use hard-decision LDPC decoding")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
