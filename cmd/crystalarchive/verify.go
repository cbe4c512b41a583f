package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/manifest"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <voxel_dir>",
		Short: "Verify a voxel store's manifest integrity and tile completeness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			missing := m.Geometry.TotalTiles - len(tiles)

			if ok, sigErr := m.VerifySignature(); sigErr == nil && m.Integrity.Signature != nil && !ok {
				return fmt.Errorf("%w: signature does not match manifest hash", ccerrors.ErrManifestTampered)
			}

			fmt.Printf("manifest OK (profile %s, %d file(s), merkle root %s)\n", m.Profile, len(m.Files), m.Integrity.MerkleRoot)
			if missing > 0 {
				fmt.Printf("%d/%d tile(s) missing\n", missing, m.Geometry.TotalTiles)
			} else {
				fmt.Println("all tiles present")
			}
			return nil
		},
	}
	return cmd
}
