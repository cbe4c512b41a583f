package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/pipeline"
)

func newEncodeCmd() *cobra.Command {
	var (
		outDir     string
		profile    string
		seed       uint64
		sign       bool
		keyOutPath string
	)

	cmd := &cobra.Command{
		Use:   "encode <folder>",
		Short: "Encode a folder into a Crystal Archive voxel store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, err := pipeline.LookupProfile(profile)
			if err != nil {
				return err
			}
			opts := pipeline.Options{Seed: seed}
			if sign {
				pub, priv := deriveSigningKey(seed)
				opts.SigningKey = priv
				if keyOutPath != "" {
					if err := os.WriteFile(keyOutPath, []byte(fmt.Sprintf("%x\n", pub)), 0o600); err != nil {
						return err
					}
				}
			}

			archive, err := pipeline.Encode(args[0], prof, opts)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			raw, err := archive.Manifest.Save()
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(outDir, "manifest.json"), raw, 0o644); err != nil {
				return err
			}
			if err := writeTiles(outDir, archive.Tiles); err != nil {
				return err
			}
			fmt.Printf("encoded %d file(s) into %d tile(s) under %s\n", len(archive.Manifest.Files), len(archive.Tiles), outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "output voxel store directory (required)")
	cmd.Flags().StringVar(&profile, "profile", pipeline.ProfileNameA, "encoding profile: A or B")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "archive seed (LDPC matrix + derived interleaver seed)")
	cmd.Flags().BoolVar(&sign, "sign", false, "sign the manifest with an Ed25519 key derived from --seed")
	cmd.Flags().StringVar(&keyOutPath, "sign-pubkey-out", "", "path to write the signing public key to, when --sign is set")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
