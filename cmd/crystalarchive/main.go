// Command crystalarchive is the external CLI front-end for the Crystal
// Archive core: encode/decode/verify/simulate over a 5D-optical-style
// voxel store directory (§6 of the interface contract).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/calog"
)

// Exit codes per §6: 0 success, 1 recoverable-but-aborted, 2 uncorrectable.
const (
	exitSuccess    = 0
	exitAborted    = 1
	exitUncorrectable = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var verbose bool

	root := &cobra.Command{
		Use:           "crystalarchive",
		Short:         "Encode and decode 5D optical storage archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				calog.SetLevel(calog.LevelDebug)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newEncodeCmd(), newDecodeCmd(), newVerifyCmd(), newSimulateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitCodeFor(err)
	}
	return exitSuccess
}
