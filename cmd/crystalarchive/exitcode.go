package main

import (
	"errors"

	"github.com/alovladi007/CODEX-Crystal-Optical-Data-Encoding-matriX/internal/ccerrors"
)

// exitCodeFor maps a returned error to the §6 exit-code contract: manifest
// tamper and uncorrectable-archive failures are unrecoverable (2); anything
// else that aborted a command but didn't corrupt data is a recoverable
// abort (1).
func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}
	switch {
	case errors.Is(err, ccerrors.ErrUncorrectableArchive),
		errors.Is(err, ccerrors.ErrUncorrectableBlock),
		errors.Is(err, ccerrors.ErrManifestTampered):
		return exitUncorrectable
	default:
		return exitAborted
	}
}
