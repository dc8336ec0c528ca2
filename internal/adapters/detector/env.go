// Package detector provides environment detection for output mode selection.
package detector

import (
	"io"
	"os"

	"go.trai.ch/fsnap/internal/core/domain"
	"golang.org/x/term"
)

// OutputMode represents how log output is rendered.
type OutputMode int

const (
	// ModeAuto defers to environment detection.
	ModeAuto OutputMode = iota
	// ModePretty renders styled, human-readable output.
	ModePretty
	// ModePlain renders human-readable output without ANSI styling.
	ModePlain
	// ModeJSON renders one JSON object per record.
	ModeJSON
)

// DetectEnvironment returns the recommended output mode for w.
// It checks if w is a TTY and if CI environment variables are set.
func DetectEnvironment(w io.Writer) OutputMode {
	isTTY := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		isTTY = term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in an int
	}

	ci := os.Getenv("CI")
	isCI := ci == "true" || ci == "1"

	if !isTTY || isCI {
		return ModePlain
	}
	return ModePretty
}

// ResolveMode applies the configured log format to the detected mode.
// format should be one of the domain.LogFormat values or empty.
func ResolveMode(detected OutputMode, format string) OutputMode {
	switch format {
	case domain.LogFormatPretty:
		return ModePretty
	case domain.LogFormatPlain:
		return ModePlain
	case domain.LogFormatJSON:
		return ModeJSON
	default:
		return detected
	}
}
