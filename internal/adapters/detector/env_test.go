package detector_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fsnap/internal/adapters/detector"
	"go.trai.ch/fsnap/internal/core/domain"
)

func TestDetectEnvironment(t *testing.T) {
	t.Setenv("CI", "")

	assert.Equal(t, detector.ModePlain, detector.DetectEnvironment(&bytes.Buffer{}), "writers without a descriptor are plain")

	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	assert.Equal(t, detector.ModePlain, detector.DetectEnvironment(f), "regular files are not terminals")
}

func TestDetectEnvironment_CI(t *testing.T) {
	tests := []struct {
		name    string
		ciValue string
	}{
		{name: "CI=true forces plain mode", ciValue: "true"},
		{name: "CI=1 forces plain mode", ciValue: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CI", tt.ciValue)
			assert.Equal(t, detector.ModePlain, detector.DetectEnvironment(os.Stderr))
		})
	}
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		name     string
		detected detector.OutputMode
		format   string
		expected detector.OutputMode
	}{
		{name: "auto respects detection (pretty)", detected: detector.ModePretty, format: domain.LogFormatAuto, expected: detector.ModePretty},
		{name: "auto respects detection (plain)", detected: detector.ModePlain, format: domain.LogFormatAuto, expected: detector.ModePlain},
		{name: "empty format respects detection", detected: detector.ModePretty, format: "", expected: detector.ModePretty},
		{name: "pretty overrides detection", detected: detector.ModePlain, format: domain.LogFormatPretty, expected: detector.ModePretty},
		{name: "plain overrides detection", detected: detector.ModePretty, format: domain.LogFormatPlain, expected: detector.ModePlain},
		{name: "json overrides detection", detected: detector.ModePretty, format: domain.LogFormatJSON, expected: detector.ModeJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detector.ResolveMode(tt.detected, tt.format))
		})
	}
}
