package hasher_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/fsnap/internal/adapters/hasher"
	"go.trai.ch/fsnap/internal/core/domain"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantHex  string
	}{
		{
			name:     "default is xxhash64",
			input:    "",
			wantName: domain.HashXXHash64,
			wantHex:  "ef46db3751d8e999",
		},
		{
			name:     "sha256",
			input:    domain.HashSHA256,
			wantName: domain.HashSHA256,
			wantHex:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := hasher.New(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, h.Name())
			assert.Equal(t, tt.wantHex, hex.EncodeToString(h.New().Sum(nil)))
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := hasher.New("md5")
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrUnknownHashFunction.Error())
}

func TestHasher_FreshDigests(t *testing.T) {
	h, err := hasher.New(domain.HashXXHash64)
	require.NoError(t, err)

	a := h.New()
	_, _ = a.Write([]byte("content"))
	b := h.New()

	assert.NotEqual(t, a.Sum(nil), b.Sum(nil))
}
