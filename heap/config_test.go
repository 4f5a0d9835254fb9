package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigGeometry(t *testing.T) {
	require.NoError(t, DefaultConfig.Validate())
	require.Equal(t, uint32(65536), DefaultConfig.TotalBlocks())
	require.Equal(t, 8192, DefaultConfig.BitmapBytes())
	require.Equal(t, uint32(128), DefaultConfig.ReservedBlocks())
	require.Equal(t, uint32(65408), DefaultConfig.PayloadBlocks())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"block size not power of two", Config{Size: 4096, BlockSize: 48}},
		{"block size too small", Config{Size: 4096, BlockSize: 8}},
		{"zero size", Config{Size: 0, BlockSize: 64}},
		{"size not multiple of block", Config{Size: 4100, BlockSize: 64}},
		{"partial bitmap byte", Config{Size: 64 * 12, BlockSize: 64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.cfg.Validate(), ErrBadConfig)
		})
	}
}

func TestSmallConfigReservesOneBlock(t *testing.T) {
	cfg := Config{Size: 64 * 64, BlockSize: 64}
	require.NoError(t, cfg.Validate())
	require.Equal(t, 8, cfg.BitmapBytes())
	require.Equal(t, uint32(1), cfg.ReservedBlocks())
	require.Equal(t, uint32(63), cfg.PayloadBlocks())
}
