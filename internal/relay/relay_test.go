package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewAppliesDefaults(t *testing.T) {
	r, err := New(Config{Name: "flashbots", BundleURL: "https://relay.flashbots.net"}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, "flashbots", r.Name())

	h := r.Health()
	require.True(t, h.Connected)
	require.False(t, h.BreakerOpen)
	require.Equal(t, 0, h.FailuresInWindow)
}

func TestGzipCompressRoundTripsLength(t *testing.T) {
	payload := []byte("bundle-payload-bytes")
	compressed, err := gzipCompress(payload)
	require.NoError(t, err)
	require.NotEmpty(t, compressed)
	require.NotEqual(t, payload, compressed)
}
