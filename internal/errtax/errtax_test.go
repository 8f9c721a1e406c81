package errtax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndIs(t *testing.T) {
	err := New(LimitExceeded, "trade too large")
	require.True(t, Is(err, LimitExceeded))
	require.False(t, Is(err, BreakerTripped))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(cause, RelayUnavailable, "no relay reachable")
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "timeout")
}

func TestWithDetailChains(t *testing.T) {
	err := New(InputInvalid, "bad quantity").WithDetail("quantity", -1)
	assert.Equal(t, -1, err.Details["quantity"])
}

func TestKindOf(t *testing.T) {
	err := New(DataStale, "pool stale")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, DataStale, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
