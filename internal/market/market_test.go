package market

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertAndLookupPool(t *testing.T) {
	s := New()
	weth := common.HexToAddress("0x1")
	usdc := common.HexToAddress("0x2")
	poolAddr := common.HexToAddress("0xaaaa")

	s.UpsertPool(Pool{Address: poolAddr, TokenA: weth, TokenB: usdc, MidPrice: 3000})

	p, ok := s.Pool(poolAddr)
	require.True(t, ok)
	assert.Equal(t, 3000.0, p.MidPrice)

	pools := s.PoolsForToken(weth)
	require.Len(t, pools, 1)
	assert.Equal(t, poolAddr, pools[0].Address)
}

func TestUpsertPoolReplacesNotDuplicates(t *testing.T) {
	s := New()
	weth := common.HexToAddress("0x1")
	usdc := common.HexToAddress("0x2")
	poolAddr := common.HexToAddress("0xaaaa")

	s.UpsertPool(Pool{Address: poolAddr, TokenA: weth, TokenB: usdc, MidPrice: 3000})
	s.UpsertPool(Pool{Address: poolAddr, TokenA: weth, TokenB: usdc, MidPrice: 3010})

	pools := s.PoolsForToken(weth)
	require.Len(t, pools, 1)
	assert.Equal(t, 3010.0, pools[0].MidPrice)
}

func TestPriceOfMissing(t *testing.T) {
	s := New()
	_, ok := s.PriceOf(common.HexToAddress("0xdead"))
	assert.False(t, ok)
}

func TestUpsertPriceAndLookup(t *testing.T) {
	s := New()
	weth := common.HexToAddress("0x1")
	s.UpsertPrice(Price{Token: weth, USDPrice: 3005.5})
	pr, ok := s.PriceOf(weth)
	require.True(t, ok)
	assert.Equal(t, 3005.5, pr.USDPrice)
}

func TestFreshTracksUpsert(t *testing.T) {
	s := New()
	weth := common.HexToAddress("0x1")
	assert.False(t, s.Fresh(weth))
	s.UpsertPrice(Price{Token: weth, USDPrice: 3005.5})
	assert.True(t, s.Fresh(weth))
}
