package chainclient

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// StaticPriceOracle is a minimal PriceOracle backed by an in-memory
// table, useful for tests and as a placeholder until a real price feed
// collaborator is wired in.
type StaticPriceOracle struct {
	mu     sync.RWMutex
	prices map[common.Address]float64
}

// NewStaticPriceOracle returns an oracle seeded with prices.
func NewStaticPriceOracle(prices map[common.Address]float64) *StaticPriceOracle {
	table := make(map[common.Address]float64, len(prices))
	for k, v := range prices {
		table[k] = v
	}
	return &StaticPriceOracle{prices: table}
}

// Spot implements PriceOracle.
func (o *StaticPriceOracle) Spot(ctx context.Context, token common.Address) (float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.prices[token]
	return p, ok
}

// Set updates the price for token.
func (o *StaticPriceOracle) Set(token common.Address, usdPrice float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[token] = usdPrice
}
