// Package market implements the Pool & Price Store (C3): keyed maps from
// pool address to reserves/fee and token to price, each guarded by its
// own RWMutex per the one-lock-per-store discipline used throughout the
// core. Readers always get a copy, never a pointer into the live map, so
// a snapshot is never torn.
package market

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
)

// DefaultPriceTTL is how long a price is considered fresh after an
// UpsertPrice before Fresh starts reporting DataStale.
const DefaultPriceTTL = 30 * time.Second

// Pool is the (P) data model from the specification.
type Pool struct {
	Address      common.Address
	DEXName      string
	TokenA       common.Address
	TokenB       common.Address
	ReserveA     float64
	ReserveB     float64
	MidPrice     float64
	Liquidity    float64
	FeeBps       int
	LastUpdated  uint64
}

// Price is the (Π) data model from the specification.
type Price struct {
	Token          common.Address
	USDPrice       float64
	PerDEXPrices   []float64
	Volatility     float64
	LastUpdatedNs  uint64
}

// Store is the process-wide Pool & Price Store singleton. It is created
// once at core start and torn down at stop; there is no reload-from-disk
// path in core scope.
type Store struct {
	poolsMu sync.RWMutex
	pools   map[common.Address]Pool

	// byToken indexes pool addresses touching a given token, rebuilt
	// incrementally on upsert.
	byToken map[common.Address][]common.Address

	pricesMu sync.RWMutex
	prices   map[common.Address]Price

	freshness *cache.Cache
}

// New returns an empty, ready Store. Price freshness is tracked with a
// TTL cache rather than by comparing LastUpdatedNs against wall time on
// every read, the same pattern the reference corpus uses for its
// position cache.
func New() *Store {
	return &Store{
		pools:     make(map[common.Address]Pool),
		byToken:   make(map[common.Address][]common.Address),
		prices:    make(map[common.Address]Price),
		freshness: cache.New(DefaultPriceTTL, 2*DefaultPriceTTL),
	}
}

// UpsertPool atomically replaces the pool record for p.Address.
func (s *Store) UpsertPool(p Pool) {
	s.poolsMu.Lock()
	defer s.poolsMu.Unlock()

	if _, exists := s.pools[p.Address]; !exists {
		s.byToken[p.TokenA] = appendUnique(s.byToken[p.TokenA], p.Address)
		s.byToken[p.TokenB] = appendUnique(s.byToken[p.TokenB], p.Address)
	}
	s.pools[p.Address] = p
}

func appendUnique(addrs []common.Address, addr common.Address) []common.Address {
	for _, a := range addrs {
		if a == addr {
			return addrs
		}
	}
	return append(addrs, addr)
}

// PoolsForToken returns a copied view of every pool touching token.
func (s *Store) PoolsForToken(token common.Address) []Pool {
	s.poolsMu.RLock()
	defer s.poolsMu.RUnlock()

	addrs := s.byToken[token]
	out := make([]Pool, 0, len(addrs))
	for _, a := range addrs {
		if p, ok := s.pools[a]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Pool returns a copy of the pool at address, if present.
func (s *Store) Pool(address common.Address) (Pool, bool) {
	s.poolsMu.RLock()
	defer s.poolsMu.RUnlock()
	p, ok := s.pools[address]
	return p, ok
}

// UpsertPrice atomically replaces the price record for pr.Token and
// resets its freshness TTL.
func (s *Store) UpsertPrice(pr Price) {
	s.pricesMu.Lock()
	defer s.pricesMu.Unlock()
	s.prices[pr.Token] = pr
	s.freshness.SetDefault(pr.Token.Hex(), struct{}{})
}

// PriceOf returns a copy of the price record for token, if present.
func (s *Store) PriceOf(token common.Address) (Price, bool) {
	s.pricesMu.RLock()
	defer s.pricesMu.RUnlock()
	pr, ok := s.prices[token]
	return pr, ok
}

// Fresh reports whether token has a price record that was upserted
// within DefaultPriceTTL. A caller that needs a price for detection and
// gets Fresh()==false should treat it as the DataStale error kind
// (§7) rather than using a possibly-fabricated value.
func (s *Store) Fresh(token common.Address) bool {
	_, ok := s.freshness.Get(token.Hex())
	return ok
}
