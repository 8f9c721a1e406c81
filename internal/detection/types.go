// Package detection implements the Detection Kernel (C6): a set of pure
// detector functions over a candidate transaction plus the Pool/Price
// Store (C3), Historical Returns (C4), and Mempool Snapshot (C5), each
// producing zero or more Opportunity values. The kernel composes the
// enabled detectors, dedupes, filters by confidence/profit thresholds,
// and hands the survivors to the Opportunity Registry (C7).
//
// Every detector in this package is a closed-set, named implementation
// (Sandwich, Frontrun, Arbitrage, Liquidation, JitLiquidity, Pattern)
// rather than a virtual-dispatch hierarchy, per the "tagged variant ...
// closed set of implementations" design note.
package detection

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/market"
	"github.com/hydraflowx/mevcore/internal/mempool"
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/returns"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// Config is the detection-side tuning surface (mirrors config.Detection;
// this package does not import internal/config to keep the detector set
// free of the validation/default-assembly concern).
type Config struct {
	MinProfitUSD          float64
	MinConfidence         float64
	MaxGasCostRatio       float64
	SandwichWindowBlocks  int
	ArbitrageWindowBlocks int
	ArbitrageHubs         []common.Address
	LearnedPatterns       [][]byte
	EthPriceUSD           float64

	// ProtectionThreatThresholdUSD is the §4.4.8 profitability
	// override consulted by Profitable: an opportunity that fails the
	// net-profit test is still retained when it is a sandwich threat
	// whose estimated victim loss meets this bar.
	ProtectionThreatThresholdUSD float64
}

// Stores bundles the read-only collaborators every detector needs.
type Stores struct {
	Pools    *market.Store
	Returns  *returns.Store
	Mempool  *mempool.Snapshot
}

// Detector is the closed-set interface every detection algorithm
// implements. Detect must be a pure function of its inputs.
type Detector interface {
	Name() opportunity.Type
	Detect(candidate tx.Transaction, stores Stores, cfg Config, nowNs uint64, newID func() string) []opportunity.Opportunity
}
