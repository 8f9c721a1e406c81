package detection

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// liquidationSelectors are the four-byte function selectors of the
// liquidate entrypoints this core recognizes across common lending
// protocols (Aave-style liquidationCall, Compound-style liquidateBorrow).
var liquidationSelectors = map[[4]byte]bool{
	{0x00, 0xa7, 0x18, 0xa9}: true, // liquidationCall(address,address,address,uint256,bool)
	{0xf5, 0xe3, 0xc4, 0x62}: true, // liquidateBorrow(address,uint256,address)
	{0x96, 0xcd, 0x4d, 0xdb}: true, // liquidateBorrow(address,uint256)
}

// liquidationDataMarker is a protocol-specific byte marker some
// liquidation calldata carries ahead of its ABI-encoded arguments, used
// as a fallback signal when the selector table misses a protocol
// variant.
var liquidationDataMarker = []byte{0x4c, 0x49, 0x51, 0x55} // "LIQU"

// LiquidationDetector implements §4.4.4.
type LiquidationDetector struct{}

func (LiquidationDetector) Name() opportunity.Type { return opportunity.Liquidation }

func (LiquidationDetector) Detect(candidate tx.Transaction, stores Stores, cfg Config, nowNs uint64, newID func() string) []opportunity.Opportunity {
	selectorMatch := liquidationSelectors[candidate.FunctionSelector()]
	markerMatch := bytes.Contains(candidate.Data, liquidationDataMarker)
	if !selectorMatch && !markerMatch {
		return nil
	}

	confidence := 0.8
	if confidence < cfg.MinConfidence {
		return nil
	}

	valueUSD := candidate.ValueUSD(cfg.EthPriceUSD)
	profit := valueUSD * 0.05 // liquidation bonus approximation
	if profit < cfg.MinProfitUSD {
		return nil
	}

	o := opportunity.Opportunity{
		ID:                      newID(),
		Type:                    opportunity.Liquidation,
		ConfidenceScore:         confidence,
		ConfidenceTier:          opportunity.TierOf(confidence),
		EstimatedProfitUSD:      profit,
		RequiredGas:             300_000, // liquidation call plus collateral swap
		OptimalGasPriceWei:      gasPriceGwei(candidate.GasPriceWei, 1.15),
		ExecutionDeadlineBlocks: 2,
		DetectedAt:              nowNs,
		ExpiresAt:               nowNs + 2*12_000_000_000,
		InvolvedTxHashes:        []common.Hash{candidate.Hash},
	}
	return []opportunity.Opportunity{o}
}
