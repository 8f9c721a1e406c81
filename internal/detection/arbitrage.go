package detection

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/market"
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// ArbitrageDetector implements §4.4.3, including the triangular variant
// over a configured hub set.
type ArbitrageDetector struct{}

func (ArbitrageDetector) Name() opportunity.Type { return opportunity.Arbitrage }

// swapOut approximates constant-product output for amountIn of tokenIn
// against pool p, net of its fee. This is a mid-price approximation
// (no slippage curvature beyond the single multiplicative fee term) —
// adequate for ranking candidate paths, not for execution sizing.
func swapOut(p market.Pool, tokenIn common.Address, amountIn float64) (float64, bool) {
	var reserveIn, reserveOut float64
	switch {
	case p.TokenA == tokenIn:
		reserveIn, reserveOut = p.ReserveA, p.ReserveB
	case p.TokenB == tokenIn:
		reserveIn, reserveOut = p.ReserveB, p.ReserveA
	default:
		return 0, false
	}
	if reserveIn <= 0 || reserveOut <= 0 {
		return 0, false
	}
	feeMultiplier := 1 - float64(p.FeeBps)/10_000
	amountInWithFee := amountIn * feeMultiplier
	out := reserveOut * amountInWithFee / (reserveIn + amountInWithFee)
	return out, true
}

func otherToken(p market.Pool, token common.Address) common.Address {
	if p.TokenA == token {
		return p.TokenB
	}
	return p.TokenA
}

// pathProfit walks amountIn of startToken through path (a sequence of
// pools assumed to connect end to end) and returns the output amount
// of whatever token the path ends on.
func pathProfit(pools []market.Pool, startToken common.Address, amountIn float64) (common.Address, float64) {
	token := startToken
	amount := amountIn
	for _, p := range pools {
		out, ok := swapOut(p, token, amount)
		if !ok {
			return token, 0
		}
		amount = out
		token = otherToken(p, token)
	}
	return token, amount
}

func (ArbitrageDetector) Detect(candidate tx.Transaction, stores Stores, cfg Config, nowNs uint64, newID func() string) []opportunity.Opportunity {
	tokenIn, tokenOut, _, amountIn, _, _, ok := candidate.SwapIntent()
	if !ok {
		return nil
	}
	notional := weiToFloat(amountIn)
	if notional <= 0 {
		return nil
	}

	var out []opportunity.Opportunity

	// Direct 2-hop: tokenIn -> tokenOut via one pool, then back to
	// tokenIn via another pool quoting the same pair.
	poolsA := stores.Pools.PoolsForToken(tokenIn)
	for _, first := range poolsA {
		if otherToken(first, tokenIn) != tokenOut {
			continue
		}
		poolsB := stores.Pools.PoolsForToken(tokenOut)
		for _, second := range poolsB {
			if second.Address == first.Address {
				continue
			}
			if otherToken(second, tokenOut) != tokenIn {
				continue
			}
			endToken, amountOut := pathProfit([]market.Pool{first, second}, tokenIn, notional)
			if endToken != tokenIn || amountOut <= notional {
				continue
			}
			profitTokens := amountOut - notional
			price, hasPrice := stores.Pools.PriceOf(tokenIn)
			profitUSD := profitTokens
			if hasPrice {
				profitUSD = profitTokens * price.USDPrice
			}
			if profitUSD <= cfg.MinProfitUSD {
				continue
			}
			out = append(out, opportunity.Opportunity{
				ID:                 newID(),
				Type:               opportunity.Arbitrage,
				ConfidenceScore:    0.75,
				ConfidenceTier:     opportunity.TierOf(0.75),
				EstimatedProfitUSD: profitUSD,
				RequiredGas:        250_000, // two pool legs
				OptimalGasPriceWei: gasPriceGwei(candidate.GasPriceWei, 1.0),
				DetectedAt:         nowNs,
				ExpiresAt:          nowNs + uint64(cfg.ArbitrageWindowBlocks+1)*12_000_000_000,
				InvolvedTxHashes:   []common.Hash{candidate.Hash},
				ArbitragePath: []opportunity.ArbitrageHop{
					{PoolAddress: first.Address, TokenIn: tokenIn, TokenOut: tokenOut},
					{PoolAddress: second.Address, TokenIn: tokenOut, TokenOut: tokenIn},
				},
			})
		}
	}

	// Triangular: tokenIn -> hub -> tokenOut -> tokenIn over the
	// configured hub set, three hops.
	for _, hub := range cfg.ArbitrageHubs {
		if hub == tokenIn || hub == tokenOut {
			continue
		}
		var leg1, leg2, leg3 *market.Pool
		for _, p := range stores.Pools.PoolsForToken(tokenIn) {
			if otherToken(p, tokenIn) == hub {
				pp := p
				leg1 = &pp
				break
			}
		}
		if leg1 == nil {
			continue
		}
		for _, p := range stores.Pools.PoolsForToken(hub) {
			if sameAddress(p.Address, leg1.Address) {
				continue
			}
			if otherToken(p, hub) == tokenOut {
				pp := p
				leg2 = &pp
				break
			}
		}
		if leg2 == nil {
			continue
		}
		for _, p := range stores.Pools.PoolsForToken(tokenOut) {
			if sameAddress(p.Address, leg1.Address) || sameAddress(p.Address, leg2.Address) {
				continue
			}
			if otherToken(p, tokenOut) == tokenIn {
				pp := p
				leg3 = &pp
				break
			}
		}
		if leg3 == nil {
			continue
		}
		endToken, amountOut := pathProfit([]market.Pool{*leg1, *leg2, *leg3}, tokenIn, notional)
		if endToken != tokenIn || amountOut <= notional {
			continue
		}
		profitTokens := amountOut - notional
		price, hasPrice := stores.Pools.PriceOf(tokenIn)
		profitUSD := profitTokens
		if hasPrice {
			profitUSD = profitTokens * price.USDPrice
		}
		if profitUSD <= cfg.MinProfitUSD {
			continue
		}
		out = append(out, opportunity.Opportunity{
			ID:                 newID(),
			Type:               opportunity.Arbitrage,
			ConfidenceScore:    0.75,
			ConfidenceTier:     opportunity.TierOf(0.75),
			EstimatedProfitUSD: profitUSD,
			RequiredGas:        350_000, // three pool legs
			OptimalGasPriceWei: gasPriceGwei(candidate.GasPriceWei, 1.0),
			DetectedAt:         nowNs,
			ExpiresAt:          nowNs + uint64(cfg.ArbitrageWindowBlocks+1)*12_000_000_000,
			InvolvedTxHashes:   []common.Hash{candidate.Hash},
			ArbitragePath: []opportunity.ArbitrageHop{
				{PoolAddress: leg1.Address, TokenIn: tokenIn, TokenOut: hub},
				{PoolAddress: leg2.Address, TokenIn: hub, TokenOut: tokenOut},
				{PoolAddress: leg3.Address, TokenIn: tokenOut, TokenOut: tokenIn},
			},
		})
	}

	return out
}
