package detection

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/market"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// weiToFloat converts a base-unit integer amount to a float assuming
// 18-decimal tokens, the common case for the WETH/stable pairs this
// core's scenarios exercise. A production decoder would carry the
// token's actual decimals alongside the swap intent.
func weiToFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(amount), big.NewFloat(1e18))
	out, _ := f.Float64()
	return out
}

// amountInUSD returns the USD notional of a decoded swap's amount_in,
// using the Price Store's spot price for the input token. Returns 0 if
// the transaction has no decoded swap intent or the store has no price
// for the token (DataStale-equivalent: callers treat 0 as "unknown",
// never fabricated).
func amountInUSD(t tx.Transaction, pools *market.Store) float64 {
	tokenIn, _, _, amountIn, _, _, ok := t.SwapIntent()
	if !ok {
		return 0
	}
	price, ok := pools.PriceOf(tokenIn)
	if !ok {
		return 0
	}
	return weiToFloat(amountIn) * price.USDPrice
}

// defaultGasPriceGwei is used when a transaction carries no gas price
// to derive an optimal bid from.
const defaultGasPriceGwei = 30

// gasPriceGwei converts a wei-denominated gas price to the
// gwei-scaled value riskscore.NetProfit expects for
// Opportunity.OptimalGasPriceWei, multiplied by bidMultiplier to model
// the premium a detector's own submission would need to pay (1.0 for
// "match the observed price", >1.0 to outbid it).
func gasPriceGwei(gasPriceWei *big.Int, bidMultiplier float64) float64 {
	if gasPriceWei == nil {
		return defaultGasPriceGwei * bidMultiplier
	}
	gwei := weiToFloat(gasPriceWei) * 1e9 // weiToFloat assumes 18 decimals; gas price has none
	return gwei * bidMultiplier
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func sameAddress(a, b common.Address) bool { return a == b }
