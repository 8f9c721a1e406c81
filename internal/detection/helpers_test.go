package detection

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// txWith builds a minimal Transaction for detector tests: a four-byte
// selector prefix followed by data, at the given gas price.
func txWith(t *testing.T, hash common.Hash, to common.Address, gasPriceWei *big.Int, selector []byte, value *big.Int) tx.Transaction {
	t.Helper()
	return tx.Transaction{
		Hash:        hash,
		To:          to,
		Value:       value,
		GasPriceWei: gasPriceWei,
		Data:        selector,
	}
}

// ethWei returns the wei value of usd dollars at the given ETH/USD price.
func ethWei(usd float64, ethPriceUSD float64) *big.Int {
	eth := usd / ethPriceUSD
	f := new(big.Float).Mul(big.NewFloat(eth), big.NewFloat(1e18))
	out, _ := f.Int(nil)
	return out
}

// gwei returns n gwei in wei.
func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

// newID returns a deterministic id generator for detector tests.
func newID(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + string(rune('0'+n))
	}
}
