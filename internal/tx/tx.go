// Package tx defines the transaction data model shared by the mempool
// snapshot, detection kernel, and protection router. A Transaction is
// immutable once constructed; derived attributes are computed lazily
// and cached on the value itself since a Transaction is never mutated
// concurrently after admission.
package tx

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transaction is the core (T) data model from the specification.
type Transaction struct {
	Hash           common.Hash
	From           common.Address
	To             common.Address
	Value          *big.Int
	GasLimit       uint64
	GasPriceWei    *big.Int
	Data           []byte
	BlockNumber    uint64
	ObservedAtNs   uint64
	MempoolPosition int

	decoded   *decodedIntent
	decodeTry bool
}

// decodedIntent holds the lazily-derived DEX swap intent of a
// transaction, when its calldata is recognized.
type decodedIntent struct {
	tokenIn       common.Address
	tokenOut      common.Address
	amountIn      *big.Int
	amountOutMin  *big.Int
	poolAddress   common.Address
	slippageBps   int
}

// FunctionSelector returns the first four bytes of the calldata, or the
// zero selector if the data is shorter than that.
func (t *Transaction) FunctionSelector() [4]byte {
	var sel [4]byte
	if len(t.Data) >= 4 {
		copy(sel[:], t.Data[:4])
	}
	return sel
}

// IsDEX reports whether the transaction's calldata decodes to a
// recognized DEX swap intent.
func (t *Transaction) IsDEX() bool {
	return t.intent() != nil
}

// SwapIntent returns the decoded swap parameters and whether decoding
// succeeded.
func (t *Transaction) SwapIntent() (tokenIn, tokenOut, poolAddress common.Address, amountIn, amountOutMin *big.Int, slippageBps int, ok bool) {
	d := t.intent()
	if d == nil {
		return common.Address{}, common.Address{}, common.Address{}, nil, nil, 0, false
	}
	return d.tokenIn, d.tokenOut, d.poolAddress, d.amountIn, d.amountOutMin, d.slippageBps, true
}

// SetSwapIntent allows an upstream decoder (outside core scope) to
// attach the decoded intent directly, bypassing heuristic decode.
func (t *Transaction) SetSwapIntent(tokenIn, tokenOut, poolAddress common.Address, amountIn, amountOutMin *big.Int, slippageBps int) {
	t.decoded = &decodedIntent{
		tokenIn:      tokenIn,
		tokenOut:     tokenOut,
		poolAddress:  poolAddress,
		amountIn:     amountIn,
		amountOutMin: amountOutMin,
		slippageBps:  slippageBps,
	}
	t.decodeTry = true
}

// intent runs the (heuristic, best-effort) decode exactly once and
// caches the result. A caller that already knows the swap parameters
// (e.g. from a richer trace-level source) can skip this by calling
// SetSwapIntent first; otherwise the recognized router selectors below
// are decoded from the raw calldata.
func (t *Transaction) intent() *decodedIntent {
	if t.decodeTry {
		return t.decoded
	}
	t.decodeTry = true
	t.decoded = t.decodeSwap()
	return t.decoded
}

const wordSize = 32

// swapShape locates a Uniswap-V2-style router swap call's amount and
// path arguments within its ABI-encoded argument words (each word is
// 32 bytes, indexed immediately after the 4-byte selector).
type swapShape struct {
	// ethIn marks a payable call whose input amount is the
	// transaction's value rather than a calldata word.
	ethIn bool
	// amountInWord indexes the input-amount word when not ethIn; -1
	// otherwise.
	amountInWord int
	// amountOutMinWord indexes the word holding amountOutMin for an
	// exact-in call, or the exact amountOut target for an exact-out
	// call (exactOut true) — either way, the bound this core treats
	// as the swap's minimum acceptable output.
	amountOutMinWord int
	// pathOffsetWord indexes the word holding the dynamic address[]
	// path argument's byte offset.
	pathOffsetWord int
	exactOut       bool
}

// swapSelectors are the router entrypoints this core recognizes,
// grounded on the same four-byte selector-table pattern as
// internal/detection/liquidation.go and internal/detection/jit.go.
var swapSelectors = map[[4]byte]swapShape{
	{0x38, 0xed, 0x17, 0x39}: {amountInWord: 0, amountOutMinWord: 1, pathOffsetWord: 2},                  // swapExactTokensForTokens
	{0x88, 0x03, 0xdb, 0xee}: {amountInWord: 1, amountOutMinWord: 0, pathOffsetWord: 2, exactOut: true},  // swapTokensForExactTokens
	{0x7f, 0xf3, 0x6a, 0xb5}: {ethIn: true, amountInWord: -1, amountOutMinWord: 0, pathOffsetWord: 1},    // swapExactETHForTokens
	{0x4a, 0x25, 0xd9, 0x4a}: {amountInWord: 1, amountOutMinWord: 0, pathOffsetWord: 2, exactOut: true},  // swapTokensForExactETH
	{0x18, 0xcb, 0xaf, 0xe5}: {amountInWord: 0, amountOutMinWord: 1, pathOffsetWord: 2},                  // swapExactTokensForETH
	{0xfb, 0x3b, 0xdb, 0x41}: {ethIn: true, amountInWord: -1, amountOutMinWord: 0, pathOffsetWord: 1, exactOut: true}, // swapETHForExactTokens
}

// decodeSwap heuristically decodes t.Data against the recognized
// router selectors. It returns nil for anything it does not recognize
// or cannot parse, per the "when decodable" scope of this core's
// calldata decoding.
func (t *Transaction) decodeSwap() *decodedIntent {
	shape, ok := swapSelectors[t.FunctionSelector()]
	if !ok || len(t.Data) < 4 {
		return nil
	}
	args := t.Data[4:]

	path, ok := decodeAddressPath(args, shape.pathOffsetWord)
	if !ok || len(path) < 2 {
		return nil
	}

	amountIn := t.Value
	if !shape.ethIn {
		amountIn = wordToUint(args, shape.amountInWord)
	}
	amountOutMin := wordToUint(args, shape.amountOutMinWord)
	if amountIn == nil {
		amountIn = big.NewInt(0)
	}
	if amountOutMin == nil {
		amountOutMin = big.NewInt(0)
	}

	return &decodedIntent{
		tokenIn:      path[0],
		tokenOut:     path[len(path)-1],
		amountIn:     amountIn,
		amountOutMin: amountOutMin,
		poolAddress:  t.To,
		slippageBps:  slippageBpsOf(amountIn, amountOutMin),
	}
}

// slippageBpsOf derives a heuristic slippage allowance in basis points
// from the call's amount bound versus its amount target. For an
// exact-out call this compares amountInMax against the exact amountOut
// rather than true in/out units of the same token, which is an
// approximation consistent with this decoder's best-effort scope.
func slippageBpsOf(amountIn, amountOutMin *big.Int) int {
	if amountIn.Sign() <= 0 {
		return 0
	}
	ratio := new(big.Int).Div(new(big.Int).Mul(amountOutMin, big.NewInt(10_000)), amountIn)
	bps := 10_000 - ratio.Int64()
	switch {
	case bps < 0:
		return 0
	case bps > 10_000:
		return 10_000
	default:
		return int(bps)
	}
}

// wordToUint reads the 32-byte word at wordIdx (relative to the start
// of args, i.e. after the selector) as an unsigned integer, or nil if
// wordIdx is negative or out of range.
func wordToUint(args []byte, wordIdx int) *big.Int {
	if wordIdx < 0 {
		return nil
	}
	start := wordIdx * wordSize
	if start+wordSize > len(args) {
		return nil
	}
	return new(big.Int).SetBytes(args[start : start+wordSize])
}

// decodeAddressPath reads the dynamic address[] argument whose ABI
// offset is stored at word offsetWordIdx, per the standard
// offset-then-length-then-elements dynamic-array encoding.
func decodeAddressPath(args []byte, offsetWordIdx int) ([]common.Address, bool) {
	offsetWord := wordToUint(args, offsetWordIdx)
	if offsetWord == nil || !offsetWord.IsInt64() {
		return nil, false
	}
	offset := offsetWord.Int64()
	if offset < 0 || offset+wordSize > int64(len(args)) {
		return nil, false
	}

	length := new(big.Int).SetBytes(args[offset : offset+wordSize])
	if !length.IsInt64() {
		return nil, false
	}
	n := length.Int64()
	if n <= 0 || n > 32 { // a router path this long is not a real swap call
		return nil, false
	}

	base := offset + wordSize
	out := make([]common.Address, 0, n)
	for i := int64(0); i < n; i++ {
		start := base + i*wordSize
		if start+wordSize > int64(len(args)) {
			return nil, false
		}
		var addr common.Address
		copy(addr[:], args[start+wordSize-20:start+wordSize])
		out = append(out, addr)
	}
	return out, true
}

// ValueUSD converts Value to a USD float given a token price; callers
// supply the price since the transaction itself carries no oracle
// reference.
func (t *Transaction) ValueUSD(ethPriceUSD float64) float64 {
	if t.Value == nil {
		return 0
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(t.Value), big.NewFloat(1e18))
	usd := new(big.Float).Mul(eth, big.NewFloat(ethPriceUSD))
	f, _ := usd.Float64()
	return f
}
