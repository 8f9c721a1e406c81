// Package chainclient defines two of the external collaborator
// interfaces spec.md §6 requires this core to consume (ChainNode,
// PriceOracle; the relay interface is internal/relay.Adapter) and ships
// one concrete ChainNode: a websocket-fed pending-transaction poller.
package chainclient

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// ChainNode pulls pending transactions and submits signed ones to the
// public mempool.
type ChainNode interface {
	FetchPendingTxs(ctx context.Context) ([]tx.Transaction, error)
	SubmitRaw(ctx context.Context, rawTx []byte) (common.Hash, error)
}

// PriceOracle is an optional external price source. A nil USDPrice
// return (ok=false) means the core falls back to its own Price Store.
type PriceOracle interface {
	Spot(ctx context.Context, token common.Address) (usdPrice float64, ok bool)
}
