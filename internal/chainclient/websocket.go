package chainclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/hydraflowx/mevcore/internal/tx"
	"go.uber.org/zap"
)

// WSConfig tunes the WebSocket ChainNode.
type WSConfig struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// DefaultWSConfig mirrors the teacher's websocket client defaults.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 1024 * 1024,
	}
}

// pendingTxWireFormat is the subset of a node's pending-transaction
// subscription payload this core understands.
type pendingTxWireFormat struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Gas         uint64 `json:"gas"`
	GasPrice    string `json:"gasPrice"`
	Input       string `json:"input"`
	BlockNumber uint64 `json:"blockNumber"`
}

// WSChainNode implements ChainNode over a single WebSocket connection
// to a node's pending-transaction subscription endpoint.
type WSChainNode struct {
	cfg    WSConfig
	logger *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	url  string
}

// NewWSChainNode returns a ChainNode that dials url on first use.
func NewWSChainNode(url string, cfg WSConfig, logger *zap.Logger) *WSChainNode {
	return &WSChainNode{url: url, cfg: cfg, logger: logger}
}

func (c *WSChainNode) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.WriteWait}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("chainclient: dial %s: %w", c.url, err)
	}
	conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn = conn
	return conn, nil
}

// FetchPendingTxs reads one frame of pending transactions from the
// subscription socket, best-effort decoding each; malformed entries
// are skipped rather than failing the whole batch.
func (c *WSChainNode) FetchPendingTxs(ctx context.Context) ([]tx.Transaction, error) {
	conn, err := c.ensureConn(ctx)
	if err != nil {
		return nil, err
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		return nil, fmt.Errorf("chainclient: read: %w", err)
	}

	var wire []pendingTxWireFormat
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("chainclient: decode frame: %w", err)
	}

	out := make([]tx.Transaction, 0, len(wire))
	for _, w := range wire {
		t, ok := decodeWireTx(w)
		if !ok {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// SubmitRaw sends a raw signed transaction over the socket and waits
// for the node's echoed hash.
func (c *WSChainNode) SubmitRaw(ctx context.Context, rawTx []byte) (common.Hash, error) {
	conn, err := c.ensureConn(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	c.mu.Lock()
	writeErr := conn.WriteMessage(websocket.BinaryMessage, rawTx)
	c.mu.Unlock()
	if writeErr != nil {
		return common.Hash{}, fmt.Errorf("chainclient: submit: %w", writeErr)
	}

	_, resp, err := conn.ReadMessage()
	if err != nil {
		return common.Hash{}, fmt.Errorf("chainclient: submit response: %w", err)
	}
	return common.HexToHash(string(resp)), nil
}

func decodeWireTx(w pendingTxWireFormat) (tx.Transaction, bool) {
	if !common.IsHexAddress(w.To) {
		return tx.Transaction{}, false
	}
	value, ok := new(big.Int).SetString(trimHex(w.Value), 16)
	if !ok {
		value = big.NewInt(0)
	}
	gasPrice, ok := new(big.Int).SetString(trimHex(w.GasPrice), 16)
	if !ok {
		gasPrice = big.NewInt(0)
	}

	return tx.Transaction{
		Hash:        common.HexToHash(w.Hash),
		From:        common.HexToAddress(w.From),
		To:          common.HexToAddress(w.To),
		Value:       value,
		GasLimit:    w.Gas,
		GasPriceWei: gasPrice,
		Data:        common.FromHex(w.Input),
		BlockNumber: w.BlockNumber,
	}, true
}

func trimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
