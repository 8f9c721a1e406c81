package mempool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/tx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmitAssignsPosition(t *testing.T) {
	s := New(10)
	s.Admit(tx.Transaction{Hash: common.HexToHash("0x1")})
	s.Admit(tx.Transaction{Hash: common.HexToHash("0x2")})

	txs := s.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, 0, txs[0].MempoolPosition)
	assert.Equal(t, 1, txs[1].MempoolPosition)
}

func TestAdmitEvictsOldestAtCapacity(t *testing.T) {
	s := New(2)
	s.Admit(tx.Transaction{Hash: common.HexToHash("0x1")})
	s.Admit(tx.Transaction{Hash: common.HexToHash("0x2")})
	s.Admit(tx.Transaction{Hash: common.HexToHash("0x3")})

	txs := s.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, common.HexToHash("0x2"), txs[0].Hash)
	assert.Equal(t, common.HexToHash("0x3"), txs[1].Hash)

	_, ok := s.ByHash(common.HexToHash("0x1"))
	assert.False(t, ok)
}

func TestByHashFound(t *testing.T) {
	s := New(10)
	s.Admit(tx.Transaction{Hash: common.HexToHash("0xab")})
	got, ok := s.ByHash(common.HexToHash("0xab"))
	require.True(t, ok)
	assert.Equal(t, common.HexToHash("0xab"), got.Hash)
}

func TestResetClears(t *testing.T) {
	s := New(10)
	s.Admit(tx.Transaction{Hash: common.HexToHash("0x1")})
	s.Reset()
	assert.Equal(t, 0, s.Len())
}
