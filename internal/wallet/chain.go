package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type ReceiptStatus int

const (
	ReceiptFailed ReceiptStatus = iota
	ReceiptSuccess
)

// ChainClient is the read/write RPC surface the wallet core needs from a
// node. internal/chain provides the ethclient-backed implementation; tests
// substitute fakes.
type ChainClient interface {
	GetBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	GetGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, from, to common.Address, valueWei *big.Int) (uint64, error)

	SendTransaction(ctx context.Context, acct Account, to common.Address, valueWei *big.Int) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (ReceiptStatus, error)
}
