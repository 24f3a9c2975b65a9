// Package chain implements wallet.ChainClient on top of go-ethereum's
// ethclient.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/pvzzle/miniwallet/internal/wallet"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

const receiptPollInterval = 2 * time.Second

type Client struct {
	rpc     *ethclient.Client
	chainID *big.Int

	confirmTimeout time.Duration
}

// Dial connects to the node and resolves its chain ID. confirmTimeout
// bounds WaitForReceipt so a dropped node connection cannot leave a send
// attempt waiting forever.
func Dial(ctx context.Context, rpcURL string, confirmTimeout time.Duration) (*Client, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial eth rpc: %w", err)
	}

	chainID, err := rpc.NetworkID(ctx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("network id: %w", err)
	}

	if confirmTimeout <= 0 {
		confirmTimeout = 2 * time.Minute
	}

	return &Client{rpc: rpc, chainID: chainID, confirmTimeout: confirmTimeout}, nil
}

func (c *Client) Close() { c.rpc.Close() }

func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *Client) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.rpc.BalanceAt(ctx, addr, nil)
}

func (c *Client) GetGasPrice(ctx context.Context) (*big.Int, error) {
	return c.rpc.SuggestGasPrice(ctx)
}

func (c *Client) EstimateGas(ctx context.Context, from, to common.Address, valueWei *big.Int) (uint64, error) {
	return c.rpc.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: valueWei,
	})
}

func (c *Client) SendTransaction(ctx context.Context, acct wallet.Account, to common.Address, valueWei *big.Int) (common.Hash, error) {
	nonce, err := c.rpc.PendingNonceAt(ctx, acct.Address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas price: %w", err)
	}

	gasLimit, err := c.rpc.EstimateGas(ctx, ethereum.CallMsg{
		From:  acct.Address,
		To:    &to,
		Value: valueWei,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    valueWei,
		Gas:      gasLimit,
		GasPrice: gasPrice,
	})

	signer := types.LatestSignerForChainID(c.chainID)
	signed, err := types.SignTx(unsigned, signer, acct.Key())
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}

	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("broadcast tx: %w", err)
	}

	return signed.Hash(), nil
}

// WaitForReceipt polls for the transaction receipt until the confirm
// timeout expires.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (wallet.ReceiptStatus, error) {
	wctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	t := time.NewTicker(receiptPollInterval)
	defer t.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(wctx, hash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return wallet.ReceiptSuccess, nil
			}
			return wallet.ReceiptFailed, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return wallet.ReceiptFailed, fmt.Errorf("receipt: %w", err)
		}

		select {
		case <-wctx.Done():
			return wallet.ReceiptFailed, fmt.Errorf("wait receipt %s: %w", hash.Hex(), wctx.Err())
		case <-t.C:
		}
	}
}
