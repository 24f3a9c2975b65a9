// Package gas computes fee previews for pending sends.
package gas

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/pvzzle/miniwallet/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Estimate is the fee preview for one recipient/amount pair. GasCostWei is
// nil while no usable estimate exists (invalid input or RPC failure).
type Estimate struct {
	Recipient  string
	AmountWei  *big.Int
	GasCostWei *big.Int
}

func (e Estimate) Available() bool { return e.GasCostWei != nil }

// Estimator debounces rapid input changes so only the most recent
// recipient/amount pair triggers a network call, and tags every request so
// a result that no longer matches the current input is discarded.
type Estimator struct {
	client  wallet.ChainClient
	account wallet.Account
	delay   time.Duration
	log     zerolog.Logger

	onUpdate func(Estimate)

	mu      sync.Mutex
	seq     uint64
	timer   *time.Timer
	current Estimate
}

// New builds an estimator bound to one account. onUpdate, if non-nil, is
// called with every published estimate (including cleared ones).
func New(client wallet.ChainClient, account wallet.Account, delay time.Duration, onUpdate func(Estimate), log zerolog.Logger) *Estimator {
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	return &Estimator{
		client:   client,
		account:  account,
		delay:    delay,
		onUpdate: onUpdate,
		log:      log,
	}
}

// Request schedules an estimate for the given input, trailing-edge
// debounced. The previously published fee is cleared immediately so a
// stale figure can never back a send decision.
func (e *Estimator) Request(recipient string, amountWei *big.Int) {
	e.mu.Lock()
	e.seq++
	seq := e.seq
	e.current = Estimate{Recipient: recipient, AmountWei: amountWei}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.delay, func() {
		est, err := e.Estimate(context.Background(), recipient, amountWei)
		if err != nil {
			e.log.Warn().Err(err).Msg("gas estimate unavailable")
		}
		e.publish(seq, est)
	})
	e.mu.Unlock()

	if e.onUpdate != nil {
		e.onUpdate(Estimate{Recipient: recipient, AmountWei: amountWei})
	}
}

// Estimate computes gas units × gas price for the pair. Invalid input
// short-circuits without a network call; a ChainClient failure yields an
// unavailable estimate and a non-fatal error.
func (e *Estimator) Estimate(ctx context.Context, recipient string, amountWei *big.Int) (Estimate, error) {
	est := Estimate{Recipient: recipient, AmountWei: amountWei}

	if !wallet.IsAddress(recipient) || amountWei == nil || amountWei.Sign() <= 0 {
		return est, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	units, err := e.client.EstimateGas(cctx, e.account.Address, common.HexToAddress(recipient), amountWei)
	if err != nil {
		return est, err
	}
	price, err := e.client.GetGasPrice(cctx)
	if err != nil {
		return est, err
	}

	est.GasCostWei = new(big.Int).Mul(new(big.Int).SetUint64(units), price)
	return est, nil
}

// Current returns the last published estimate.
func (e *Estimator) Current() Estimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Clear drops the published fee; the submitter calls this when a send
// consumes it.
func (e *Estimator) Clear() {
	e.mu.Lock()
	e.seq++
	e.current = Estimate{}
	e.mu.Unlock()
}

// Stop cancels any pending debounced request. Called on session change.
func (e *Estimator) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	if e.timer != nil {
		e.timer.Stop()
	}
}

func (e *Estimator) publish(seq uint64, est Estimate) {
	e.mu.Lock()
	if e.seq != seq {
		// input changed while the request was in flight
		e.mu.Unlock()
		return
	}
	e.current = est
	e.mu.Unlock()

	if e.onUpdate != nil {
		e.onUpdate(est)
	}
}
