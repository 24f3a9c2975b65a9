// Package balance keeps the session account's balance fresh on a fixed
// interval.
package balance

import (
	"context"
	"time"

	"github.com/pvzzle/miniwallet/internal/bus"
	"github.com/pvzzle/miniwallet/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Poller fetches the balance immediately on Start, then on every tick
// until its context is canceled. A fetch failure is reported on the update
// channel and the schedule continues; the next tick retries.
type Poller struct {
	client   wallet.ChainClient
	address  common.Address
	interval time.Duration
	updates  chan<- bus.BalanceUpdate
	log      zerolog.Logger

	refresh chan struct{}
	done    chan struct{}
}

func NewPoller(client wallet.ChainClient, address common.Address, interval time.Duration, updates chan<- bus.BalanceUpdate, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Poller{
		client:   client,
		address:  address,
		interval: interval,
		updates:  updates,
		log:      log,
		refresh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start runs the poll loop in its own goroutine.
func (p *Poller) Start(ctx context.Context) {
	go p.loop(ctx)
}

// Refresh forces an out-of-band fetch ahead of the next tick. Non-blocking;
// coalesces with an already pending refresh.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Done closes when the loop has exited.
func (p *Poller) Done() <-chan struct{} { return p.done }

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	p.fetch(ctx)

	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.fetch(ctx)
		case <-p.refresh:
			p.fetch(ctx)
		}
	}
}

func (p *Poller) fetch(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	wei, err := p.client.GetBalance(cctx, p.address)
	cancel()

	upd := bus.BalanceUpdate{Address: p.address, Wei: wei, At: time.Now(), Err: err}
	if err != nil {
		p.log.Warn().Err(err).Str("address", p.address.Hex()).Msg("balance fetch failed")
	}

	select {
	case p.updates <- upd:
	case <-ctx.Done():
	}
}
