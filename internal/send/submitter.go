// Package send drives a native-currency transfer from validation through
// confirmation.
package send

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/pvzzle/miniwallet/internal/bus"
	"github.com/pvzzle/miniwallet/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrBusy               = errors.New("a send attempt is already in flight")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrConfirmationFailed = errors.New("transaction reverted on chain")
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateAwaitingConfirmation
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt is one send attempt's observable state.
type Attempt struct {
	ID     string
	State  State
	TxHash common.Hash
	Err    error
}

// Submitter executes transfers for one account. Only a single attempt may
// be in flight; a concurrent Submit is rejected with ErrBusy and leaves
// the running attempt untouched.
type Submitter struct {
	client wallet.ChainClient
	acct   wallet.Account
	events chan<- bus.Event
	log    zerolog.Logger

	mu       sync.Mutex
	inFlight bool
	last     Attempt
}

func NewSubmitter(client wallet.ChainClient, acct wallet.Account, events chan<- bus.Event, log zerolog.Logger) *Submitter {
	return &Submitter{
		client: client,
		acct:   acct,
		events: events,
		log:    log,
		last:   Attempt{State: StateIdle},
	}
}

// Status returns the current (or most recent) attempt.
func (s *Submitter) Status() Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Submit validates, broadcasts and tracks a transfer to a terminal state.
// It blocks until Confirmed or Failed; callers that need concurrency run
// it in a goroutine and watch the event channel. Failures end the attempt
// with the underlying error; there is no automatic retry.
func (s *Submitter) Submit(ctx context.Context, recipient string, amountWei, gasCostWei *big.Int) (Attempt, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return Attempt{}, ErrBusy
	}
	s.inFlight = true
	att := Attempt{ID: uuid.NewString(), State: StateValidating}
	s.last = att
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	if amountWei == nil || amountWei.Sign() <= 0 {
		return s.fail(att, wallet.ErrInvalidAmount)
	}
	if !wallet.IsAddress(recipient) {
		return s.fail(att, wallet.ErrInvalidAddress)
	}

	balance, err := s.client.GetBalance(ctx, s.acct.Address)
	if err != nil {
		return s.fail(att, fmt.Errorf("fetch balance: %w", err))
	}

	total := new(big.Int).Set(amountWei)
	if gasCostWei != nil {
		total.Add(total, gasCostWei)
	}
	if balance.Cmp(total) < 0 {
		return s.fail(att, ErrInsufficientFunds)
	}

	att.State = StateSubmitting
	s.setLast(att)

	hash, err := s.client.SendTransaction(ctx, s.acct, common.HexToAddress(recipient), amountWei)
	if err != nil {
		return s.fail(att, err)
	}

	att.TxHash = hash
	att.State = StateAwaitingConfirmation
	s.setLast(att)
	s.emit(bus.Event{Kind: bus.EventSubmitted, AttemptID: att.ID, TxHash: hash})
	s.log.Info().Str("tx", hash.Hex()).Msg("transaction submitted")

	status, err := s.client.WaitForReceipt(ctx, hash)
	if err != nil {
		return s.fail(att, err)
	}
	if status != wallet.ReceiptSuccess {
		return s.fail(att, ErrConfirmationFailed)
	}

	att.State = StateConfirmed
	s.setLast(att)
	s.emit(bus.Event{Kind: bus.EventConfirmed, AttemptID: att.ID, TxHash: hash})
	s.log.Info().Str("tx", hash.Hex()).Msg("transaction confirmed")
	return att, nil
}

func (s *Submitter) fail(att Attempt, err error) (Attempt, error) {
	att.State = StateFailed
	att.Err = err
	s.setLast(att)
	s.emit(bus.Event{Kind: bus.EventFailed, AttemptID: att.ID, TxHash: att.TxHash, Err: err})
	s.log.Warn().Err(err).Str("attempt", att.ID).Msg("send attempt failed")
	return att, err
}

func (s *Submitter) setLast(att Attempt) {
	s.mu.Lock()
	s.last = att
	s.mu.Unlock()
}

func (s *Submitter) emit(ev bus.Event) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.log.Warn().Str("kind", string(ev.Kind)).Msg("event channel full, dropping")
	}
}
