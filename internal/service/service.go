// Package service orchestrates the wallet session lifecycle and wires the
// per-session components (poller, estimator, submitter) together.
package service

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/pvzzle/miniwallet/internal/balance"
	"github.com/pvzzle/miniwallet/internal/bus"
	"github.com/pvzzle/miniwallet/internal/contacts"
	"github.com/pvzzle/miniwallet/internal/gas"
	"github.com/pvzzle/miniwallet/internal/history"
	"github.com/pvzzle/miniwallet/internal/send"
	"github.com/pvzzle/miniwallet/internal/wallet"

	"github.com/rs/zerolog"
)

type Config struct {
	PollInterval time.Duration // balance refresh, default 15s
	GasDebounce  time.Duration // gas estimate debounce, default 300ms
}

// Service owns the single active session. It is the only writer of the
// session slot; components receive the account at session start and are
// torn down and rebuilt when the session changes.
type Service struct {
	keys    wallet.KeyManager
	store   *wallet.SessionStore
	client  wallet.ChainClient
	history *history.Cache
	book    *contacts.Book
	cfg     Config
	log     zerolog.Logger

	updates chan bus.BalanceUpdate
	notify  chan bus.Event

	mu        sync.Mutex
	session   *wallet.Session
	poller    *balance.Poller
	estimator *gas.Estimator
	submitter *send.Submitter
	events    chan bus.Event
	cancelBg  context.CancelFunc
}

func New(client wallet.ChainClient, hist *history.Cache, book *contacts.Book, cfg Config, log zerolog.Logger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.GasDebounce <= 0 {
		cfg.GasDebounce = 300 * time.Millisecond
	}
	return &Service{
		store:   wallet.NewSessionStore(),
		client:  client,
		history: hist,
		book:    book,
		cfg:     cfg,
		log:     log,
		updates: make(chan bus.BalanceUpdate, 16),
		notify:  make(chan bus.Event, 16),
	}
}

// BalanceUpdates delivers every balance fetch result, including failures.
func (s *Service) BalanceUpdates() <-chan bus.BalanceUpdate { return s.updates }

// Events delivers send-attempt lifecycle events for the UI layer.
func (s *Service) Events() <-chan bus.Event { return s.notify }

// CreateWallet generates a fresh key, returns the account plus the raw key
// (shown once to the user), and starts a session for it.
func (s *Service) CreateWallet() (wallet.Account, string, error) {
	acct, raw, err := s.keys.Generate()
	if err != nil {
		return wallet.Account{}, "", err
	}
	s.activate(acct, raw)
	return acct, raw, nil
}

// ImportWallet starts a session for an existing raw private key.
func (s *Service) ImportWallet(raw string) (wallet.Account, error) {
	acct, err := s.keys.ImportFromKey(raw)
	if err != nil {
		return wallet.Account{}, err
	}
	s.activate(acct, raw)
	return acct, nil
}

// RestoreSession revives the session from stored key material, if any.
// A corrupt stored key clears the store rather than failing the caller.
func (s *Service) RestoreSession() (wallet.Account, bool) {
	raw, ok := s.store.Load()
	if !ok {
		return wallet.Account{}, false
	}
	acct, err := s.keys.ImportFromKey(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("stored session key unusable, clearing")
		s.store.Clear()
		return wallet.Account{}, false
	}
	s.activate(acct, raw)
	return acct, true
}

// Logout clears the stored key and tears the session down. Idempotent.
func (s *Service) Logout() {
	s.store.Clear()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	s.session = nil
}

// Session returns the active session, or nil.
func (s *Service) Session() *wallet.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Balance fetches the current balance directly.
func (s *Service) Balance(ctx context.Context) (*big.Int, error) {
	sess := s.Session()
	if sess == nil {
		return nil, wallet.ErrNoSession
	}
	return s.client.GetBalance(ctx, sess.Account.Address)
}

// RefreshBalance forces an out-of-band poller fetch.
func (s *Service) RefreshBalance() {
	s.mu.Lock()
	p := s.poller
	s.mu.Unlock()
	if p != nil {
		p.Refresh()
	}
}

// History returns the filtered transaction history for the session account.
func (s *Service) History(ctx context.Context, filter history.Filter) (history.Result, error) {
	sess := s.Session()
	if sess == nil {
		return history.Result{}, wallet.ErrNoSession
	}
	return s.history.Get(ctx, sess.Account.Address.Hex(), filter)
}

// EstimateGas schedules a debounced fee preview for the pair.
func (s *Service) EstimateGas(recipient string, amountWei *big.Int) {
	s.mu.Lock()
	e := s.estimator
	s.mu.Unlock()
	if e != nil {
		e.Request(recipient, amountWei)
	}
}

// GasEstimate returns the last published fee preview.
func (s *Service) GasEstimate() gas.Estimate {
	s.mu.Lock()
	e := s.estimator
	s.mu.Unlock()
	if e == nil {
		return gas.Estimate{}
	}
	return e.Current()
}

// Send executes a transfer using the last published gas estimate and
// blocks until the attempt reaches a terminal state. The pending fee is
// consumed: a second send needs a fresh estimate.
func (s *Service) Send(ctx context.Context, recipient string, amountWei *big.Int) (send.Attempt, error) {
	s.mu.Lock()
	sub := s.submitter
	est := s.estimator
	s.mu.Unlock()
	if sub == nil {
		return send.Attempt{}, wallet.ErrNoSession
	}

	var fee *big.Int
	if est != nil {
		if cur := est.Current(); cur.Available() {
			fee = cur.GasCostWei
		}
		est.Clear()
	}

	return sub.Submit(ctx, recipient, amountWei, fee)
}

// SendStatus reports the current (or most recent) send attempt.
func (s *Service) SendStatus() (send.Attempt, bool) {
	s.mu.Lock()
	sub := s.submitter
	s.mu.Unlock()
	if sub == nil {
		return send.Attempt{}, false
	}
	return sub.Status(), true
}

// Contacts exposes the address book.
func (s *Service) Contacts() *contacts.Book { return s.book }

// activate replaces the active session: stores the key, tears down the
// previous session's tasks and starts fresh ones for the new account.
func (s *Service) activate(acct wallet.Account, raw string) {
	s.store.Save(raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()

	s.session = &wallet.Session{Account: acct, Client: s.client}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelBg = cancel

	s.events = make(chan bus.Event, 16)
	s.submitter = send.NewSubmitter(s.client, acct, s.events, s.log)
	s.estimator = gas.New(s.client, acct, s.cfg.GasDebounce, nil, s.log)
	s.poller = balance.NewPoller(s.client, acct.Address, s.cfg.PollInterval, s.updates, s.log)
	s.poller.Start(ctx)

	go s.eventLoop(ctx, s.events, acct.Address.Hex())

	s.log.Info().Str("address", acct.Address.Hex()).Msg("session started")
}

// eventLoop routes submitter completions into forced refreshes and
// forwards every event to the notification channel.
func (s *Service) eventLoop(ctx context.Context, events <-chan bus.Event, address string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Terminal() {
				s.RefreshBalance()
				s.history.Invalidate(address)
			}
			select {
			case s.notify <- ev:
			default:
			}
		}
	}
}

func (s *Service) teardownLocked() {
	if s.cancelBg != nil {
		s.cancelBg()
		s.cancelBg = nil
	}
	if s.estimator != nil {
		s.estimator.Stop()
	}
	s.poller = nil
	s.estimator = nil
	s.submitter = nil
}
