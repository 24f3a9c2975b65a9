// Package bus carries the channel payloads exchanged between the wallet
// components and the orchestrating service: send-attempt lifecycle events
// and balance updates.
package bus

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type EventKind string

const (
	EventSubmitted EventKind = "submitted"
	EventConfirmed EventKind = "confirmed"
	EventFailed    EventKind = "failed"
)

// Event is published by the transaction submitter. Terminal kinds
// (confirmed, failed) trigger out-of-band balance and history refreshes.
type Event struct {
	Kind      EventKind
	AttemptID string
	TxHash    common.Hash
	Err       error
}

func (e Event) Terminal() bool {
	return e.Kind == EventConfirmed || e.Kind == EventFailed
}

// BalanceUpdate is published by the balance poller after every fetch,
// including failed ones (Err set, Wei nil).
type BalanceUpdate struct {
	Address common.Address
	Wei     *big.Int
	At      time.Time
	Err     error
}
