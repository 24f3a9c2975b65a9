package send

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/pvzzle/miniwallet/internal/bus"
	"github.com/pvzzle/miniwallet/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

var (
	oneEth     = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	recipient  = "0x" + strings.Repeat("cd", 20)
	someTxHash = common.HexToHash("0x" + strings.Repeat("ef", 32))
)

func eth(milli int64) *big.Int {
	out := new(big.Int).Mul(oneEth, big.NewInt(milli))
	return out.Div(out, big.NewInt(1000))
}

type mockClient struct {
	balance *big.Int

	sendErr  error
	sendHash common.Hash

	receiptStatus wallet.ReceiptStatus
	receiptErr    error
	receiptGate   chan struct{} // if set, WaitForReceipt blocks until closed
}

func (m *mockClient) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return new(big.Int).Set(m.balance), nil
}

func (m *mockClient) GetGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (m *mockClient) EstimateGas(ctx context.Context, from, to common.Address, valueWei *big.Int) (uint64, error) {
	return 21000, nil
}

func (m *mockClient) SendTransaction(ctx context.Context, acct wallet.Account, to common.Address, valueWei *big.Int) (common.Hash, error) {
	if m.sendErr != nil {
		return common.Hash{}, m.sendErr
	}
	return m.sendHash, nil
}

func (m *mockClient) WaitForReceipt(ctx context.Context, hash common.Hash) (wallet.ReceiptStatus, error) {
	if m.receiptGate != nil {
		select {
		case <-m.receiptGate:
		case <-ctx.Done():
			return wallet.ReceiptFailed, ctx.Err()
		}
	}
	return m.receiptStatus, m.receiptErr
}

func testAccount(t *testing.T) wallet.Account {
	t.Helper()
	acct, _, err := wallet.KeyManager{}.Generate()
	if err != nil {
		t.Fatalf("generate account: %v", err)
	}
	return acct
}

func TestSubmit_Confirmed(t *testing.T) {
	client := &mockClient{
		balance:       oneEth,
		sendHash:      someTxHash,
		receiptStatus: wallet.ReceiptSuccess,
	}
	events := make(chan bus.Event, 8)
	s := NewSubmitter(client, testAccount(t), events, zerolog.Nop())

	// balance 1.0, amount 0.5, gas 0.001 -> passes
	att, err := s.Submit(context.Background(), recipient, eth(500), eth(1))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if att.State != StateConfirmed {
		t.Fatalf("expected confirmed, got %s", att.State)
	}
	if att.TxHash != someTxHash {
		t.Fatalf("expected tx hash %s, got %s", someTxHash.Hex(), att.TxHash.Hex())
	}

	ev := <-events
	if ev.Kind != bus.EventSubmitted {
		t.Fatalf("expected submitted event first, got %s", ev.Kind)
	}
	ev = <-events
	if ev.Kind != bus.EventConfirmed || !ev.Terminal() {
		t.Fatalf("expected terminal confirmed event, got %s", ev.Kind)
	}
}

func TestSubmit_InsufficientFunds(t *testing.T) {
	client := &mockClient{balance: oneEth}
	s := NewSubmitter(client, testAccount(t), nil, zerolog.Nop())

	// amount 1.0 with any positive gas cost -> fails
	att, err := s.Submit(context.Background(), recipient, eth(1000), big.NewInt(1))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if att.State != StateFailed {
		t.Fatalf("expected failed state, got %s", att.State)
	}
}

func TestSubmit_ValidationFailures(t *testing.T) {
	client := &mockClient{balance: oneEth}
	s := NewSubmitter(client, testAccount(t), nil, zerolog.Nop())

	if _, err := s.Submit(context.Background(), "bogus", eth(1), nil); !errors.Is(err, wallet.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if _, err := s.Submit(context.Background(), recipient, big.NewInt(0), nil); !errors.Is(err, wallet.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestSubmit_BusyRejectsSecondAttempt(t *testing.T) {
	gate := make(chan struct{})
	client := &mockClient{
		balance:       oneEth,
		sendHash:      someTxHash,
		receiptStatus: wallet.ReceiptSuccess,
		receiptGate:   gate,
	}
	s := NewSubmitter(client, testAccount(t), nil, zerolog.Nop())

	done := make(chan Attempt, 1)
	go func() {
		att, _ := s.Submit(context.Background(), recipient, eth(100), nil)
		done <- att
	}()

	// wait until the first attempt is awaiting confirmation
	deadline := time.Now().Add(2 * time.Second)
	for s.Status().State != StateAwaitingConfirmation {
		if time.Now().After(deadline) {
			t.Fatalf("first attempt never reached awaiting confirmation")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.Submit(context.Background(), recipient, eth(100), nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if st := s.Status(); st.State != StateAwaitingConfirmation || st.TxHash != someTxHash {
		t.Fatalf("busy rejection disturbed in-flight attempt: %+v", st)
	}

	close(gate)
	att := <-done
	if att.State != StateConfirmed {
		t.Fatalf("expected first attempt confirmed, got %s", att.State)
	}
}

func TestSubmit_BroadcastFailureSurfacedVerbatim(t *testing.T) {
	broken := errors.New("nonce too low")
	client := &mockClient{balance: oneEth, sendErr: broken}
	s := NewSubmitter(client, testAccount(t), nil, zerolog.Nop())

	_, err := s.Submit(context.Background(), recipient, eth(100), nil)
	if !errors.Is(err, broken) {
		t.Fatalf("expected underlying broadcast error, got %v", err)
	}
}

func TestSubmit_ReceiptRevert(t *testing.T) {
	client := &mockClient{
		balance:       oneEth,
		sendHash:      someTxHash,
		receiptStatus: wallet.ReceiptFailed,
	}
	events := make(chan bus.Event, 8)
	s := NewSubmitter(client, testAccount(t), events, zerolog.Nop())

	_, err := s.Submit(context.Background(), recipient, eth(100), nil)
	if !errors.Is(err, ErrConfirmationFailed) {
		t.Fatalf("expected ErrConfirmationFailed, got %v", err)
	}

	<-events // submitted
	ev := <-events
	if ev.Kind != bus.EventFailed {
		t.Fatalf("expected failed event, got %s", ev.Kind)
	}
}

func TestSubmit_ReceiptTimeout(t *testing.T) {
	gate := make(chan struct{}) // never closed; wait relies on ctx
	client := &mockClient{
		balance:     oneEth,
		sendHash:    someTxHash,
		receiptGate: gate,
	}
	s := NewSubmitter(client, testAccount(t), nil, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	att, err := s.Submit(ctx, recipient, eth(100), nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if att.State != StateFailed {
		t.Fatalf("expected failed state after timeout, got %s", att.State)
	}
}
