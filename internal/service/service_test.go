package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/pvzzle/miniwallet/internal/contacts"
	"github.com/pvzzle/miniwallet/internal/history"
	"github.com/pvzzle/miniwallet/internal/send"
	"github.com/pvzzle/miniwallet/internal/storage"
	"github.com/pvzzle/miniwallet/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

type mockClient struct {
	balance *big.Int
}

func (m *mockClient) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return new(big.Int).Set(m.balance), nil
}
func (m *mockClient) GetGasPrice(ctx context.Context) (*big.Int, error) { return big.NewInt(2), nil }
func (m *mockClient) EstimateGas(ctx context.Context, from, to common.Address, valueWei *big.Int) (uint64, error) {
	return 21000, nil
}
func (m *mockClient) SendTransaction(ctx context.Context, acct wallet.Account, to common.Address, valueWei *big.Int) (common.Hash, error) {
	return common.HexToHash("0x" + strings.Repeat("01", 32)), nil
}
func (m *mockClient) WaitForReceipt(ctx context.Context, hash common.Hash) (wallet.ReceiptStatus, error) {
	return wallet.ReceiptSuccess, nil
}

type fakeSource struct {
	calls int
}

func (f *fakeSource) TxList(ctx context.Context, address string) ([]storage.TxRecord, error) {
	f.calls++
	return []storage.TxRecord{
		{Hash: "0x01", FromAddr: address, ToAddr: "0xbb", ValueWei: "1", Timestamp: time.Now()},
	}, nil
}

func newTestService(t *testing.T, client wallet.ChainClient) (*Service, *fakeSource) {
	t.Helper()

	src := &fakeSource{}
	hist := history.NewCache(src, nil, history.Config{}, zerolog.Nop())
	book, err := contacts.Load(context.Background(), nil)
	if err != nil {
		t.Fatalf("contacts: %v", err)
	}

	svc := New(client, hist, book, Config{
		PollInterval: time.Hour, // only the immediate fetch during tests
		GasDebounce:  5 * time.Millisecond,
	}, zerolog.Nop())
	t.Cleanup(svc.Logout)
	return svc, src
}

func TestSessionLifecycle(t *testing.T) {
	svc, _ := newTestService(t, &mockClient{balance: big.NewInt(10)})

	if svc.Session() != nil {
		t.Fatalf("expected no session initially")
	}
	if _, err := svc.Balance(context.Background()); !errors.Is(err, wallet.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	acct, raw, err := svc.CreateWallet()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(raw, "0x") {
		t.Fatalf("raw key not 0x-prefixed: %q", raw)
	}

	sess := svc.Session()
	if sess == nil || sess.Account.Address != acct.Address {
		t.Fatalf("session not established for created account")
	}

	bal, err := svc.Balance(context.Background())
	if err != nil || bal.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("balance: %v %v", bal, err)
	}

	// the poller's immediate fetch surfaces on the updates channel
	select {
	case upd := <-svc.BalanceUpdates():
		if upd.Err != nil || upd.Address != acct.Address {
			t.Fatalf("bad balance update: %+v", upd)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no balance update after session start")
	}

	svc.Logout()
	if svc.Session() != nil {
		t.Fatalf("session survived logout")
	}
	if _, ok := svc.RestoreSession(); ok {
		t.Fatalf("restore must fail after logout")
	}
}

func TestImportAndRestore(t *testing.T) {
	svc, _ := newTestService(t, &mockClient{balance: big.NewInt(1)})

	raw := "0x" + strings.Repeat("22", 32)
	acct, err := svc.ImportWallet(raw)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	// a restored session re-derives the same account
	restored, ok := svc.RestoreSession()
	if !ok || restored.Address != acct.Address {
		t.Fatalf("restore mismatch: ok=%v %s vs %s", ok, restored.Address.Hex(), acct.Address.Hex())
	}
}

func TestImport_InvalidKeyLeavesStateUnchanged(t *testing.T) {
	svc, _ := newTestService(t, &mockClient{balance: big.NewInt(1)})

	if _, err := svc.ImportWallet("garbage"); !errors.Is(err, wallet.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if svc.Session() != nil {
		t.Fatalf("failed import must not start a session")
	}
	if _, ok := svc.RestoreSession(); ok {
		t.Fatalf("failed import must not store key material")
	}
}

func TestSend_ConsumesGasEstimate(t *testing.T) {
	svc, _ := newTestService(t, &mockClient{balance: new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)})

	if _, _, err := svc.CreateWallet(); err != nil {
		t.Fatalf("create: %v", err)
	}

	recipient := "0x" + strings.Repeat("cd", 20)
	svc.EstimateGas(recipient, big.NewInt(1000))

	deadline := time.Now().Add(2 * time.Second)
	for !svc.GasEstimate().Available() {
		if time.Now().After(deadline) {
			t.Fatalf("gas estimate never published")
		}
		time.Sleep(5 * time.Millisecond)
	}

	att, err := svc.Send(context.Background(), recipient, big.NewInt(1000))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if att.State != send.StateConfirmed {
		t.Fatalf("expected confirmed, got %s", att.State)
	}

	// the fee was consumed by the send
	if svc.GasEstimate().Available() {
		t.Fatalf("gas estimate must be cleared after send")
	}
}

func TestHistoryUsesSessionAccount(t *testing.T) {
	svc, src := newTestService(t, &mockClient{balance: big.NewInt(1)})

	if _, err := svc.History(context.Background(), history.FilterAll); !errors.Is(err, wallet.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	if _, _, err := svc.CreateWallet(); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := svc.History(context.Background(), history.FilterOut)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(res.Records) != 1 || src.calls != 1 {
		t.Fatalf("expected 1 outgoing record from 1 fetch, got %d records calls=%d", len(res.Records), src.calls)
	}
}
