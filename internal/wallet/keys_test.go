package wallet

import (
	"errors"
	"strings"
	"testing"
)

func TestImportFromKey_Deterministic(t *testing.T) {
	var km KeyManager

	raw := "0x" + strings.Repeat("11", 32)

	first, err := km.ImportFromKey(raw)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	second, err := km.ImportFromKey(raw)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if first.Address != second.Address {
		t.Fatalf("same key derived different addresses: %s vs %s", first.Address.Hex(), second.Address.Hex())
	}
	if first.Key() == nil {
		t.Fatalf("expected key material on account")
	}
}

func TestImportFromKey_Malformed(t *testing.T) {
	var km KeyManager

	cases := []string{
		"",
		"0x",
		strings.Repeat("11", 32),         // missing 0x
		"0x" + strings.Repeat("11", 31),  // too short
		"0x" + strings.Repeat("11", 33),  // too long
		"0x" + strings.Repeat("zz", 32),  // non-hex
		"0X" + strings.Repeat("11", 32),  // wrong prefix case
		" 0x" + strings.Repeat("11", 32), // leading space
	}

	for _, raw := range cases {
		_, err := km.ImportFromKey(raw)
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", raw, err)
		}
	}
}

func TestGenerate(t *testing.T) {
	var km KeyManager

	acct, raw, err := km.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// raw form must round-trip to the same account
	again, err := km.ImportFromKey(raw)
	if err != nil {
		t.Fatalf("re-import generated key: %v", err)
	}
	if again.Address != acct.Address {
		t.Fatalf("generated key does not round-trip: %s vs %s", acct.Address.Hex(), again.Address.Hex())
	}
}

func TestSessionStore(t *testing.T) {
	s := NewSessionStore()

	if _, ok := s.Load(); ok {
		t.Fatalf("expected empty store")
	}

	s.Save("0xaaa")
	s.Save("0xbbb") // replaces
	raw, ok := s.Load()
	if !ok || raw != "0xbbb" {
		t.Fatalf("expected replaced value, got %q ok=%v", raw, ok)
	}

	s.Clear()
	s.Clear() // idempotent
	if _, ok := s.Load(); ok {
		t.Fatalf("expected cleared store")
	}
}
