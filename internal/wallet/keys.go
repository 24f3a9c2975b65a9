package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var rePrivateKey = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Account is an address plus the key material authorizing transfers from it.
// The key never leaves the struct except through Key(), and the whole value
// is dropped on logout.
type Account struct {
	Address common.Address

	key *ecdsa.PrivateKey
}

func (a Account) Key() *ecdsa.PrivateKey { return a.key }

// KeyManager derives accounts from raw private keys.
type KeyManager struct{}

// Generate produces a fresh private key and its derived account. The raw
// hex form is returned alongside so it can be shown once and stored in the
// session store.
func (KeyManager) Generate() (Account, string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Account{}, "", fmt.Errorf("generate key: %w", err)
	}
	raw := "0x" + hex.EncodeToString(crypto.FromECDSA(key))
	return Account{Address: crypto.PubkeyToAddress(key.PublicKey), key: key}, raw, nil
}

// ImportFromKey derives the account for a raw "0x"-prefixed 64-hex-char
// private key. Malformed input fails with ErrInvalidKey and has no side
// effects.
func (KeyManager) ImportFromKey(raw string) (Account, error) {
	if !rePrivateKey.MatchString(raw) {
		return Account{}, ErrInvalidKey
	}
	key, err := crypto.HexToECDSA(raw[2:])
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return Account{Address: crypto.PubkeyToAddress(key.PublicKey), key: key}, nil
}
