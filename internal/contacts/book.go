// Package contacts keeps the named recipient address book.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pvzzle/miniwallet/internal/storage"
	"github.com/pvzzle/miniwallet/internal/wallet"
)

var (
	ErrEmptyName        = errors.New("contact name must not be empty")
	ErrDuplicateAddress = errors.New("address already in the book")
)

// Book is the in-memory contact list backed by the repository. Entries
// keep insertion order; addresses are unique case-insensitively.
type Book struct {
	mu   sync.Mutex
	repo storage.Repository
	list []storage.Contact
	now  func() time.Time
}

// Load builds a Book from the persisted contact list.
func Load(ctx context.Context, repo storage.Repository) (*Book, error) {
	b := &Book{repo: repo, now: time.Now}
	if repo != nil {
		list, err := repo.ListContacts(ctx)
		if err != nil {
			return nil, fmt.Errorf("load contacts: %w", err)
		}
		b.list = list
	}
	return b, nil
}

func (b *Book) Add(ctx context.Context, name, address string) error {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)

	if name == "" {
		return ErrEmptyName
	}
	if !wallet.IsAddress(address) {
		return wallet.ErrInvalidAddress
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range b.list {
		if strings.EqualFold(c.Address, address) {
			return ErrDuplicateAddress
		}
	}

	contact := storage.Contact{Name: name, Address: address, AddedAt: b.now()}
	if b.repo != nil {
		if err := b.repo.AddContact(ctx, contact); err != nil {
			return fmt.Errorf("persist contact: %w", err)
		}
	}
	b.list = append(b.list, contact)
	return nil
}

// Remove deletes by address; removing an unknown address is a no-op.
func (b *Book) Remove(ctx context.Context, address string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	for i, c := range b.list {
		if strings.EqualFold(c.Address, address) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	if b.repo != nil {
		if err := b.repo.RemoveContact(ctx, address); err != nil {
			return fmt.Errorf("remove contact: %w", err)
		}
	}
	b.list = append(b.list[:idx], b.list[idx+1:]...)
	return nil
}

// List returns the contacts in insertion order.
func (b *Book) List() []storage.Contact {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]storage.Contact, len(b.list))
	copy(out, b.list)
	return out
}
