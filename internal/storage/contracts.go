package storage

import "context"

type Repository interface {
	EnsureSchema(ctx context.Context) error

	AddContact(ctx context.Context, c Contact) error
	RemoveContact(ctx context.Context, address string) error
	ListContacts(ctx context.Context) ([]Contact, error)

	SaveHistorySnapshot(ctx context.Context, snap HistorySnapshot) error
	LoadHistorySnapshot(ctx context.Context, address string) (HistorySnapshot, bool, error)
}
