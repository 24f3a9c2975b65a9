package storage

import "time"

type Contact struct {
	Name    string
	Address string
	AddedAt time.Time
}

type TxRecord struct {
	Hash      string    `json:"hash"`
	FromAddr  string    `json:"from"`
	ToAddr    string    `json:"to"`
	ValueWei  string    `json:"value"` // big.Int as string
	Timestamp time.Time `json:"timestamp"`
}

// HistorySnapshot is the unfiltered transaction list fetched for one
// address, newest first. FetchedAt drives the freshness check.
type HistorySnapshot struct {
	Address   string
	Records   []TxRecord
	FetchedAt time.Time
}
