package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryEarn              EntryKind = "EARN"
	EntryPayout            EntryKind = "PAYOUT"
	EntryCommission        EntryKind = "COMMISSION"
	EntryWithdrawalRequest EntryKind = "WITHDRAWAL_REQUEST"
	EntryWithdrawalFee     EntryKind = "WITHDRAWAL_FEE"
	EntryWithdrawalPaid    EntryKind = "WITHDRAWAL_PAID"
	EntryAdjustment        EntryKind = "ADJUSTMENT"
)

// LedgerEntry is an immutable financial event record. Entries are append-only:
// nothing is ever edited or deleted, the log is the durable source of truth
// for balance reconstruction and read-side aggregates.
type LedgerEntry struct {
	ID          string            `json:"id"`
	Kind        EntryKind         `json:"kind"`
	AmountMinor int64             `json:"amount_minor"`
	Currency    string            `json:"currency"`
	CreatedAt   time.Time         `json:"created_at"`
	RefID       string            `json:"ref_id,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// NewLedgerEntry builds an entry with a fresh unique ID.
func NewLedgerEntry(kind EntryKind, amountMinor int64, currency string, createdAt time.Time) LedgerEntry {
	return LedgerEntry{
		ID:          uuid.NewString(),
		Kind:        kind,
		AmountMinor: amountMinor,
		Currency:    currency,
		CreatedAt:   createdAt,
	}
}

// WithMeta attaches a metadata key-value pair and returns the entry.
func (e LedgerEntry) WithMeta(key, value string) LedgerEntry {
	if e.Meta == nil {
		e.Meta = make(map[string]string, 1)
	}
	e.Meta[key] = value
	return e
}

// WithRef attaches a reference ID and returns the entry.
func (e LedgerEntry) WithRef(refID string) LedgerEntry {
	e.RefID = refID
	return e
}
