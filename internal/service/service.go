// Package service implements the retrieval pipeline: account aggregation,
// transaction merging, and transfer initiation.
package service

import (
	"context"
	"time"

	"github.com/nikhil/bankbridge/internal/domain"
)

// BankLinkStore is the slice of the store the account service depends on.
type BankLinkStore interface {
	ListBankLinks(ctx context.Context, userID string) ([]domain.BankLink, error)
	GetBankLink(ctx context.Context, id string) (domain.BankLink, error)
}

// TransferLedger is the slice of the store the transaction and transfer
// services depend on.
type TransferLedger interface {
	ListTransfersForBank(ctx context.Context, bankID string) ([]domain.TransferRecord, error)
	RecordTransfer(ctx context.Context, t domain.TransferRecord) error
}

// dateOnly truncates a timestamp to its calendar date in UTC. Time-of-day is
// not modeled on transaction records.
func dateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
