package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/bankbridge/internal/aggregator"
	"github.com/nikhil/bankbridge/internal/domain"
)

type stubLedger struct {
	transfers    []domain.TransferRecord
	listErr      error
	recorded     []domain.TransferRecord
	recordErr    error
	listRequests []string
}

func (s *stubLedger) ListTransfersForBank(_ context.Context, bankID string) ([]domain.TransferRecord, error) {
	s.listRequests = append(s.listRequests, bankID)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.transfers, nil
}

func (s *stubLedger) RecordTransfer(_ context.Context, t domain.TransferRecord) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.recorded = append(s.recorded, t)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNormalizeTransactionDirectionAndAmount(t *testing.T) {
	cases := []struct {
		name      string
		amount    string
		direction domain.Direction
	}{
		{"positive amount is a debit", "42.50", domain.DirectionDebit},
		{"negative amount is a credit", "-42.50", domain.DirectionCredit},
		{"zero amount is a credit", "0", domain.DirectionCredit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := normalizeTransaction(aggregator.Transaction{
				TransactionID: "TX-1",
				Amount:        dec(tc.amount),
				Date:          "2024-03-01",
			})
			assert.Equal(t, tc.direction, record.Direction)
			assert.True(t, record.Amount.Equal(dec(tc.amount).Abs()), "amount must be |raw|")
			assert.False(t, record.Amount.IsNegative())
		})
	}
}

func TestNormalizeTransactionCategory(t *testing.T) {
	empty := normalizeTransaction(aggregator.Transaction{Category: nil})
	assert.Equal(t, "", empty.Category)

	multi := normalizeTransaction(aggregator.Transaction{Category: []string{"Food and Drink", "Restaurants"}})
	assert.Equal(t, "Food and Drink", multi.Category)
}

func TestFetchTransactionsRangePath(t *testing.T) {
	agg := aggregator.NewMemoryClient()
	agg.RangeResp = []aggregator.Transaction{
		{TransactionID: "TX-1", Amount: dec("12.00"), Date: "2024-02-10"},
	}

	svc := NewTransactionService(agg, &stubLedger{}, discardLogger())
	fetch := svc.FetchTransactions(context.Background(), "tok")

	require.Equal(t, domain.FetchSourceRange, fetch.Source)
	require.Len(t, fetch.Records, 1)
	assert.Equal(t, "TX-1", fetch.Records[0].ID)
	assert.Equal(t, 1, agg.RangeCalls())
	assert.Empty(t, agg.SyncCursors(), "sync must not run when the range fetch succeeds")
}

func TestFetchTransactionsSyncFallbackAccumulatesPages(t *testing.T) {
	agg := aggregator.NewMemoryClient()
	agg.RangeErr = errors.New("range not supported")
	agg.SyncPages = []aggregator.SyncPage{
		{
			Added:      []aggregator.Transaction{{TransactionID: "TX-1", Amount: dec("5"), Date: "2024-01-01"}},
			NextCursor: "cur-1",
			HasMore:    true,
		},
		{
			Added:      []aggregator.Transaction{{TransactionID: "TX-2", Amount: dec("7"), Date: "2024-01-02"}},
			NextCursor: "cur-2",
			HasMore:    false,
		},
	}

	svc := NewTransactionService(agg, &stubLedger{}, discardLogger())
	fetch := svc.FetchTransactions(context.Background(), "tok")

	require.Equal(t, domain.FetchSourceSync, fetch.Source)
	require.Len(t, fetch.Records, 2)
	assert.Equal(t, "TX-1", fetch.Records[0].ID)
	assert.Equal(t, "TX-2", fetch.Records[1].ID)

	// Each request's cursor comes from the previous page; iteration stops
	// once has_more is false.
	assert.Equal(t, []string{"", "cur-1"}, agg.SyncCursors())
}

func TestFetchTransactionsBothPathsFail(t *testing.T) {
	agg := aggregator.NewMemoryClient()
	agg.RangeErr = errors.New("range down")
	agg.SyncErr = errors.New("sync down")

	svc := NewTransactionService(agg, &stubLedger{}, discardLogger())
	fetch := svc.FetchTransactions(context.Background(), "tok")

	assert.Equal(t, domain.FetchSourceNone, fetch.Source)
	assert.NotNil(t, fetch.Records)
	assert.Empty(t, fetch.Records)
}

func TestMergeWithTransfersSortsAndDerivesDirection(t *testing.T) {
	ledger := &stubLedger{
		transfers: []domain.TransferRecord{
			{
				ID:           "TR-OUT",
				Name:         "sent payment",
				Amount:       dec("20"),
				SenderBankID: "BANK-1",
				CreatedAt:    time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
			},
			{
				ID:             "TR-IN",
				Name:           "received payment",
				Amount:         dec("15"),
				SenderBankID:   "BANK-2",
				ReceiverBankID: "BANK-1",
				CreatedAt:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			},
		},
	}
	agg := aggregator.NewMemoryClient()
	svc := NewTransactionService(agg, ledger, discardLogger())

	external := []domain.TransactionRecord{
		{ID: "TX-1", Date: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)},
		{ID: "TX-2", Date: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)},
	}

	merged := svc.MergeWithTransfers(context.Background(), "BANK-1", external)

	require.Len(t, merged, 4)
	ids := []string{merged[0].ID, merged[1].ID, merged[2].ID, merged[3].ID}
	assert.Equal(t, []string{"TR-OUT", "TX-1", "TR-IN", "TX-2"}, ids)

	byID := map[string]domain.TransactionRecord{}
	for _, rec := range merged {
		byID[rec.ID] = rec
	}
	// Sender bank equals the queried bank: credit. Otherwise: debit.
	assert.Equal(t, domain.DirectionCredit, byID["TR-OUT"].Direction)
	assert.Equal(t, domain.DirectionDebit, byID["TR-IN"].Direction)

	// Transfer timestamps are truncated to calendar dates.
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), byID["TR-OUT"].Date)
}

func TestMergeWithTransfersTieBreakKeepsInsertionOrder(t *testing.T) {
	day := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	ledger := &stubLedger{
		transfers: []domain.TransferRecord{
			{ID: "TR-1", Amount: dec("1"), SenderBankID: "BANK-1", CreatedAt: day},
		},
	}
	svc := NewTransactionService(aggregator.NewMemoryClient(), ledger, discardLogger())

	external := []domain.TransactionRecord{
		{ID: "TX-A", Date: day},
		{ID: "TX-B", Date: day},
	}

	merged := svc.MergeWithTransfers(context.Background(), "BANK-1", external)

	require.Len(t, merged, 3)
	// Equal dates keep concatenation order: external first, transfers after.
	assert.Equal(t, "TX-A", merged[0].ID)
	assert.Equal(t, "TX-B", merged[1].ID)
	assert.Equal(t, "TR-1", merged[2].ID)
}

func TestMergeWithTransfersLedgerFailureReturnsExternalOnly(t *testing.T) {
	ledger := &stubLedger{listErr: errors.New("ledger unavailable")}
	svc := NewTransactionService(aggregator.NewMemoryClient(), ledger, discardLogger())

	external := []domain.TransactionRecord{
		{ID: "TX-1", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	merged := svc.MergeWithTransfers(context.Background(), "BANK-1", external)

	require.Len(t, merged, 1)
	assert.Equal(t, "TX-1", merged[0].ID)
}

func TestFetchTransactionsEndToEndSyncFallback(t *testing.T) {
	agg := aggregator.NewMemoryClient()
	agg.RangeErr = errors.New("range fetch rejected")
	agg.SyncPages = []aggregator.SyncPage{
		{
			Added: []aggregator.Transaction{
				{TransactionID: "t1", Amount: dec("-5"), Category: []string{}, Date: "2024-05-01"},
			},
			HasMore: false,
		},
	}

	svc := NewTransactionService(agg, &stubLedger{}, discardLogger())
	fetch := svc.FetchTransactions(context.Background(), "tok1")

	require.Equal(t, domain.FetchSourceSync, fetch.Source)
	require.Len(t, fetch.Records, 1)

	record := fetch.Records[0]
	assert.Equal(t, "t1", record.ID)
	assert.Equal(t, domain.DirectionCredit, record.Direction)
	assert.True(t, record.Amount.Equal(dec("5")))
	assert.Equal(t, "", record.Category)
}
