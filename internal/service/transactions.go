package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/nikhil/bankbridge/internal/aggregator"
	"github.com/nikhil/bankbridge/internal/domain"
)

const (
	// rangeWindowDays is the trailing window covered by the range fetch.
	rangeWindowDays = 730
	// rangePageSize bounds the single range-fetch page. The range path does
	// not paginate further: credentials with more than rangePageSize
	// transactions in the window are truncated on this path.
	rangePageSize = 100

	dateLayout = "2006-01-02"
)

// TransactionService retrieves, normalizes, and merges transactions for one
// bank link.
type TransactionService struct {
	agg    aggregator.Client
	ledger TransferLedger
	logger *slog.Logger
	now    func() time.Time
}

// NewTransactionService constructs a TransactionService.
func NewTransactionService(agg aggregator.Client, ledger TransferLedger, logger *slog.Logger) *TransactionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionService{
		agg:    agg,
		ledger: ledger,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *TransactionService) WithClock(clock func() time.Time) *TransactionService {
	s.now = clock
	return s
}

// FetchTransactions retrieves normalized transactions for a credential. The
// range query over the trailing window is attempted first; if it fails, the
// cursor-based incremental sync is drained page by page. If both paths fail,
// the result carries FetchSourceNone and an empty record set, meaning "no
// data available" rather than "confirmed zero transactions". This operation
// never returns an error.
func (s *TransactionService) FetchTransactions(ctx context.Context, accessToken string) domain.TransactionFetch {
	end := s.now()
	start := end.AddDate(0, 0, -rangeWindowDays)

	raw, rangeErr := s.agg.GetTransactionsRange(ctx, accessToken, start, end, rangePageSize)
	if rangeErr == nil {
		return domain.TransactionFetch{
			Records: normalizeTransactions(raw),
			Source:  domain.FetchSourceRange,
		}
	}
	s.logger.Warn("range fetch failed, falling back to incremental sync", "error", rangeErr)

	records, syncErr := s.syncAll(ctx, accessToken)
	if syncErr != nil {
		s.logger.Error("incremental sync failed", "error", syncErr)
		return domain.TransactionFetch{
			Records: []domain.TransactionRecord{},
			Source:  domain.FetchSourceNone,
		}
	}
	return domain.TransactionFetch{
		Records: records,
		Source:  domain.FetchSourceSync,
	}
}

// syncAll drains the incremental sync stream. Pages are fetched strictly in
// sequence: each request's cursor comes from the previous response.
func (s *TransactionService) syncAll(ctx context.Context, accessToken string) ([]domain.TransactionRecord, error) {
	records := []domain.TransactionRecord{}
	cursor := ""
	for {
		page, err := s.agg.SyncTransactions(ctx, accessToken, cursor)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Added {
			records = append(records, normalizeTransaction(raw))
		}
		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}
	return records, nil
}

// MergeWithTransfers combines externally reported transactions with the
// bank's internally recorded transfers, sorted by date descending. Records
// sharing a date keep insertion order: external transactions before
// transfers. If the ledger lookup fails the external list is returned alone;
// partial data beats total failure here.
func (s *TransactionService) MergeWithTransfers(ctx context.Context, bankID string, external []domain.TransactionRecord) []domain.TransactionRecord {
	merged := append([]domain.TransactionRecord{}, external...)

	transfers, err := s.ledger.ListTransfersForBank(ctx, bankID)
	if err != nil {
		s.logger.Warn("transfer lookup failed, returning external transactions only",
			"error", err, "bankId", bankID)
	} else {
		for _, t := range transfers {
			merged = append(merged, transferAsTransaction(bankID, t))
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	return merged
}

// transferAsTransaction maps a ledger transfer into the normalized
// transaction shape relative to the queried bank: credit when the bank sent
// the transfer, debit when it received it.
func transferAsTransaction(bankID string, t domain.TransferRecord) domain.TransactionRecord {
	direction := domain.DirectionDebit
	if t.SenderBankID == bankID {
		direction = domain.DirectionCredit
	}
	return domain.TransactionRecord{
		ID:             t.ID,
		Name:           t.Name,
		PaymentChannel: t.Channel,
		Direction:      direction,
		Amount:         t.Amount,
		Category:       t.Category,
		Date:           dateOnly(t.CreatedAt),
	}
}

func normalizeTransactions(raw []aggregator.Transaction) []domain.TransactionRecord {
	records := make([]domain.TransactionRecord, 0, len(raw))
	for _, tx := range raw {
		records = append(records, normalizeTransaction(tx))
	}
	return records
}

// normalizeTransaction maps a raw aggregator transaction into the local
// shape. The aggregator reports debits as positive amounts; the stored
// amount is unsigned and direction carries the sign.
func normalizeTransaction(raw aggregator.Transaction) domain.TransactionRecord {
	direction := domain.DirectionCredit
	if raw.Amount.IsPositive() {
		direction = domain.DirectionDebit
	}

	category := ""
	if len(raw.Category) > 0 {
		category = raw.Category[0]
	}

	return domain.TransactionRecord{
		ID:             raw.TransactionID,
		Name:           raw.Name,
		PaymentChannel: raw.PaymentChannel,
		Direction:      direction,
		AccountID:      raw.AccountID,
		Amount:         raw.Amount.Abs(),
		Pending:        raw.Pending,
		Category:       category,
		Date:           parseDate(raw.Date),
		Image:          raw.LogoURL,
	}
}

func parseDate(value string) time.Time {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
