package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nikhil/bankbridge/internal/aggregator"
	"github.com/nikhil/bankbridge/internal/domain"
)

// AccountService assembles account views from the bank-link store and the
// aggregator.
type AccountService struct {
	links        BankLinkStore
	agg          aggregator.Client
	transactions *TransactionService
	logger       *slog.Logger
	maxFanout    int
}

// NewAccountService constructs an AccountService. maxFanout bounds the
// number of concurrent per-bank aggregator call groups.
func NewAccountService(links BankLinkStore, agg aggregator.Client, transactions *TransactionService, logger *slog.Logger, maxFanout int) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxFanout <= 0 {
		maxFanout = 4
	}
	return &AccountService{
		links:        links,
		agg:          agg,
		transactions: transactions,
		logger:       logger,
		maxFanout:    maxFanout,
	}
}

// ListAccounts returns one snapshot per bank link owned by the user, plus the
// total current balance across them. Any failing sub-fetch aborts the whole
// operation: no partial list is ever returned.
func (s *AccountService) ListAccounts(ctx context.Context, userID string) (domain.AccountList, error) {
	if userID == "" {
		return domain.AccountList{}, errors.New("user id is required")
	}

	links, err := s.links.ListBankLinks(ctx, userID)
	if err != nil {
		return domain.AccountList{}, fmt.Errorf("load bank links: %w", err)
	}

	accounts, err := s.fetchSnapshots(ctx, links)
	if err != nil {
		return domain.AccountList{}, err
	}

	total := decimal.Zero
	for _, acct := range accounts {
		total = total.Add(acct.CurrentBalance)
	}

	return domain.AccountList{
		Accounts:            accounts,
		TotalBanks:          len(accounts),
		TotalCurrentBalance: total,
	}, nil
}

// GetAccount returns the detail view for one bank link: snapshot plus merged
// transaction history. Unlike ListAccounts this is fail-soft: if the bank
// link or snapshot cannot be loaded the condition is logged and a nil detail
// is returned without an error.
func (s *AccountService) GetAccount(ctx context.Context, bankLinkID string) (*domain.AccountDetail, error) {
	link, err := s.links.GetBankLink(ctx, bankLinkID)
	if err != nil {
		s.logger.Error("failed to load bank link", "error", err, "bankLinkId", bankLinkID)
		return nil, nil
	}

	snapshot, err := s.snapshotForLink(ctx, link)
	if err != nil {
		s.logger.Error("failed to build account snapshot", "error", err, "bankLinkId", bankLinkID)
		return nil, nil
	}

	fetch := s.transactions.FetchTransactions(ctx, link.AccessToken)
	if fetch.Source == domain.FetchSourceNone {
		s.logger.Warn("no transaction data available for bank", "bankLinkId", bankLinkID)
	}
	merged := s.transactions.MergeWithTransfers(ctx, link.ID, fetch.Records)

	return &domain.AccountDetail{
		Account:      snapshot,
		Transactions: merged,
	}, nil
}

// fetchSnapshots resolves one snapshot per bank link using a bounded worker
// pool. Snapshots land at their link's index, preserving input order. The
// first failure cancels the remaining work and is returned; in-flight
// results are discarded.
func (s *AccountService) fetchSnapshots(ctx context.Context, links []domain.BankLink) ([]domain.AccountSnapshot, error) {
	if len(links) == 0 {
		return []domain.AccountSnapshot{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := s.maxFanout
	if workers > len(links) {
		workers = len(links)
	}

	indexCh := make(chan int)
	errCh := make(chan error, len(links))
	snapshots := make([]domain.AccountSnapshot, len(links))
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			snap, err := s.snapshotForLink(ctx, links[idx])
			if err != nil {
				errCh <- err
				cancel()
				return
			}
			snapshots[idx] = snap
		}
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

feed:
	for i := range links {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// snapshotForLink fetches the first account on the credential together with
// its institution metadata. An absent balance upstream is a contract
// violation and surfaces as an error, never as a silent zero.
func (s *AccountService) snapshotForLink(ctx context.Context, link domain.BankLink) (domain.AccountSnapshot, error) {
	resp, err := s.agg.GetAccounts(ctx, link.AccessToken)
	if err != nil {
		return domain.AccountSnapshot{}, fmt.Errorf("fetch accounts for bank %s: %w", link.ID, err)
	}
	if len(resp.Accounts) == 0 {
		return domain.AccountSnapshot{}, fmt.Errorf("bank %s: aggregator returned no accounts", link.ID)
	}

	acct := resp.Accounts[0]
	if acct.Balances.Current == nil {
		return domain.AccountSnapshot{}, fmt.Errorf("bank %s: current balance missing", link.ID)
	}
	if acct.Balances.Available == nil {
		return domain.AccountSnapshot{}, fmt.Errorf("bank %s: available balance missing", link.ID)
	}

	inst, err := s.agg.GetInstitution(ctx, resp.Item.InstitutionID)
	if err != nil {
		return domain.AccountSnapshot{}, fmt.Errorf("fetch institution for bank %s: %w", link.ID, err)
	}

	return domain.AccountSnapshot{
		ID:               acct.AccountID,
		AvailableBalance: *acct.Balances.Available,
		CurrentBalance:   *acct.Balances.Current,
		InstitutionID:    inst.InstitutionID,
		Name:             acct.Name,
		OfficialName:     acct.OfficialName,
		Mask:             acct.Mask,
		Type:             acct.Type,
		Subtype:          acct.Subtype,
		BankLinkID:       link.ID,
		ShareableID:      link.ShareableID,
	}, nil
}
