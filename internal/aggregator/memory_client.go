package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryClient is an in-memory Client used to test service logic without a
// live aggregator. Responses are canned per method; sync pages are consumed
// in FIFO order.
type MemoryClient struct {
	mu sync.Mutex

	AccountsResp    AccountsResponse
	AccountsErr     error
	InstitutionResp Institution
	InstitutionErr  error

	RangeResp []Transaction
	RangeErr  error

	SyncPages []SyncPage
	SyncErr   error

	AuthorizationID string
	AuthorizeErr    error
	TransferResp    Transfer
	CreateErr       error

	rangeCalls     int
	syncCursors    []string
	authorizations []TransferAuthorizationRequest
	creations      []TransferCreateRequest
}

// NewMemoryClient instantiates an empty in-memory aggregator client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

func (m *MemoryClient) GetAccounts(_ context.Context, _ string) (AccountsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AccountsErr != nil {
		return AccountsResponse{}, m.AccountsErr
	}
	return m.AccountsResp, nil
}

func (m *MemoryClient) GetInstitution(_ context.Context, _ string) (Institution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InstitutionErr != nil {
		return Institution{}, m.InstitutionErr
	}
	return m.InstitutionResp, nil
}

func (m *MemoryClient) GetTransactionsRange(_ context.Context, _ string, _, _ time.Time, _ int) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rangeCalls++
	if m.RangeErr != nil {
		return nil, m.RangeErr
	}
	return m.RangeResp, nil
}

func (m *MemoryClient) SyncTransactions(_ context.Context, _ string, cursor string) (SyncPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SyncErr != nil {
		return SyncPage{}, m.SyncErr
	}
	m.syncCursors = append(m.syncCursors, cursor)
	if len(m.SyncPages) == 0 {
		return SyncPage{}, errors.New("no sync pages queued")
	}
	page := m.SyncPages[0]
	m.SyncPages = m.SyncPages[1:]
	return page, nil
}

func (m *MemoryClient) AuthorizeTransfer(_ context.Context, req TransferAuthorizationRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AuthorizeErr != nil {
		return "", m.AuthorizeErr
	}
	m.authorizations = append(m.authorizations, req)
	return m.AuthorizationID, nil
}

func (m *MemoryClient) CreateTransfer(_ context.Context, req TransferCreateRequest) (Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return Transfer{}, m.CreateErr
	}
	m.creations = append(m.creations, req)
	return m.TransferResp, nil
}

// RangeCalls reports how many range fetches were attempted.
func (m *MemoryClient) RangeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rangeCalls
}

// SyncCursors returns the cursors passed to SyncTransactions, in order.
func (m *MemoryClient) SyncCursors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.syncCursors...)
}

// Authorizations returns the recorded authorization requests.
func (m *MemoryClient) Authorizations() []TransferAuthorizationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TransferAuthorizationRequest(nil), m.authorizations...)
}

// Creations returns the recorded transfer create requests.
func (m *MemoryClient) Creations() []TransferCreateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TransferCreateRequest(nil), m.creations...)
}
