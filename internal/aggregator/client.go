// Package aggregator talks to the third-party financial-data aggregation API
// that exposes linked-bank accounts, transactions, and transfers.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Client defines the aggregator operations the services depend on.
type Client interface {
	// GetAccounts returns the accounts reachable through an access token,
	// along with the owning item metadata.
	GetAccounts(ctx context.Context, accessToken string) (AccountsResponse, error)
	// GetInstitution resolves institution metadata by identifier.
	GetInstitution(ctx context.Context, institutionID string) (Institution, error)
	// GetTransactionsRange fetches a single page of transactions within the
	// inclusive [start, end] calendar range.
	GetTransactionsRange(ctx context.Context, accessToken string, start, end time.Time, count int) ([]Transaction, error)
	// SyncTransactions fetches one page of the incremental sync stream. An
	// empty cursor starts from the beginning of the stream.
	SyncTransactions(ctx context.Context, accessToken, cursor string) (SyncPage, error)
	// AuthorizeTransfer requests a transfer authorization and returns its id.
	AuthorizeTransfer(ctx context.Context, req TransferAuthorizationRequest) (string, error)
	// CreateTransfer submits a transfer referencing a prior authorization.
	CreateTransfer(ctx context.Context, req TransferCreateRequest) (Transfer, error)
}

// Options configures an aggregator client implementation.
type Options struct {
	BaseURL        string
	ClientID       string
	Secret         string
	RequestTimeout time.Duration
}

// ErrMissingBaseURL indicates the aggregator base URL is not provided.
var ErrMissingBaseURL = errors.New("aggregator base URL is required")

// APIError is a structured failure reported by the aggregator.
type APIError struct {
	StatusCode int
	Code       string `json:"error_code"`
	Message    string `json:"error_message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aggregator error %s (http %d): %s", e.Code, e.StatusCode, e.Message)
}

// Balances carries the reported balances for an account. Pointers distinguish
// absent values from zero: a missing available balance is a contract
// violation the caller must surface.
type Balances struct {
	Available *decimal.Decimal `json:"available"`
	Current   *decimal.Decimal `json:"current"`
}

// Account is the raw aggregator account shape.
type Account struct {
	AccountID    string   `json:"account_id"`
	Balances     Balances `json:"balances"`
	Name         string   `json:"name"`
	OfficialName string   `json:"official_name"`
	Mask         string   `json:"mask"`
	Type         string   `json:"type"`
	Subtype      string   `json:"subtype"`
}

// Item groups credential-level metadata returned with account responses.
type Item struct {
	InstitutionID string `json:"institution_id"`
}

// AccountsResponse is the payload of an accounts lookup.
type AccountsResponse struct {
	Accounts []Account `json:"accounts"`
	Item     Item      `json:"item"`
}

// Institution describes a financial institution.
type Institution struct {
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
}

// Transaction is the raw aggregator transaction shape. Amount is signed: the
// aggregator reports debits as positive values.
type Transaction struct {
	TransactionID  string          `json:"transaction_id"`
	AccountID      string          `json:"account_id"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentChannel string          `json:"payment_channel"`
	Pending        bool            `json:"pending"`
	Category       []string        `json:"category"`
	Date           string          `json:"date"` // 2006-01-02
	LogoURL        string          `json:"logo_url"`
}

// SyncPage is one page of the incremental transaction sync stream.
type SyncPage struct {
	Added      []Transaction `json:"added"`
	NextCursor string        `json:"next_cursor"`
	HasMore    bool          `json:"has_more"`
}

// TransferUser identifies the legal owner of a transfer.
type TransferUser struct {
	LegalName string `json:"legal_name"`
}

// TransferAuthorizationRequest asks the aggregator to authorize a transfer.
type TransferAuthorizationRequest struct {
	AccessToken      string       `json:"access_token"`
	AccountID        string       `json:"account_id"`
	FundingAccountID string       `json:"funding_account_id"`
	Type             string       `json:"type"`
	Network          string       `json:"network"`
	Amount           string       `json:"amount"`
	ACHClass         string       `json:"ach_class"`
	User             TransferUser `json:"user"`
	IdempotencyKey   string       `json:"idempotency_key,omitempty"`
}

// TransferCreateRequest submits a transfer against an authorization.
type TransferCreateRequest struct {
	AccessToken     string `json:"access_token"`
	AccountID       string `json:"account_id"`
	Description     string `json:"description"`
	AuthorizationID string `json:"authorization_id"`
}

// Transfer is the aggregator's view of a created transfer.
type Transfer struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Created     string `json:"created"`
}
