package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankLink associates a user with the access credential for one external
// financial account. Immutable once created; owned by the bank-link store.
type BankLink struct {
	ID               string
	UserID           string
	AccessToken      string
	FundingAccountID string
	ShareableID      string
	CreatedAt        time.Time
}

// AccountSnapshot is the per-request view of one linked account, assembled
// from the aggregator's account and institution data. Never persisted.
type AccountSnapshot struct {
	ID               string
	AvailableBalance decimal.Decimal
	CurrentBalance   decimal.Decimal
	InstitutionID    string
	Name             string
	OfficialName     string
	Mask             string
	Type             string
	Subtype          string
	BankLinkID       string
	ShareableID      string
}

// AccountList is the aggregate returned for a user's linked banks.
type AccountList struct {
	Accounts            []AccountSnapshot
	TotalBanks          int
	TotalCurrentBalance decimal.Decimal
}

// AccountDetail pairs a single account snapshot with its merged transaction
// history.
type AccountDetail struct {
	Account      AccountSnapshot
	Transactions []TransactionRecord
}
