package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates whether a transaction moves money out of (debit) or
// into (credit) the account it belongs to.
type Direction string

// Transaction directions.
const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// TransactionRecord is a normalized transaction. Amount is always
// non-negative; sign information is carried only in Direction. Date is a
// calendar date (midnight UTC, no time-of-day).
type TransactionRecord struct {
	ID             string
	Name           string
	PaymentChannel string
	Direction      Direction
	AccountID      string
	Amount         decimal.Decimal
	Pending        bool
	Category       string
	Date           time.Time
	Image          string
}

// FetchSource identifies which retrieval path produced a transaction set.
type FetchSource string

// Transaction fetch sources.
const (
	// FetchSourceRange means the fixed-window range query succeeded.
	FetchSourceRange FetchSource = "range"
	// FetchSourceSync means the range query failed and the cursor-based
	// incremental sync produced the records.
	FetchSourceSync FetchSource = "sync"
	// FetchSourceNone means both retrieval paths failed. An empty record set
	// with this source is "no data available", not "confirmed zero".
	FetchSourceNone FetchSource = "none"
)

// TransactionFetch is the tri-state result of a transaction retrieval.
type TransactionFetch struct {
	Records []TransactionRecord
	Source  FetchSource
}
