package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferRecord is an internally recorded peer-to-peer transfer between two
// bank links, distinct from externally reported transactions.
type TransferRecord struct {
	ID             string
	Name           string
	Amount         decimal.Decimal
	SenderBankID   string
	ReceiverBankID string
	Channel        string
	Category       string
	CreatedAt      time.Time
}
