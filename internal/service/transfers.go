package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nikhil/bankbridge/internal/aggregator"
	"github.com/nikhil/bankbridge/internal/domain"
)

// ErrInvalidTransfer marks transfer requests rejected before reaching the
// aggregator.
var ErrInvalidTransfer = errors.New("invalid transfer request")

// TransferInput carries every field of a transfer request. Nothing here is
// defaulted from fixtures; callers supply the full request.
type TransferInput struct {
	AccessToken      string
	AccountID        string
	FundingAccountID string
	Type             string
	Network          string
	Amount           string
	ACHClass         string
	Description      string
	LegalName        string
	SenderBankID     string
	ReceiverBankID   string
}

func (in TransferInput) validate() error {
	switch {
	case in.AccessToken == "":
		return fmt.Errorf("%w: access token is required", ErrInvalidTransfer)
	case in.AccountID == "":
		return fmt.Errorf("%w: account id is required", ErrInvalidTransfer)
	case in.FundingAccountID == "":
		return fmt.Errorf("%w: funding account id is required", ErrInvalidTransfer)
	case in.Type == "":
		return fmt.Errorf("%w: transfer type is required", ErrInvalidTransfer)
	case in.Network == "":
		return fmt.Errorf("%w: transfer network is required", ErrInvalidTransfer)
	case in.ACHClass == "":
		return fmt.Errorf("%w: ach class is required", ErrInvalidTransfer)
	case in.LegalName == "":
		return fmt.Errorf("%w: payer legal name is required", ErrInvalidTransfer)
	}
	amount, err := decimal.NewFromString(in.Amount)
	if err != nil {
		return fmt.Errorf("%w: invalid amount %q", ErrInvalidTransfer, in.Amount)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidTransfer, amount)
	}
	return nil
}

// TransferService initiates transfers through the aggregator and records
// them in the internal ledger.
type TransferService struct {
	agg    aggregator.Client
	ledger TransferLedger
	logger *slog.Logger
	now    func() time.Time
}

// NewTransferService constructs a TransferService.
func NewTransferService(agg aggregator.Client, ledger TransferLedger, logger *slog.Logger) *TransferService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransferService{
		agg:    agg,
		ledger: ledger,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *TransferService) WithClock(clock func() time.Time) *TransferService {
	s.now = clock
	return s
}

// CreateTransfer runs the fixed two-step flow: obtain an authorization, then
// submit the create request referencing it. A failure in either step is
// propagated; a successful authorization is not voided when the create step
// fails, it expires upstream. On success the transfer is recorded in the
// internal ledger; a ledger write failure is logged but does not fail the
// call, since the upstream transfer already exists.
func (s *TransferService) CreateTransfer(ctx context.Context, in TransferInput) (aggregator.Transfer, error) {
	if err := in.validate(); err != nil {
		return aggregator.Transfer{}, err
	}

	description := in.Description
	if description == "" {
		description = "payment"
	}

	authID, err := s.agg.AuthorizeTransfer(ctx, aggregator.TransferAuthorizationRequest{
		AccessToken:      in.AccessToken,
		AccountID:        in.AccountID,
		FundingAccountID: in.FundingAccountID,
		Type:             in.Type,
		Network:          in.Network,
		Amount:           in.Amount,
		ACHClass:         in.ACHClass,
		User:             aggregator.TransferUser{LegalName: in.LegalName},
		IdempotencyKey:   uuid.NewString(),
	})
	if err != nil {
		return aggregator.Transfer{}, fmt.Errorf("authorize transfer: %w", err)
	}

	transfer, err := s.agg.CreateTransfer(ctx, aggregator.TransferCreateRequest{
		AccessToken:     in.AccessToken,
		AccountID:       in.AccountID,
		Description:     description,
		AuthorizationID: authID,
	})
	if err != nil {
		return aggregator.Transfer{}, fmt.Errorf("create transfer: %w", err)
	}

	s.recordInLedger(ctx, in, description, transfer)
	return transfer, nil
}

func (s *TransferService) recordInLedger(ctx context.Context, in TransferInput, description string, transfer aggregator.Transfer) {
	if s.ledger == nil || in.SenderBankID == "" {
		return
	}

	amount, err := decimal.NewFromString(in.Amount)
	if err != nil {
		amount = decimal.Zero
	}

	record := domain.TransferRecord{
		ID:             transfer.ID,
		Name:           description,
		Amount:         amount,
		SenderBankID:   in.SenderBankID,
		ReceiverBankID: in.ReceiverBankID,
		Channel:        "online",
		Category:       "Transfer",
		CreatedAt:      s.now(),
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	if err := s.ledger.RecordTransfer(ctx, record); err != nil {
		s.logger.Error("failed to record transfer in ledger", "error", err, "transferId", record.ID)
	}
}
