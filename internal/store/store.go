// Package store persists bank links and the internal transfer ledger in the
// graph database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nikhil/bankbridge/internal/domain"
	"github.com/nikhil/bankbridge/internal/graph"
)

// ErrBankLinkNotFound indicates the requested bank link does not exist.
var ErrBankLinkNotFound = errors.New("bank link not found")

// Store encapsulates graph persistence for bank links and transfers.
type Store struct {
	client graph.Client
}

// New instantiates a Store backed by the supplied graph client.
func New(client graph.Client) *Store {
	return &Store{client: client}
}

// ListBankLinks returns every bank link owned by the given user, oldest first.
func (s *Store) ListBankLinks(ctx context.Context, userID string) ([]domain.BankLink, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	res, err := s.client.ExecuteRead(ctx, listBankLinksCypher, map[string]any{
		"userId": userID,
	})
	if err != nil {
		return nil, fmt.Errorf("list bank links for user %s: %w", userID, err)
	}

	links := make([]domain.BankLink, 0, len(res.Records))
	for _, record := range res.Records {
		links = append(links, decodeBankLink(record))
	}
	return links, nil
}

// GetBankLink fetches a single bank link by its identifier.
func (s *Store) GetBankLink(ctx context.Context, id string) (domain.BankLink, error) {
	if id == "" {
		return domain.BankLink{}, errors.New("bank link id is required")
	}

	res, err := s.client.ExecuteRead(ctx, getBankLinkCypher, map[string]any{
		"bankLinkId": id,
	})
	if err != nil {
		return domain.BankLink{}, fmt.Errorf("get bank link %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return domain.BankLink{}, ErrBankLinkNotFound
	}
	return decodeBankLink(res.Records[0]), nil
}

// ListTransfersForBank returns ledger transfers where the bank is either the
// sender or the receiver, newest first.
func (s *Store) ListTransfersForBank(ctx context.Context, bankID string) ([]domain.TransferRecord, error) {
	if bankID == "" {
		return nil, errors.New("bank id is required")
	}

	res, err := s.client.ExecuteRead(ctx, listTransfersCypher, map[string]any{
		"bankId": bankID,
	})
	if err != nil {
		return nil, fmt.Errorf("list transfers for bank %s: %w", bankID, err)
	}

	transfers := make([]domain.TransferRecord, 0, len(res.Records))
	for _, record := range res.Records {
		transfers = append(transfers, domain.TransferRecord{
			ID:             toString(record["transferId"]),
			Name:           toString(record["name"]),
			Amount:         toDecimal(record["amount"]),
			SenderBankID:   toString(record["senderBankId"]),
			ReceiverBankID: toString(record["receiverBankId"]),
			Channel:        toString(record["channel"]),
			Category:       toString(record["category"]),
			CreatedAt:      toTime(record["createdAt"]),
		})
	}
	return transfers, nil
}

// RecordTransfer writes a ledger entry for a completed transfer.
func (s *Store) RecordTransfer(ctx context.Context, t domain.TransferRecord) error {
	if t.ID == "" {
		return errors.New("transfer id is required")
	}

	_, err := s.client.ExecuteWrite(ctx, recordTransferCypher, map[string]any{
		"transferId": t.ID,
		"props": map[string]any{
			"name":           t.Name,
			"amount":         t.Amount.String(),
			"senderBankId":   t.SenderBankID,
			"receiverBankId": t.ReceiverBankID,
			"channel":        t.Channel,
			"category":       t.Category,
			"createdAt":      formatTime(t.CreatedAt),
		},
	})
	if err != nil {
		return fmt.Errorf("record transfer %s: %w", t.ID, err)
	}
	return nil
}

// VerifyConnectivity reports whether the backing graph database is reachable.
func (s *Store) VerifyConnectivity(ctx context.Context) error {
	return s.client.VerifyConnectivity(ctx)
}

func decodeBankLink(record graph.Record) domain.BankLink {
	return domain.BankLink{
		ID:               toString(record["bankLinkId"]),
		UserID:           toString(record["userId"]),
		AccessToken:      toString(record["accessToken"]),
		FundingAccountID: toString(record["fundingAccountId"]),
		ShareableID:      toString(record["shareableId"]),
		CreatedAt:        toTime(record["createdAt"]),
	}
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toDecimal(val any) decimal.Decimal {
	switch v := val.(type) {
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	}
	return decimal.Zero
}

func toTime(val any) time.Time {
	switch v := val.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

const listBankLinksCypher = `
MATCH (u:User {userId: $userId})-[:OWNS]->(b:BankLink)
RETURN b.bankLinkId AS bankLinkId,
       b.userId AS userId,
       b.accessToken AS accessToken,
       b.fundingAccountId AS fundingAccountId,
       b.shareableId AS shareableId,
       b.createdAt AS createdAt
ORDER BY datetime(b.createdAt) ASC
`

const getBankLinkCypher = `
MATCH (b:BankLink {bankLinkId: $bankLinkId})
RETURN b.bankLinkId AS bankLinkId,
       b.userId AS userId,
       b.accessToken AS accessToken,
       b.fundingAccountId AS fundingAccountId,
       b.shareableId AS shareableId,
       b.createdAt AS createdAt
`

const listTransfersCypher = `
MATCH (t:Transfer)
WHERE t.senderBankId = $bankId OR t.receiverBankId = $bankId
RETURN t.transferId AS transferId,
       t.name AS name,
       t.amount AS amount,
       t.senderBankId AS senderBankId,
       t.receiverBankId AS receiverBankId,
       t.channel AS channel,
       t.category AS category,
       t.createdAt AS createdAt
ORDER BY datetime(t.createdAt) DESC
`

const recordTransferCypher = `
MERGE (t:Transfer {transferId: $transferId})
SET t += $props
`
