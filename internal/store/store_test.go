package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nikhil/bankbridge/internal/domain"
	"github.com/nikhil/bankbridge/internal/graph"
)

func TestListBankLinks(t *testing.T) {
	client := graph.NewMemoryClient()
	client.QueueReadResult(graph.Result{Records: []graph.Record{
		{
			"bankLinkId":       "BANK-1",
			"userId":           "USR-1",
			"accessToken":      "tok-1",
			"fundingAccountId": "fund-1",
			"shareableId":      "share-1",
			"createdAt":        "2024-01-02T10:00:00Z",
		},
		{
			"bankLinkId":  "BANK-2",
			"userId":      "USR-1",
			"accessToken": "tok-2",
			"shareableId": "share-2",
			"createdAt":   "2024-02-02T10:00:00Z",
		},
	}})

	s := New(client)
	links, err := s.ListBankLinks(context.Background(), "USR-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].ID != "BANK-1" || links[0].AccessToken != "tok-1" {
		t.Fatalf("unexpected first link: %+v", links[0])
	}
	want := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	if !links[0].CreatedAt.Equal(want) {
		t.Fatalf("expected createdAt %v, got %v", want, links[0].CreatedAt)
	}

	calls := client.ReadCalls()
	if len(calls) != 1 {
		t.Fatalf("expected one read, got %d", len(calls))
	}
	if calls[0].Params["userId"] != "USR-1" {
		t.Fatalf("expected userId param, got %v", calls[0].Params)
	}
}

func TestListBankLinksRequiresUserID(t *testing.T) {
	s := New(graph.NewMemoryClient())
	if _, err := s.ListBankLinks(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestGetBankLinkNotFound(t *testing.T) {
	client := graph.NewMemoryClient()
	client.QueueReadResult(graph.Result{})

	s := New(client)
	_, err := s.GetBankLink(context.Background(), "BANK-404")
	if !errors.Is(err, ErrBankLinkNotFound) {
		t.Fatalf("expected ErrBankLinkNotFound, got %v", err)
	}
}

func TestGetBankLinkReadFailure(t *testing.T) {
	client := graph.NewMemoryClient()
	client.FailReads(errors.New("connection reset"))

	s := New(client)
	if _, err := s.GetBankLink(context.Background(), "BANK-1"); err == nil {
		t.Fatal("expected error when the graph read fails")
	}
}

func TestListTransfersForBank(t *testing.T) {
	client := graph.NewMemoryClient()
	client.QueueReadResult(graph.Result{Records: []graph.Record{
		{
			"transferId":     "TR-1",
			"name":           "rent split",
			"amount":         "25.50",
			"senderBankId":   "BANK-1",
			"receiverBankId": "BANK-2",
			"channel":        "online",
			"category":       "Transfer",
			"createdAt":      "2024-03-05T09:30:00Z",
		},
	}})

	s := New(client)
	transfers, err := s.ListTransfersForBank(context.Background(), "BANK-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(transfers))
	}
	tr := transfers[0]
	if tr.ID != "TR-1" || tr.SenderBankID != "BANK-1" || tr.ReceiverBankID != "BANK-2" {
		t.Fatalf("unexpected transfer: %+v", tr)
	}
	if tr.Amount.String() != "25.5" {
		t.Fatalf("expected amount 25.5, got %s", tr.Amount)
	}
}

func TestRecordTransfer(t *testing.T) {
	client := graph.NewMemoryClient()
	s := New(client)

	record := transferFixture()
	if err := s.RecordTransfer(context.Background(), record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writes := client.WriteCalls()
	if len(writes) != 1 {
		t.Fatalf("expected one write, got %d", len(writes))
	}
	if writes[0].Params["transferId"] != "TR-1" {
		t.Fatalf("expected transferId param, got %v", writes[0].Params)
	}
	props, ok := writes[0].Params["props"].(map[string]any)
	if !ok {
		t.Fatalf("expected props map, got %T", writes[0].Params["props"])
	}
	if props["amount"] != "10" {
		t.Fatalf("expected amount persisted as string, got %v", props["amount"])
	}
}

func TestRecordTransferRequiresID(t *testing.T) {
	s := New(graph.NewMemoryClient())
	record := transferFixture()
	record.ID = ""
	if err := s.RecordTransfer(context.Background(), record); err == nil {
		t.Fatal("expected error for missing transfer id")
	}
}

func transferFixture() domain.TransferRecord {
	return domain.TransferRecord{
		ID:             "TR-1",
		Name:           "payment",
		Amount:         decimal.NewFromInt(10),
		SenderBankID:   "BANK-1",
		ReceiverBankID: "BANK-2",
		Channel:        "online",
		Category:       "Transfer",
		CreatedAt:      time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC),
	}
}
