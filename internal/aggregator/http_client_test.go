package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetAccountsDecodesBalances(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Aggregator-Client-Id"); got != "client-1" {
			t.Errorf("expected client id header, got %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["access_token"] != "tok-1" {
			t.Errorf("expected access_token tok-1, got %v", body["access_token"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"accounts": [{
				"account_id": "ACC-1",
				"balances": {"available": 90.5, "current": 100.25},
				"name": "Checking",
				"mask": "0000",
				"type": "depository",
				"subtype": "checking"
			}],
			"item": {"institution_id": "ins_1"}
		}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(Options{BaseURL: srv.URL, ClientID: "client-1", Secret: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := client.GetAccounts(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(resp.Accounts))
	}
	acct := resp.Accounts[0]
	if acct.Balances.Available == nil || acct.Balances.Current == nil {
		t.Fatal("expected both balances present")
	}
	if acct.Balances.Current.String() != "100.25" {
		t.Fatalf("expected current balance 100.25, got %s", acct.Balances.Current)
	}
	if resp.Item.InstitutionID != "ins_1" {
		t.Fatalf("expected institution ins_1, got %s", resp.Item.InstitutionID)
	}
}

func TestGetTransactionsRangeSendsWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			StartDate string `json:"start_date"`
			EndDate   string `json:"end_date"`
			Options   struct {
				Count  int `json:"count"`
				Offset int `json:"offset"`
			} `json:"options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.StartDate != "2022-06-01" || body.EndDate != "2024-05-31" {
			t.Errorf("unexpected window %s..%s", body.StartDate, body.EndDate)
		}
		if body.Options.Count != 100 || body.Options.Offset != 0 {
			t.Errorf("unexpected options %+v", body.Options)
		}

		_, _ = w.Write([]byte(`{"transactions": [{"transaction_id": "TX-1", "amount": -12.5, "category": ["Travel"], "date": "2024-05-01"}]}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	txs, err := client.GetTransactionsRange(context.Background(), "tok", start, end, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 || txs[0].TransactionID != "TX-1" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
	if !txs[0].Amount.IsNegative() {
		t.Fatalf("expected signed amount preserved, got %s", txs[0].Amount)
	}
}

func TestSyncTransactionsOmitsEmptyCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if _, present := body["cursor"]; present {
			t.Error("empty cursor must not be sent")
		}
		_, _ = w.Write([]byte(`{"added": [], "next_cursor": "cur-1", "has_more": false}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page, err := client.SyncTransactions(context.Background(), "tok", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.NextCursor != "cur-1" || page.HasMore {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestAPIErrorDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code": "INVALID_ACCESS_TOKEN", "error_message": "the token is revoked"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.GetAccounts(context.Background(), "tok")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != "INVALID_ACCESS_TOKEN" || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(Options{}); !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("expected ErrMissingBaseURL, got %v", err)
	}
}
