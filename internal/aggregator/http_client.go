package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const dateLayout = "2006-01-02"

// NewHTTPClient builds a Client that speaks the aggregator's JSON-over-POST
// protocol. Credentials travel in request headers; the per-request timeout is
// enforced by the embedded http.Client.
func NewHTTPClient(opts Options) (Client, error) {
	if opts.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		baseURL:  opts.BaseURL,
		clientID: opts.ClientID,
		secret:   opts.Secret,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

type httpClient struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client
}

func (c *httpClient) GetAccounts(ctx context.Context, accessToken string) (AccountsResponse, error) {
	var resp AccountsResponse
	err := c.post(ctx, "/accounts/get", map[string]any{
		"access_token": accessToken,
	}, &resp)
	if err != nil {
		return AccountsResponse{}, fmt.Errorf("get accounts: %w", err)
	}
	return resp, nil
}

func (c *httpClient) GetInstitution(ctx context.Context, institutionID string) (Institution, error) {
	var resp struct {
		Institution Institution `json:"institution"`
	}
	err := c.post(ctx, "/institutions/get_by_id", map[string]any{
		"institution_id": institutionID,
		"country_codes":  []string{"US"},
	}, &resp)
	if err != nil {
		return Institution{}, fmt.Errorf("get institution %s: %w", institutionID, err)
	}
	return resp.Institution, nil
}

func (c *httpClient) GetTransactionsRange(ctx context.Context, accessToken string, start, end time.Time, count int) ([]Transaction, error) {
	var resp struct {
		Transactions []Transaction `json:"transactions"`
	}
	err := c.post(ctx, "/transactions/get", map[string]any{
		"access_token": accessToken,
		"start_date":   start.UTC().Format(dateLayout),
		"end_date":     end.UTC().Format(dateLayout),
		"options": map[string]any{
			"count":  count,
			"offset": 0,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	return resp.Transactions, nil
}

func (c *httpClient) SyncTransactions(ctx context.Context, accessToken, cursor string) (SyncPage, error) {
	body := map[string]any{
		"access_token": accessToken,
	}
	if cursor != "" {
		body["cursor"] = cursor
	}

	var resp SyncPage
	if err := c.post(ctx, "/transactions/sync", body, &resp); err != nil {
		return SyncPage{}, fmt.Errorf("sync transactions: %w", err)
	}
	return resp, nil
}

func (c *httpClient) AuthorizeTransfer(ctx context.Context, req TransferAuthorizationRequest) (string, error) {
	var resp struct {
		Authorization struct {
			ID string `json:"id"`
		} `json:"authorization"`
	}
	if err := c.post(ctx, "/transfer/authorization/create", req, &resp); err != nil {
		return "", fmt.Errorf("authorize transfer: %w", err)
	}
	return resp.Authorization.ID, nil
}

func (c *httpClient) CreateTransfer(ctx context.Context, req TransferCreateRequest) (Transfer, error) {
	var resp struct {
		Transfer Transfer `json:"transfer"`
	}
	if err := c.post(ctx, "/transfer/create", req, &resp); err != nil {
		return Transfer{}, fmt.Errorf("create transfer: %w", err)
	}
	return resp.Transfer, nil
}

func (c *httpClient) post(ctx context.Context, path string, body, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Aggregator-Client-Id", c.clientID)
	req.Header.Set("Aggregator-Secret", c.secret)

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return decodeAPIError(res)
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(res *http.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, apiErr)
	}
	if apiErr.Code == "" {
		apiErr.Code = "UNKNOWN"
	}
	return apiErr
}
