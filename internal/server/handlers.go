package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nikhil/bankbridge/internal/domain"
	"github.com/nikhil/bankbridge/internal/service"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger    *slog.Logger
	accounts  *service.AccountService
	transfers *service.TransferService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, accounts *service.AccountService, transfers *service.TransferService) *APIHandlers {
	return &APIHandlers{
		logger:    logger,
		accounts:  accounts,
		transfers: transfers,
	}
}

func (h *APIHandlers) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	list, err := h.accounts.ListAccounts(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list accounts", "error", err, "userId", userID)
		writeError(w, http.StatusBadGateway, "failed to fetch accounts")
		return
	}

	resp := listAccountsResponse{
		Data:                make([]accountResponse, 0, len(list.Accounts)),
		TotalBanks:          list.TotalBanks,
		TotalCurrentBalance: list.TotalCurrentBalance,
	}
	for _, acct := range list.Accounts {
		resp.Data = append(resp.Data, toAccountResponse(acct))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleAccountDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	bankLinkID := strings.TrimPrefix(r.URL.Path, "/accounts/")
	bankLinkID = strings.Trim(bankLinkID, "/")
	if bankLinkID == "" {
		writeError(w, http.StatusBadRequest, "bank link ID is required")
		return
	}

	detail, err := h.accounts.GetAccount(r.Context(), bankLinkID)
	if err != nil {
		h.logger.Error("failed to fetch account", "error", err, "bankLinkId", bankLinkID)
		writeError(w, http.StatusBadGateway, "failed to fetch account")
		return
	}
	if detail == nil {
		// Fail-soft sentinel: the account could not be resolved.
		respondJSON(w, http.StatusNotFound, accountDetailResponse{Data: nil, Transactions: []transactionResponse{}})
		return
	}

	account := toAccountResponse(detail.Account)
	resp := accountDetailResponse{
		Data:         &account,
		Transactions: make([]transactionResponse, 0, len(detail.Transactions)),
	}
	for _, tx := range detail.Transactions {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(tx))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleTransfers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload transferRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	transfer, err := h.transfers.CreateTransfer(r.Context(), service.TransferInput{
		AccessToken:      payload.AccessToken,
		AccountID:        payload.AccountID,
		FundingAccountID: payload.FundingAccountID,
		Type:             payload.Type,
		Network:          payload.Network,
		Amount:           payload.Amount,
		ACHClass:         payload.ACHClass,
		Description:      payload.Description,
		LegalName:        payload.LegalName,
		SenderBankID:     payload.SenderBankID,
		ReceiverBankID:   payload.ReceiverBankID,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransfer) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create transfer", "error", err)
		writeError(w, http.StatusBadGateway, "failed to create transfer")
		return
	}

	respondJSON(w, http.StatusCreated, transferResponse{
		ID:          transfer.ID,
		Status:      transfer.Status,
		Amount:      transfer.Amount,
		Description: transfer.Description,
		Created:     transfer.Created,
	})
}

// --- Request & Response DTOs ---

type accountResponse struct {
	ID               string          `json:"id"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	CurrentBalance   decimal.Decimal `json:"currentBalance"`
	InstitutionID    string          `json:"institutionId"`
	Name             string          `json:"name"`
	OfficialName     string          `json:"officialName"`
	Mask             string          `json:"mask"`
	Type             string          `json:"type"`
	Subtype          string          `json:"subtype"`
	BankLinkID       string          `json:"bankLinkId"`
	ShareableID      string          `json:"shareableId"`
}

type listAccountsResponse struct {
	Data                []accountResponse `json:"data"`
	TotalBanks          int               `json:"totalBanks"`
	TotalCurrentBalance decimal.Decimal   `json:"totalCurrentBalance"`
}

type transactionResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	PaymentChannel string          `json:"paymentChannel"`
	Type           string          `json:"type"`
	AccountID      string          `json:"accountId"`
	Amount         decimal.Decimal `json:"amount"`
	Pending        bool            `json:"pending"`
	Category       string          `json:"category"`
	Date           string          `json:"date"`
	Image          string          `json:"image,omitempty"`
}

type accountDetailResponse struct {
	Data         *accountResponse      `json:"data"`
	Transactions []transactionResponse `json:"transactions"`
}

type transferRequest struct {
	AccessToken      string `json:"accessToken"`
	AccountID        string `json:"accountId"`
	FundingAccountID string `json:"fundingAccountId"`
	Type             string `json:"type"`
	Network          string `json:"network"`
	Amount           string `json:"amount"`
	ACHClass         string `json:"achClass"`
	Description      string `json:"description"`
	LegalName        string `json:"legalName"`
	SenderBankID     string `json:"senderBankId"`
	ReceiverBankID   string `json:"receiverBankId"`
}

type transferResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Created     string `json:"created"`
}

// --- Helpers ---

func toAccountResponse(acct domain.AccountSnapshot) accountResponse {
	return accountResponse{
		ID:               acct.ID,
		AvailableBalance: acct.AvailableBalance,
		CurrentBalance:   acct.CurrentBalance,
		InstitutionID:    acct.InstitutionID,
		Name:             acct.Name,
		OfficialName:     acct.OfficialName,
		Mask:             acct.Mask,
		Type:             acct.Type,
		Subtype:          acct.Subtype,
		BankLinkID:       acct.BankLinkID,
		ShareableID:      acct.ShareableID,
	}
}

func toTransactionResponse(tx domain.TransactionRecord) transactionResponse {
	return transactionResponse{
		ID:             tx.ID,
		Name:           tx.Name,
		PaymentChannel: tx.PaymentChannel,
		Type:           string(tx.Direction),
		AccountID:      tx.AccountID,
		Amount:         tx.Amount,
		Pending:        tx.Pending,
		Category:       tx.Category,
		Date:           formatDate(tx.Date),
		Image:          tx.Image,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
