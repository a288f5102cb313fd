package http

import (
	"net/http"
	"time"

	"tally/internal/bus"
	"tally/internal/core"
)

type accountJSON struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	BalanceCents int64  `json:"balance_cents"`
	LastFour     string `json:"last_four,omitempty"`
	IsActive     bool   `json:"is_active"`
	Verified     bool   `json:"verified"`
	CreatedAt    string `json:"created_at"`
}

func toAccountJSON(a core.Account) accountJSON {
	return accountJSON{
		ID:           a.ID,
		Name:         a.Name,
		Type:         string(a.Type),
		BalanceCents: a.Balance.Cents,
		LastFour:     a.LastFour,
		IsActive:     a.IsActive,
		Verified:     a.Verified,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
	}
}

type transactionJSON struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"account_id"`
	Description string `json:"description"`
	Notes       string `json:"notes,omitempty"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Description: t.Description,
		Notes:       t.Notes,
		Category:    string(t.Category),
		AmountCents: t.Amount.Cents,
		Date:        t.Date.ISO(),
	}
}

type allocationJSON struct {
	ID            int64  `json:"id"`
	FromAccountID int64  `json:"from_account_id"`
	Type          string `json:"type"`
	AmountCents   int64  `json:"amount_cents"`
	Description   string `json:"description"`
	Date          string `json:"date"`
}

func toAllocationJSON(a core.SavingsAllocation) allocationJSON {
	return allocationJSON{
		ID:            a.ID,
		FromAccountID: a.FromAccountID,
		Type:          string(a.Type),
		AmountCents:   a.Amount.Cents,
		Description:   a.Description,
		Date:          a.Date.ISO(),
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, userID string) {
	accounts, err := s.ledger.Accounts(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]accountJSON, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request, userID string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	acc, err := s.ledger.Account(r.Context(), userID, id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountJSON(acc))
}

type createAccountRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	BalanceCents int64  `json:"balance_cents"`
	Balance      string `json:"balance,omitempty"`
	LastFour     string `json:"last_four,omitempty"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request, userID string) {
	var req createAccountRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	cents := req.BalanceCents
	if req.Balance != "" {
		parsed, err := core.ParseSignedToCents(req.Balance)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid balance: "+err.Error())
			return
		}
		cents = parsed
	}

	acc, err := s.ledger.CreateAccount(r.Context(), userID, core.AccountParams{
		Name:     req.Name,
		Type:     core.AccountType(req.Type),
		Balance:  core.Money{Cents: cents},
		LastFour: req.LastFour,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountJSON(acc))
}

type updateAccountRequest struct {
	Name         *string `json:"name"`
	Type         *string `json:"type"`
	BalanceCents *int64  `json:"balance_cents"`
	LastFour     *string `json:"last_four"`
	IsActive     *bool   `json:"is_active"`
	Verified     *bool   `json:"verified"`
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request, userID string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	var req updateAccountRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	upd := core.AccountUpdate{
		Name:     req.Name,
		LastFour: req.LastFour,
		IsActive: req.IsActive,
		Verified: req.Verified,
	}
	if req.Type != nil {
		t := core.AccountType(*req.Type)
		upd.Type = &t
	}
	if req.BalanceCents != nil {
		m := core.Money{Cents: *req.BalanceCents}
		upd.Balance = &m
	}

	acc, err := s.ledger.UpdateAccount(r.Context(), userID, id, upd)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountJSON(acc))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	txs, ok := s.txCache.Get(userID)
	if !ok {
		var err error
		txs, err = s.ledger.Transactions(r.Context(), userID)
		if err != nil {
			respondError(w, err)
			return
		}
		s.txCache.Set(userID, txs)
	}
	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

type createTransactionRequest struct {
	AccountID   int64  `json:"account_id"`
	Description string `json:"description"`
	Notes       string `json:"notes,omitempty"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount,omitempty"`
	Date        string `json:"date,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	var req createTransactionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	cents := req.AmountCents
	if req.Amount != "" {
		parsed, err := core.ParseSignedToCents(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
			return
		}
		cents = parsed
	}

	params := core.TransactionParams{
		AccountID:   req.AccountID,
		Description: req.Description,
		Notes:       req.Notes,
		Category:    core.Category(req.Category),
		Amount:      core.Money{Cents: cents},
	}
	if req.Date != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		params.Date = d
	}

	tx, err := s.ledger.CreateTransaction(r.Context(), userID, params)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionJSON(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	removed, err := s.ledger.DeleteTransaction(r.Context(), userID, id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handleListSavings(w http.ResponseWriter, r *http.Request, userID string) {
	allocs, err := s.ledger.SavingsAllocations(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]allocationJSON, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, toAllocationJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

type createAllocationRequest struct {
	FromAccountID int64  `json:"from_account_id"`
	Type          string `json:"type"`
	AmountCents   int64  `json:"amount_cents"`
	Amount        string `json:"amount,omitempty"`
	Description   string `json:"description"`
	Date          string `json:"date,omitempty"`
}

func (s *Server) handleCreateSavings(w http.ResponseWriter, r *http.Request, userID string) {
	var req createAllocationRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	cents := req.AmountCents
	if req.Amount != "" {
		parsed, err := core.ParseSignedToCents(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
			return
		}
		cents = parsed
	}

	params := core.AllocationParams{
		FromAccountID: req.FromAccountID,
		Type:          core.AllocationType(req.Type),
		Amount:        core.Money{Cents: cents},
		Description:   req.Description,
		Date:          core.Today(),
	}
	if req.Date != "" {
		d, err := core.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
			return
		}
		params.Date = d
	}

	alloc, err := s.ledger.CreateSavingsAllocation(r.Context(), userID, params)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationJSON(alloc))
}

type totalsJSON struct {
	TotalIncomeCents   int64 `json:"total_income_cents"`
	TotalExpensesCents int64 `json:"total_expenses_cents"`
	SavingsCents       int64 `json:"savings_cents"`
	SavingsOverdrawn   bool  `json:"savings_overdrawn"`
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request, userID string) {
	t := s.ledger.Totals(r.Context(), userID)
	writeJSON(w, http.StatusOK, totalsJSON{
		TotalIncomeCents:   t.IncomeCents,
		TotalExpensesCents: t.ExpenseCents,
		SavingsCents:       t.SavingsCents,
		SavingsOverdrawn:   t.SavingsOverdrawn,
	})
}

// handleCategories serves the closed category set for the UI's pickers.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, _ string) {
	writeJSON(w, http.StatusOK, core.Categories())
}

func (s *Server) handleChatClear(w http.ResponseWriter, r *http.Request, userID string) {
	s.events.Publish(bus.EventChatCleared)
	w.WriteHeader(http.StatusNoContent)
}
