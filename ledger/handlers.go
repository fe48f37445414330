package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"ledger-backend/auth"
)

// --- Models ---

type TransferRequest struct {
	ReceiverID int64 `json:"receiver_id"`
	Amount     int64 `json:"amount"`
}

// --- Handlers ---

type Env struct {
	Store  Store
	Engine *Engine
}

// BalanceHandler returns the authenticated account's current balance.
func (env *Env) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	balance, err := env.Store.Balance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			auth.RespondWithError(w, http.StatusNotFound, "Unknown account")
			return
		}
		auth.RespondWithError(w, http.StatusInternalServerError, "Failed to get balance")
		return
	}

	auth.JSON(w, http.StatusOK, balance)
}

// TransferHandler settles a transfer from the authenticated account.
func (env *Env) TransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := env.Engine.Execute(r.Context(), userID, req.ReceiverID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			auth.RespondWithError(w, http.StatusBadRequest, "Transaction amount must be positive")
		case errors.Is(err, ErrUnknownAccount):
			auth.RespondWithError(w, http.StatusNotFound, "Unknown account")
		case errors.Is(err, ErrUnknownReceiver):
			auth.RespondWithError(w, http.StatusNotFound, "Unknown receiver")
		case errors.Is(err, ErrInsufficientFunds):
			auth.RespondWithError(w, http.StatusConflict, "Insufficient funds")
		default:
			auth.RespondWithError(w, http.StatusInternalServerError, "Transfer failed")
		}
		return
	}

	auth.JSON(w, http.StatusOK, record)
}

// TransactionsHandler lists the authenticated account's transaction history,
// ordered by settlement time, paginated with skip/limit.
func (env *Env) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserIDFromContext(r)
	if err != nil {
		auth.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	skip := 0
	if v := r.URL.Query().Get("skip"); v != "" {
		skip, err = strconv.Atoi(v)
		if err != nil {
			auth.RespondWithError(w, http.StatusBadRequest, "Invalid skip")
			return
		}
	}
	limit := DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			auth.RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
	}

	records, err := env.Store.Transactions(r.Context(), userID, skip, limit)
	if err != nil {
		auth.RespondWithError(w, http.StatusInternalServerError, "Failed to get transactions")
		return
	}
	if records == nil {
		records = []Record{}
	}

	auth.JSON(w, http.StatusOK, records)
}
