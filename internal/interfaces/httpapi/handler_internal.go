package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/riskibarqy/kart-league/internal/usecase"
)

type createAccountRequest struct {
	ID       string `json:"id" validate:"omitempty,max=64"`
	Name     string `json:"name" validate:"required,max=100"`
	Currency *int64 `json:"currency" validate:"omitempty,gte=0"`
}

type adjustCurrencyRequest struct {
	Delta  int64  `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,max=200"`
}

type assignPlayerRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
	Price    int64  `json:"price" validate:"gte=0"`
}

type setupLeagueRequest struct {
	Accounts []starterRequest `json:"accounts" validate:"required,min=1,dive"`
}

type starterRequest struct {
	UserID    string   `json:"userId" validate:"required"`
	Name      string   `json:"name" validate:"required,max=100"`
	Currency  *int64   `json:"currency" validate:"omitempty,gte=0"`
	PlayerIDs []string `json:"playerIds" validate:"dive,required"`
	Lineup    []string `json:"lineup" validate:"dive,required"`
}

type recordScoreRequest struct {
	UserID   string `json:"userId" validate:"required"`
	PlayerID string `json:"playerId" validate:"required"`
	WeekID   string `json:"weekId" validate:"required"`
	Race1    *int   `json:"race1" validate:"required,gte=0"`
	Race2    *int   `json:"race2" validate:"required,gte=0"`
}

type rotationDTO struct {
	ID          string   `json:"id"`
	PlayerIDs   []string `json:"playerIds"`
	ClearedBids int      `json:"clearedBids"`
}

func (h *Handler) RunSettlementJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSettlementJob")
	defer span.End()

	outcome, err := h.settlementService.Settle(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "settlement job failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, outcomeToDTO(outcome))
}

func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshCatalog")
	defer span.End()

	size, err := h.playerService.RefreshCatalog(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]int{"catalogSize": size})
}

func (h *Handler) RunRotationJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRotationJob")
	defer span.End()

	res, err := h.marketService.Rotate(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "rotation job failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, rotationDTO{
		ID:          res.Snapshot.ID,
		PlayerIDs:   nonNilIDs(res.Snapshot.PlayerIDs),
		ClearedBids: res.ClearedBids,
	})
}

func (h *Handler) ListSettlementRuns(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSettlementRuns")
	defer span.End()

	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultSettlementRunLimit, maxSettlementRunLimit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	runs, err := h.settlementService.ListRuns(ctx, limit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	items := make([]settlementRunDTO, 0, len(runs))
	for _, run := range runs {
		items = append(items, settlementRunToDTO(run))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListPendingBids(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPendingBids")
	defer span.End()

	pending, err := h.bidService.Pending(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, pendingBidsToDTO(pending))
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListAccounts")
	defer span.End()

	accounts, err := h.ledgerService.ListAccounts(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	items := make([]accountDTO, 0, len(accounts))
	for _, acc := range accounts {
		items = append(items, accountToDTO(acc))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateAccount")
	defer span.End()

	var req createAccountRequest
	if err := h.decodeAndValidate(r.WithContext(ctx), &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	acc, err := h.ledgerService.CreateAccount(ctx, usecase.CreateAccountInput{
		ID:       req.ID,
		Name:     req.Name,
		Currency: req.Currency,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusCreated, accountToDTO(acc))
}

func (h *Handler) AdjustCurrency(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AdjustCurrency")
	defer span.End()

	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req adjustCurrencyRequest
	if err := h.decodeAndValidate(r.WithContext(ctx), &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	acc, err := h.ledgerService.AdjustCurrency(ctx, userID, req.Delta, req.Reason)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, accountToDTO(acc))
}

func (h *Handler) AssignPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AssignPlayer")
	defer span.End()

	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req assignPlayerRequest
	if err := h.decodeAndValidate(r.WithContext(ctx), &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	owned, err := h.ledgerService.AssignPlayer(ctx, usecase.AssignPlayerInput{
		UserID:   userID,
		PlayerID: req.PlayerID,
		Price:    req.Price,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusCreated, ownedPlayerDTO{
		PlayerID:         owned.PlayerID,
		PurchasedAt:      owned.PurchasedAt,
		PurchasePrice:    owned.PurchasePrice,
		ClauseInvestment: owned.ClauseInvestment,
	})
}

func (h *Handler) SetupLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetupLeague")
	defer span.End()

	var req setupLeagueRequest
	if err := h.decodeAndValidate(r.WithContext(ctx), &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	starters := make([]usecase.StarterAssignment, 0, len(req.Accounts))
	for _, item := range req.Accounts {
		starters = append(starters, usecase.StarterAssignment{
			UserID:    item.UserID,
			Name:      item.Name,
			Currency:  item.Currency,
			PlayerIDs: item.PlayerIDs,
			Lineup:    item.Lineup,
		})
	}

	accounts, err := h.ledgerService.SetupLeague(ctx, starters)
	if err != nil {
		h.logger.WarnContext(ctx, "league setup failed", "accounts", len(starters), "error", err)
		writeError(ctx, w, err)
		return
	}
	items := make([]accountDTO, 0, len(accounts))
	for _, acc := range accounts {
		items = append(items, accountToDTO(acc))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) RecordScore(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordScore")
	defer span.End()

	var req recordScoreRequest
	if err := h.decodeAndValidate(r.WithContext(ctx), &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	err := h.ledgerService.RecordWeeklyScore(ctx, usecase.RecordScoreInput{
		UserID:   req.UserID,
		PlayerID: req.PlayerID,
		WeekID:   req.WeekID,
		Race1:    *req.Race1,
		Race2:    *req.Race2,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusCreated, map[string]any{
		"userId":   req.UserID,
		"playerId": req.PlayerID,
		"weekId":   req.WeekID,
		"total":    *req.Race1 + *req.Race2,
	})
}

func (h *Handler) ImportLedger(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ImportLedger")
	defer span.End()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBodyBytes))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: read import body: %v", usecase.ErrInvalidInput, err))
		return
	}

	accounts, err := h.ledgerService.ImportRecords(ctx, body)
	if err != nil {
		h.logger.WarnContext(ctx, "ledger import failed", "bytes", len(body), "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]int{"imported": len(accounts)})
}

func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ExportLedger")
	defer span.End()

	data, err := h.ledgerService.ExportRecords(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, json.RawMessage(data))
}
