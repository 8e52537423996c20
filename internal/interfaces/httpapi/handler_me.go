package httpapi

import (
	"net/http"

	"github.com/riskibarqy/kart-league/internal/usecase"
)

type placeBidRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
}

type investRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

type setLineupRequest struct {
	PlayerIDs []string `json:"playerIds" validate:"dive,required"`
}

type saleDTO struct {
	PlayerID string `json:"playerId"`
	Credited int64  `json:"credited"`
	Currency int64  `json:"currency"`
}

type buyoutDTO struct {
	PlayerID       string `json:"playerId"`
	PreviousOwner  string `json:"previousOwner"`
	Price          int64  `json:"price"`
	RefundedAmount int64  `json:"refundedAmount"`
	Currency       int64  `json:"currency"`
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMe")
	defer span.End()

	userID, err := requireSession(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	acc, err := h.ledgerService.GetAccount(ctx, userID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, accountToDTO(acc))
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PlaceBid")
	defer span.End()

	userID, err := requireSession(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req placeBidRequest
	if err := h.decodeAndValidate(r.WithContext(ctx), &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	bid, err := h.bidService.PlaceBid(ctx, usecase.PlaceBidInput{
		UserID:   userID,
		PlayerID: req.PlayerID,
		Amount:   req.Amount,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "place bid failed", "user_id", userID, "player_id", req.PlayerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, bidDTO{PlayerID: req.PlayerID, Amount: bid.Amount, PlacedAt: bid.PlacedAt})
}

func (h *Handler) CancelBid(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CancelBid")
	defer span.End()

	userID, err := requireSession(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	playerID, err := pathID(r, "playerID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.bidService.CancelBid(ctx, userID, playerID); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]string{"playerId": playerID, "status": "cancelled"})
}

func (h *Handler) SellPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SellPlayer")
	defer span.End()

	userID, err := requireSession(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	playerID, err := pathID(r, "playerID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := h.rosterService.Sell(ctx, userID, playerID)
	if err != nil {
		h.logger.WarnContext(ctx, "sell player failed", "user_id", userID, "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, saleDTO{PlayerID: res.PlayerID, Credited: res.Credited, Currency: res.Currency})
}

func (h *Handler) BuyoutPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.BuyoutPlayer")
	defer span.End()

	userID, err := requireSession(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	playerID, err := pathID(r, "playerID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := h.rosterService.Buyout(ctx, userID, playerID)
	if err != nil {
		h.logger.WarnContext(ctx, "buyout failed", "user_id", userID, "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, buyoutDTO{
		PlayerID:       res.PlayerID,
		PreviousOwner:  res.PreviousOwner,
		Price:          res.Price,
		RefundedAmount: res.RefundedAmount,
		Currency:       res.Currency,
	})
}

func (h *Handler) InvestInPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.InvestInPlayer")
	defer span.End()

	userID, err := requireSession(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	playerID, err := pathID(r, "playerID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req investRequest
	if err := h.decodeAndValidate(r.WithContext(ctx), &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	owned, err := h.rosterService.Invest(ctx, userID, playerID, req.Amount)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, ownedPlayerDTO{
		PlayerID:         owned.PlayerID,
		PurchasedAt:      owned.PurchasedAt,
		PurchasePrice:    owned.PurchasePrice,
		ClauseInvestment: owned.ClauseInvestment,
	})
}

func (h *Handler) SetLineup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetLineup")
	defer span.End()

	userID, err := requireSession(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req setLineupRequest
	if err := h.decodeAndValidate(r.WithContext(ctx), &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	roster, err := h.rosterService.SetLineup(ctx, userID, req.PlayerIDs)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, rosterToDTO(roster))
}
