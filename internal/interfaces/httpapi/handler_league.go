package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/riskibarqy/kart-league/internal/usecase"
)

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPlayers")
	defer span.End()

	filter := usecase.PlayerFilter{Team: r.URL.Query().Get("team")}
	if raw := strings.TrimSpace(r.URL.Query().Get("maxCost")); raw != "" {
		maxCost, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || maxCost <= 0 {
			writeError(ctx, w, fmt.Errorf("%w: maxCost must be a positive integer", usecase.ErrInvalidInput))
			return
		}
		filter.MaxCost = maxCost
	}

	players, err := h.playerService.List(ctx, filter)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items := make([]playerDTO, 0, len(players))
	for _, p := range players {
		items = append(items, playerToDTO(p))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayer")
	defer span.End()

	playerID, err := pathID(r, "playerID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	p, err := h.playerService.Get(ctx, playerID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, playerToDTO(p))
}

func (h *Handler) GetMarket(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMarket")
	defer span.End()

	view, ok, err := h.marketService.Current(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: no market has been published yet", usecase.ErrNotFound))
		return
	}
	writeSuccess(ctx, w, http.StatusOK, marketToDTO(view))
}

func (h *Handler) ListStandings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListStandings")
	defer span.End()

	standings, err := h.standingsService.Compute(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, standingsToDTO(standings))
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetOverview")
	defer span.End()

	overview, err := h.overviewService.Get(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "load overview failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, overviewToDTO(overview))
}
