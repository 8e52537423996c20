package httpapi

import (
	"maps"
	"slices"
	"time"

	"github.com/riskibarqy/kart-league/internal/domain/auction"
	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/player"
	"github.com/riskibarqy/kart-league/internal/usecase"
)

type playerDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Team     string `json:"team"`
	BaseCost int64  `json:"baseCost"`
	MMR      int    `json:"mmr"`
	PeakMMR  int    `json:"peakMmr"`
	Rank     string `json:"rank,omitempty"`
}

type marketPlayerDTO struct {
	playerDTO
	HighestBid int64 `json:"highestBid"`
	BidCount   int   `json:"bidCount"`
}

type marketDTO struct {
	ID          string            `json:"id"`
	PublishedAt time.Time         `json:"publishedAt"`
	Players     []marketPlayerDTO `json:"players"`
}

type ownedPlayerDTO struct {
	PlayerID         string    `json:"playerId"`
	PurchasedAt      time.Time `json:"purchasedAt"`
	PurchasePrice    int64     `json:"purchasePrice"`
	ClauseInvestment int64     `json:"clauseInvestment"`
}

type rosterDTO struct {
	Lineup []string `json:"lineup"`
	Bench  []string `json:"bench"`
}

type bidDTO struct {
	PlayerID string    `json:"playerId"`
	Amount   int64     `json:"amount"`
	PlacedAt time.Time `json:"placedAt"`
}

type accountDTO struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Currency     int64            `json:"currency"`
	Players      []ownedPlayerDTO `json:"players"`
	Roster       rosterDTO        `json:"roster"`
	Bids         []bidDTO         `json:"bids"`
	LineupPoints int              `json:"lineupPoints"`
}

type standingDTO struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Points     int    `json:"points"`
	Currency   int64  `json:"currency"`
	LineupSize int    `json:"lineupSize"`
}

type awardDTO struct {
	PlayerID string `json:"playerId"`
	UserID   string `json:"userId"`
	Amount   int64  `json:"amount"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

type settlementRunDTO struct {
	ID          string     `json:"id"`
	SettledAt   time.Time  `json:"settledAt"`
	Applied     int        `json:"applied"`
	Skipped     int        `json:"skipped"`
	ClearedBids int        `json:"clearedBids"`
	Awards      []awardDTO `json:"awards"`
}

type overviewDTO struct {
	CatalogSize    int               `json:"catalogSize"`
	Market         *marketDTO        `json:"market,omitempty"`
	Standings      []standingDTO     `json:"standings"`
	LastSettlement *settlementRunDTO `json:"lastSettlement,omitempty"`
}

type pendingBidDTO struct {
	UserID   string    `json:"userId"`
	Amount   int64     `json:"amount"`
	PlacedAt time.Time `json:"placedAt"`
}

type pendingBidsDTO struct {
	PlayerID string          `json:"playerId"`
	Bids     []pendingBidDTO `json:"bids"`
}

func playerToDTO(p player.Player) playerDTO {
	return playerDTO{
		ID:       p.ID,
		Name:     p.Name,
		Team:     p.Team,
		BaseCost: p.BaseCost,
		MMR:      p.MMR,
		PeakMMR:  p.PeakMMR,
		Rank:     p.Rank,
	}
}

func marketToDTO(view usecase.MarketView) marketDTO {
	players := make([]marketPlayerDTO, 0, len(view.Players))
	for _, item := range view.Players {
		players = append(players, marketPlayerDTO{
			playerDTO:  playerToDTO(item.Player),
			HighestBid: item.HighestBid,
			BidCount:   item.BidCount,
		})
	}
	return marketDTO{
		ID:          view.Snapshot.ID,
		PublishedAt: view.Snapshot.PublishedAt,
		Players:     players,
	}
}

func accountToDTO(acc ledger.Account) accountDTO {
	players := make([]ownedPlayerDTO, 0, len(acc.Players))
	for _, owned := range acc.Players {
		players = append(players, ownedPlayerDTO{
			PlayerID:         owned.PlayerID,
			PurchasedAt:      owned.PurchasedAt,
			PurchasePrice:    owned.PurchasePrice,
			ClauseInvestment: owned.ClauseInvestment,
		})
	}

	bids := make([]bidDTO, 0, len(acc.Bids))
	for _, playerID := range slices.Sorted(maps.Keys(acc.Bids)) {
		bid := acc.Bids[playerID]
		bids = append(bids, bidDTO{PlayerID: playerID, Amount: bid.Amount, PlacedAt: bid.PlacedAt})
	}

	return accountDTO{
		ID:           acc.ID,
		Name:         acc.Name,
		Currency:     acc.Currency,
		Players:      players,
		Roster:       rosterToDTO(acc.Roster),
		Bids:         bids,
		LineupPoints: acc.LineupPoints(),
	}
}

func rosterToDTO(r ledger.Roster) rosterDTO {
	return rosterDTO{
		Lineup: nonNilIDs(r.Lineup),
		Bench:  nonNilIDs(r.Bench),
	}
}

func standingsToDTO(items []usecase.Standing) []standingDTO {
	out := make([]standingDTO, 0, len(items))
	for _, s := range items {
		out = append(out, standingDTO{
			Rank:       s.Rank,
			UserID:     s.UserID,
			Name:       s.Name,
			Points:     s.Points,
			Currency:   s.Currency,
			LineupSize: s.LineupSize,
		})
	}
	return out
}

func settlementRunToDTO(run ledger.SettlementRun) settlementRunDTO {
	applied, skipped := run.Counts()
	awards := make([]awardDTO, 0, len(run.Awards))
	for _, a := range run.Awards {
		awards = append(awards, awardDTO{
			PlayerID: a.PlayerID,
			UserID:   a.UserID,
			Amount:   a.Amount,
			Status:   string(a.Status),
			Reason:   string(a.Reason),
		})
	}
	return settlementRunDTO{
		ID:          run.ID,
		SettledAt:   run.SettledAt,
		Applied:     applied,
		Skipped:     skipped,
		ClearedBids: run.ClearedBids,
		Awards:      awards,
	}
}

// outcomeToDTO reports skipped awards in the body; they never fail the request.
func outcomeToDTO(outcome auction.Outcome) settlementRunDTO {
	return settlementRunToDTO(outcome.Run(outcome.RunID))
}

func overviewToDTO(o usecase.Overview) overviewDTO {
	out := overviewDTO{
		CatalogSize: o.CatalogSize,
		Standings:   standingsToDTO(o.Standings),
	}
	if o.Market != nil {
		m := marketToDTO(*o.Market)
		out.Market = &m
	}
	if o.LastSettlement != nil {
		run := settlementRunToDTO(*o.LastSettlement)
		out.LastSettlement = &run
	}
	return out
}

func pendingBidsToDTO(pending map[string][]auction.Bid) []pendingBidsDTO {
	out := make([]pendingBidsDTO, 0, len(pending))
	for _, playerID := range slices.Sorted(maps.Keys(pending)) {
		bids := make([]pendingBidDTO, 0, len(pending[playerID]))
		for _, b := range pending[playerID] {
			bids = append(bids, pendingBidDTO{UserID: b.UserID, Amount: b.Amount, PlacedAt: b.PlacedAt})
		}
		out = append(out, pendingBidsDTO{PlayerID: playerID, Bids: bids})
	}
	return out
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
