package postgres

import (
	"database/sql"
	"sort"
	"time"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/market"
)

const (
	slotLineup = "lineup"
	slotBench  = "bench"
)

type accountTableModel struct {
	ID        int64     `db:"id,readonly"`
	PublicID  string    `db:"public_id"`
	Name      string    `db:"name"`
	Currency  int64     `db:"currency"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type accountPlayerTableModel struct {
	AccountID        string       `db:"account_public_id"`
	PlayerID         string       `db:"player_public_id"`
	PurchasedAt      sql.NullTime `db:"purchased_at"`
	PurchasePrice    int64        `db:"purchase_price"`
	ClauseInvestment int64        `db:"clause_investment"`
	OwnedOrder       int          `db:"owned_order"`
	Slot             string       `db:"slot"`
	SlotOrder        int          `db:"slot_order"`
}

type accountBidTableModel struct {
	AccountID string       `db:"account_public_id"`
	PlayerID  string       `db:"player_public_id"`
	Amount    int64        `db:"amount"`
	PlacedAt  sql.NullTime `db:"placed_at"`
}

type weeklyScoreTableModel struct {
	AccountID string `db:"account_public_id"`
	PlayerID  string `db:"player_public_id"`
	WeekID    string `db:"week_id"`
	Race1     int    `db:"race1"`
	Race2     int    `db:"race2"`
}

type marketSnapshotTableModel struct {
	ID          int64     `db:"id,readonly"`
	PublicID    string    `db:"public_id"`
	PublishedAt time.Time `db:"published_at"`
	IsCurrent   bool      `db:"is_current"`
}

type marketSnapshotPlayerTableModel struct {
	SnapshotID string `db:"snapshot_public_id"`
	PlayerID   string `db:"player_public_id"`
	Position   int    `db:"position"`
}

type settlementRunTableModel struct {
	ID          int64     `db:"id,readonly"`
	PublicID    string    `db:"public_id"`
	SettledAt   time.Time `db:"settled_at"`
	ClearedBids int       `db:"cleared_bids"`
}

type settlementAwardTableModel struct {
	RunID    string `db:"run_public_id"`
	Position int    `db:"position"`
	PlayerID string `db:"player_public_id"`
	UserID   string `db:"user_public_id"`
	Amount   int64  `db:"amount"`
	Status   string `db:"status"`
	Reason   string `db:"reason"`
}

type rosterSlot struct {
	name  string
	order int
}

type accountRows struct {
	players []accountPlayerTableModel
	bids    []accountBidTableModel
	scores  []weeklyScoreTableModel
}

func accountToRows(acc ledger.Account) (accountTableModel, accountRows) {
	row := accountTableModel{
		PublicID:  acc.ID,
		Name:      acc.Name,
		Currency:  acc.Currency,
		CreatedAt: acc.CreatedAt,
		UpdatedAt: acc.UpdatedAt,
	}

	slotOf := make(map[string]rosterSlot, len(acc.Players))
	for i, id := range acc.Roster.Lineup {
		slotOf[id] = rosterSlot{name: slotLineup, order: i}
	}
	for i, id := range acc.Roster.Bench {
		slotOf[id] = rosterSlot{name: slotBench, order: i}
	}

	var children accountRows
	for i, p := range acc.Players {
		slot, ok := slotOf[p.PlayerID]
		if !ok {
			slot = rosterSlot{name: slotBench, order: len(acc.Roster.Bench) + i}
		}
		children.players = append(children.players, accountPlayerTableModel{
			AccountID:        acc.ID,
			PlayerID:         p.PlayerID,
			PurchasedAt:      nullTime(p.PurchasedAt),
			PurchasePrice:    p.PurchasePrice,
			ClauseInvestment: p.ClauseInvestment,
			OwnedOrder:       i,
			Slot:             slot.name,
			SlotOrder:        slot.order,
		})
	}

	bidIDs := make([]string, 0, len(acc.Bids))
	for id := range acc.Bids {
		bidIDs = append(bidIDs, id)
	}
	sort.Strings(bidIDs)
	for _, id := range bidIDs {
		bid := acc.Bids[id]
		children.bids = append(children.bids, accountBidTableModel{
			AccountID: acc.ID,
			PlayerID:  id,
			Amount:    bid.Amount,
			PlacedAt:  nullTime(bid.PlacedAt),
		})
	}

	for playerID, weeks := range acc.WeeklyScores {
		for weekID, score := range weeks {
			children.scores = append(children.scores, weeklyScoreTableModel{
				AccountID: acc.ID,
				PlayerID:  playerID,
				WeekID:    weekID,
				Race1:     score.Race1,
				Race2:     score.Race2,
			})
		}
	}
	sort.Slice(children.scores, func(i, j int) bool {
		a, b := children.scores[i], children.scores[j]
		if a.PlayerID != b.PlayerID {
			return a.PlayerID < b.PlayerID
		}
		return a.WeekID < b.WeekID
	})

	return row, children
}

func accountFromRows(row accountTableModel, children accountRows) ledger.Account {
	acc := ledger.NewAccount(row.PublicID, row.Name, row.Currency, row.CreatedAt.UTC())
	acc.UpdatedAt = row.UpdatedAt.UTC()

	players := append([]accountPlayerTableModel(nil), children.players...)
	sort.Slice(players, func(i, j int) bool { return players[i].OwnedOrder < players[j].OwnedOrder })
	for _, p := range players {
		acc.Players = append(acc.Players, ledger.OwnedPlayer{
			PlayerID:         p.PlayerID,
			PurchasedAt:      timeOrZero(p.PurchasedAt),
			PurchasePrice:    p.PurchasePrice,
			ClauseInvestment: p.ClauseInvestment,
		})
	}

	sort.SliceStable(players, func(i, j int) bool { return players[i].SlotOrder < players[j].SlotOrder })
	for _, p := range players {
		if p.Slot == slotLineup {
			acc.Roster.Lineup = append(acc.Roster.Lineup, p.PlayerID)
		} else {
			acc.Roster.Bench = append(acc.Roster.Bench, p.PlayerID)
		}
	}

	for _, b := range children.bids {
		acc.Bids[b.PlayerID] = ledger.Bid{Amount: b.Amount, PlacedAt: timeOrZero(b.PlacedAt)}
	}
	for _, s := range children.scores {
		_ = acc.RecordScore(s.PlayerID, s.WeekID, ledger.RaceScore{Race1: s.Race1, Race2: s.Race2})
	}
	return acc
}

func snapshotFromRows(row marketSnapshotTableModel, players []marketSnapshotPlayerTableModel) market.Snapshot {
	sort.Slice(players, func(i, j int) bool { return players[i].Position < players[j].Position })
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.PlayerID)
	}
	return market.Snapshot{ID: row.PublicID, PlayerIDs: ids, PublishedAt: row.PublishedAt.UTC()}
}

func runToRows(run ledger.SettlementRun) (settlementRunTableModel, []settlementAwardTableModel) {
	row := settlementRunTableModel{PublicID: run.ID, SettledAt: run.SettledAt, ClearedBids: run.ClearedBids}
	awards := make([]settlementAwardTableModel, 0, len(run.Awards))
	for i, a := range run.Awards {
		awards = append(awards, settlementAwardTableModel{
			RunID:    run.ID,
			Position: i,
			PlayerID: a.PlayerID,
			UserID:   a.UserID,
			Amount:   a.Amount,
			Status:   string(a.Status),
			Reason:   string(a.Reason),
		})
	}
	return row, awards
}

func runFromRows(row settlementRunTableModel, awards []settlementAwardTableModel) ledger.SettlementRun {
	sort.Slice(awards, func(i, j int) bool { return awards[i].Position < awards[j].Position })
	run := ledger.SettlementRun{
		ID:          row.PublicID,
		SettledAt:   row.SettledAt.UTC(),
		ClearedBids: row.ClearedBids,
		Awards:      make([]ledger.AwardRecord, 0, len(awards)),
	}
	for _, a := range awards {
		run.Awards = append(run.Awards, ledger.AwardRecord{
			PlayerID: a.PlayerID,
			UserID:   a.UserID,
			Amount:   a.Amount,
			Status:   ledger.AwardStatus(a.Status),
			Reason:   ledger.Reason(a.Reason),
		})
	}
	return run
}
