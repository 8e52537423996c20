package ledger

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"
)

// OwnedPlayer records how an account acquired a player. PurchasePrice is the
// amount actually paid and is the refund basis on sale and buyout.
type OwnedPlayer struct {
	PlayerID         string
	PurchasedAt      time.Time
	PurchasePrice    int64
	ClauseInvestment int64
}

// BuyoutPrice is what another account pays to take this player.
func (o OwnedPlayer) BuyoutPrice(baseCost int64) int64 {
	return baseCost + o.ClauseInvestment
}

// Refund is what the owner receives when the player is bought out.
func (o OwnedPlayer) Refund() int64 {
	return o.PurchasePrice + o.ClauseInvestment
}

// Roster partitions owned players into scoring (Lineup) and non-scoring (Bench) slots.
type Roster struct {
	Lineup []string
	Bench  []string
}

type Bid struct {
	Amount   int64
	PlacedAt time.Time
}

type RaceScore struct {
	Race1 int
	Race2 int
}

func (s RaceScore) Total() int {
	return s.Race1 + s.Race2
}

// Account is one user's ledger entry.
type Account struct {
	ID       string
	Name     string
	Currency int64
	Players  []OwnedPlayer
	Roster   Roster
	// Bids holds at most one pending bid per player.
	Bids map[string]Bid
	// WeeklyScores is playerID -> weekID -> score, append-only.
	WeeklyScores map[string]map[string]RaceScore
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewAccount(id, name string, currency int64, now time.Time) Account {
	return Account{
		ID:           id,
		Name:         name,
		Currency:     currency,
		Bids:         make(map[string]Bid),
		WeeklyScores: make(map[string]map[string]RaceScore),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (a Account) Clone() Account {
	out := a
	out.Players = slices.Clone(a.Players)
	out.Roster = Roster{
		Lineup: slices.Clone(a.Roster.Lineup),
		Bench:  slices.Clone(a.Roster.Bench),
	}
	out.Bids = maps.Clone(a.Bids)
	if out.Bids == nil {
		out.Bids = make(map[string]Bid)
	}
	out.WeeklyScores = make(map[string]map[string]RaceScore, len(a.WeeklyScores))
	for playerID, weeks := range a.WeeklyScores {
		out.WeeklyScores[playerID] = maps.Clone(weeks)
	}
	return out
}

func (a Account) Owned(playerID string) (OwnedPlayer, bool) {
	for _, p := range a.Players {
		if p.PlayerID == playerID {
			return p, true
		}
	}
	return OwnedPlayer{}, false
}

func (a Account) Owns(playerID string) bool {
	_, ok := a.Owned(playerID)
	return ok
}

// CommittedExcluding sums pending bids, skipping the given player.
func (a Account) CommittedExcluding(playerID string) int64 {
	var total int64
	for id, bid := range a.Bids {
		if id == playerID {
			continue
		}
		total += bid.Amount
	}
	return total
}

// AddPlayer grants ownership and places the player on the bench.
func (a *Account) AddPlayer(entry OwnedPlayer) {
	a.Players = append(a.Players, entry)
	a.Roster.Bench = append(a.Roster.Bench, entry.PlayerID)
	delete(a.Bids, entry.PlayerID)
}

// RemovePlayer drops ownership and the roster slot.
func (a *Account) RemovePlayer(playerID string) (OwnedPlayer, bool) {
	idx := slices.IndexFunc(a.Players, func(p OwnedPlayer) bool { return p.PlayerID == playerID })
	if idx < 0 {
		return OwnedPlayer{}, false
	}
	removed := a.Players[idx]
	a.Players = slices.Delete(a.Players, idx, idx+1)
	a.Roster.Lineup = slices.DeleteFunc(a.Roster.Lineup, func(id string) bool { return id == playerID })
	a.Roster.Bench = slices.DeleteFunc(a.Roster.Bench, func(id string) bool { return id == playerID })
	return removed, true
}

// ClearBids empties the pending bid map and returns how many bids were dropped.
func (a *Account) ClearBids() int {
	n := len(a.Bids)
	a.Bids = make(map[string]Bid)
	return n
}

// SetLineup moves the given owned players into the lineup; every other owned
// player goes to the bench in ownership order.
func (a *Account) SetLineup(playerIDs []string, rules Rules) error {
	if len(playerIDs) > rules.MaxLineup {
		return fmt.Errorf("%w: %d players, max %d", ErrLineupFull, len(playerIDs), rules.MaxLineup)
	}

	inLineup := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if _, dup := inLineup[id]; dup {
			return fmt.Errorf("duplicate lineup player %s", id)
		}
		if !a.Owns(id) {
			return fmt.Errorf("%w: %s", ErrNotOwned, id)
		}
		inLineup[id] = struct{}{}
	}

	bench := make([]string, 0, len(a.Players)-len(playerIDs))
	for _, p := range a.Players {
		if _, ok := inLineup[p.PlayerID]; !ok {
			bench = append(bench, p.PlayerID)
		}
	}
	a.Roster = Roster{Lineup: slices.Clone(playerIDs), Bench: bench}
	return nil
}

// RecordScore appends a weekly score; existing weeks are never overwritten.
func (a *Account) RecordScore(playerID, weekID string, score RaceScore) error {
	if a.WeeklyScores == nil {
		a.WeeklyScores = make(map[string]map[string]RaceScore)
	}
	weeks, ok := a.WeeklyScores[playerID]
	if !ok {
		weeks = make(map[string]RaceScore)
		a.WeeklyScores[playerID] = weeks
	}
	if _, exists := weeks[weekID]; exists {
		return fmt.Errorf("%w: player=%s week=%s", ErrScoreExists, playerID, weekID)
	}
	weeks[weekID] = score
	return nil
}

// LineupPoints sums every recorded week for players currently in the lineup.
func (a Account) LineupPoints() int {
	total := 0
	for _, id := range a.Roster.Lineup {
		for _, score := range a.WeeklyScores[id] {
			total += score.Total()
		}
	}
	return total
}

// Validate checks the per-account invariants.
func (a Account) Validate(rules Rules) error {
	if a.ID == "" {
		return fmt.Errorf("account id is required")
	}
	if a.Currency < 0 {
		return fmt.Errorf("%w: account %s currency %d", ErrInsufficientFunds, a.ID, a.Currency)
	}
	if len(a.Players) > rules.MaxOwnedPlayers {
		return fmt.Errorf("%w: account %s owns %d, max %d", ErrRosterFull, a.ID, len(a.Players), rules.MaxOwnedPlayers)
	}
	if len(a.Roster.Lineup) > rules.MaxLineup {
		return fmt.Errorf("%w: account %s lineup %d, max %d", ErrLineupFull, a.ID, len(a.Roster.Lineup), rules.MaxLineup)
	}

	owned := make(map[string]struct{}, len(a.Players))
	for _, p := range a.Players {
		if _, dup := owned[p.PlayerID]; dup {
			return fmt.Errorf("account %s owns %s twice", a.ID, p.PlayerID)
		}
		owned[p.PlayerID] = struct{}{}
	}

	slotted := make(map[string]struct{}, len(owned))
	for _, id := range append(slices.Clone(a.Roster.Lineup), a.Roster.Bench...) {
		if _, ok := owned[id]; !ok {
			return fmt.Errorf("account %s roster references unowned player %s", a.ID, id)
		}
		if _, dup := slotted[id]; dup {
			return fmt.Errorf("account %s roster lists %s twice", a.ID, id)
		}
		slotted[id] = struct{}{}
	}
	if len(slotted) != len(owned) {
		return fmt.Errorf("account %s roster does not cover every owned player", a.ID)
	}

	for id, bid := range a.Bids {
		if bid.Amount <= 0 {
			return fmt.Errorf("account %s bid on %s must be positive", a.ID, id)
		}
	}
	return nil
}

// ValidateOwnership checks that no player is owned by more than one account.
func ValidateOwnership(accounts []Account) error {
	owner := make(map[string]string)
	for _, a := range accounts {
		for _, p := range a.Players {
			if prev, ok := owner[p.PlayerID]; ok && prev != a.ID {
				return fmt.Errorf("player %s owned by both %s and %s", p.PlayerID, prev, a.ID)
			}
			owner[p.PlayerID] = a.ID
		}
	}
	return nil
}

// OwnerIndex maps each owned player id to its owning account id.
func OwnerIndex(accounts []Account) map[string]string {
	out := make(map[string]string)
	for _, a := range accounts {
		for _, p := range a.Players {
			out[p.PlayerID] = a.ID
		}
	}
	return out
}

// HighestBid returns the current maximum pending bid on playerID across accounts.
func HighestBid(accounts []Account, playerID string) int64 {
	var highest int64
	for _, a := range accounts {
		if bid, ok := a.Bids[playerID]; ok && bid.Amount > highest {
			highest = bid.Amount
		}
	}
	return highest
}

// SortByID orders accounts by id in place.
func SortByID(accounts []Account) {
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
}
