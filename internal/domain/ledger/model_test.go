package ledger

import (
	"errors"
	"testing"
	"time"
)

func ownedAccount(id string, currency int64, playerIDs ...string) Account {
	acc := NewAccount(id, id, currency, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	for _, pid := range playerIDs {
		acc.AddPlayer(OwnedPlayer{PlayerID: pid, PurchasePrice: 100})
	}
	return acc
}

func TestAccount_AddPlayerGoesToBenchAndDropsBid(t *testing.T) {
	acc := ownedAccount("u1", 1000)
	acc.Bids["p1"] = Bid{Amount: 300}

	acc.AddPlayer(OwnedPlayer{PlayerID: "p1", PurchasePrice: 300})

	if len(acc.Roster.Lineup) != 0 {
		t.Fatalf("expected empty lineup, got %v", acc.Roster.Lineup)
	}
	if len(acc.Roster.Bench) != 1 || acc.Roster.Bench[0] != "p1" {
		t.Fatalf("expected p1 on bench, got %v", acc.Roster.Bench)
	}
	if _, ok := acc.Bids["p1"]; ok {
		t.Fatalf("expected bid on owned player to be dropped")
	}
	if err := acc.Validate(DefaultRules()); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestAccount_RemovePlayerClearsRosterSlot(t *testing.T) {
	acc := ownedAccount("u1", 0, "p1", "p2", "p3")
	if err := acc.SetLineup([]string{"p2"}, DefaultRules()); err != nil {
		t.Fatalf("set lineup: %v", err)
	}

	removed, ok := acc.RemovePlayer("p2")
	if !ok || removed.PlayerID != "p2" {
		t.Fatalf("expected p2 removed, got %+v ok=%v", removed, ok)
	}
	if len(acc.Roster.Lineup) != 0 {
		t.Fatalf("expected lineup emptied, got %v", acc.Roster.Lineup)
	}
	if err := acc.Validate(DefaultRules()); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, ok := acc.RemovePlayer("missing"); ok {
		t.Fatalf("expected missing player to report not removed")
	}
}

func TestAccount_SetLineup(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		name    string
		lineup  []string
		wantErr error
	}{
		{name: "valid", lineup: []string{"p3", "p1"}},
		{name: "empty", lineup: nil},
		{name: "not owned", lineup: []string{"p1", "x"}, wantErr: ErrNotOwned},
		{name: "too many", lineup: []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"}, wantErr: ErrLineupFull},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			acc := ownedAccount("u1", 0, "p1", "p2", "p3", "p4", "p5", "p6", "p7")
			err := acc.SetLineup(tc.lineup, rules)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("set lineup: %v", err)
			}
			if len(acc.Roster.Lineup)+len(acc.Roster.Bench) != len(acc.Players) {
				t.Fatalf("roster does not cover owned players: %+v", acc.Roster)
			}
			if err := acc.Validate(rules); err != nil {
				t.Fatalf("validate: %v", err)
			}
		})
	}
}

func TestAccount_SetLineupRejectsDuplicates(t *testing.T) {
	acc := ownedAccount("u1", 0, "p1", "p2")
	if err := acc.SetLineup([]string{"p1", "p1"}, DefaultRules()); err == nil {
		t.Fatalf("expected duplicate lineup error")
	}
}

func TestAccount_RecordScoreIsAppendOnly(t *testing.T) {
	acc := ownedAccount("u1", 0, "p1")
	if err := acc.RecordScore("p1", "2026-W10", RaceScore{Race1: 12, Race2: 9}); err != nil {
		t.Fatalf("record score: %v", err)
	}
	err := acc.RecordScore("p1", "2026-W10", RaceScore{Race1: 1, Race2: 1})
	if !errors.Is(err, ErrScoreExists) {
		t.Fatalf("expected ErrScoreExists, got %v", err)
	}
	if got := acc.WeeklyScores["p1"]["2026-W10"]; got.Total() != 21 {
		t.Fatalf("expected original score kept, got %+v", got)
	}
}

func TestAccount_LineupPointsCountsOnlyLineup(t *testing.T) {
	acc := ownedAccount("u1", 0, "p1", "p2")
	_ = acc.RecordScore("p1", "w1", RaceScore{Race1: 10, Race2: 5})
	_ = acc.RecordScore("p1", "w2", RaceScore{Race1: 3, Race2: 2})
	_ = acc.RecordScore("p2", "w1", RaceScore{Race1: 15, Race2: 15})
	if err := acc.SetLineup([]string{"p1"}, DefaultRules()); err != nil {
		t.Fatalf("set lineup: %v", err)
	}

	if got := acc.LineupPoints(); got != 20 {
		t.Fatalf("expected 20 lineup points, got %d", got)
	}
}

func TestAccount_CloneIsDeep(t *testing.T) {
	acc := ownedAccount("u1", 500, "p1")
	acc.Bids["p9"] = Bid{Amount: 50}
	_ = acc.RecordScore("p1", "w1", RaceScore{Race1: 1, Race2: 1})

	clone := acc.Clone()
	clone.Bids["p9"] = Bid{Amount: 999}
	clone.Players[0].ClauseInvestment = 70
	clone.Roster.Bench[0] = "changed"
	clone.WeeklyScores["p1"]["w2"] = RaceScore{}

	if acc.Bids["p9"].Amount != 50 {
		t.Fatalf("bids shared with clone")
	}
	if acc.Players[0].ClauseInvestment != 0 {
		t.Fatalf("players shared with clone")
	}
	if acc.Roster.Bench[0] != "p1" {
		t.Fatalf("roster shared with clone")
	}
	if _, ok := acc.WeeklyScores["p1"]["w2"]; ok {
		t.Fatalf("weekly scores shared with clone")
	}
}

func TestAccount_Validate(t *testing.T) {
	rules := DefaultRules()

	negative := ownedAccount("u1", -1)
	if err := negative.Validate(rules); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds for negative currency, got %v", err)
	}

	full := ownedAccount("u2", 0, "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k")
	if err := full.Validate(rules); !errors.Is(err, ErrRosterFull) {
		t.Fatalf("expected roster full, got %v", err)
	}

	overlap := ownedAccount("u3", 0, "p1")
	overlap.Roster.Lineup = []string{"p1"}
	if err := overlap.Validate(rules); err == nil {
		t.Fatalf("expected lineup/bench overlap to fail")
	}

	missing := ownedAccount("u4", 0, "p1", "p2")
	missing.Roster.Bench = []string{"p1"}
	if err := missing.Validate(rules); err == nil {
		t.Fatalf("expected uncovered owned player to fail")
	}
}

func TestValidateOwnership(t *testing.T) {
	a := ownedAccount("a", 0, "p1")
	b := ownedAccount("b", 0, "p2")
	if err := ValidateOwnership([]Account{a, b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := ownedAccount("c", 0, "p1")
	if err := ValidateOwnership([]Account{a, b, c}); err == nil {
		t.Fatalf("expected double ownership error")
	}
}

func TestHighestBidAndCommitted(t *testing.T) {
	a := ownedAccount("a", 5000)
	a.Bids["x"] = Bid{Amount: 3000}
	a.Bids["y"] = Bid{Amount: 500}
	b := ownedAccount("b", 5000)
	b.Bids["x"] = Bid{Amount: 4000}

	if got := HighestBid([]Account{a, b}, "x"); got != 4000 {
		t.Fatalf("expected highest 4000, got %d", got)
	}
	if got := HighestBid([]Account{a, b}, "z"); got != 0 {
		t.Fatalf("expected 0 for no bids, got %d", got)
	}
	if got := a.CommittedExcluding("x"); got != 500 {
		t.Fatalf("expected 500 committed outside x, got %d", got)
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		err  error
		want Reason
	}{
		{err: ErrBidTooLow, want: ReasonOutbid},
		{err: ErrAlreadyOwned, want: ReasonAlreadyOwned},
		{err: ErrInsufficientFunds, want: ReasonInsufficientFunds},
		{err: ErrBuyoutProtected, want: ReasonBuyoutProtected},
		{err: errors.New("other"), want: ""},
		{err: nil, want: ""},
	}
	for _, tc := range tests {
		if got := ReasonOf(tc.err); got != tc.want {
			t.Fatalf("ReasonOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}

	acc := ownedAccount("u", 0, "p")
	wrapped := acc.SetLineup([]string{"x"}, DefaultRules())
	if !IsRuleViolation(wrapped) || ReasonOf(wrapped) != ReasonNotOwned {
		t.Fatalf("expected wrapped not_owned violation, got %v", wrapped)
	}
}

func TestRules_Validate(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("default rules invalid: %v", err)
	}
	bad := DefaultRules()
	bad.MaxLineup = 11
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected lineup > owned cap to fail")
	}
}
