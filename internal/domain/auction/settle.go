package auction

import (
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
)

// ErrAwardSkipped reports an award that could not be applied at settlement
// time. It never fails the settlement as a whole.
var ErrAwardSkipped = crerr.New("award skipped at settlement")

var errUnknownUser = crerr.New("winner account does not exist")

type SkippedAward struct {
	Award
	Reason ledger.Reason
	Err    error
}

// Outcome is the fully computed result of a settlement, ready to be committed.
type Outcome struct {
	// RunID is set once the outcome has been committed.
	RunID       string
	Accounts    []ledger.Account
	Applied     []Award
	Skipped     []SkippedAward
	ClearedBids int
	SettledAt   time.Time
}

// Settle applies awards in order against a snapshot of every account. Each
// award is re-validated against the state left by the awards before it; a
// failing award is skipped without side effects. Every pending bid is cleared
// afterwards, winners and losers alike, and ClearedBids counts
// every bid pending in the snapshot. The input accounts are not modified.
func Settle(accounts []ledger.Account, awards []Award, rules ledger.Rules, now time.Time) Outcome {
	working := make(map[string]*ledger.Account, len(accounts))
	ordered := make([]ledger.Account, 0, len(accounts))
	for _, acc := range accounts {
		ordered = append(ordered, acc.Clone())
	}
	ledger.SortByID(ordered)
	for i := range ordered {
		working[ordered[i].ID] = &ordered[i]
	}
	owners := ledger.OwnerIndex(ordered)

	out := Outcome{SettledAt: now}
	for _, acc := range ordered {
		out.ClearedBids += len(acc.Bids)
	}
	for _, award := range awards {
		winner, ok := working[award.UserID]
		if !ok {
			out.Skipped = append(out.Skipped, skip(award, ledger.ReasonUnknownUser, errUnknownUser))
			continue
		}
		if err := checkAward(*winner, owners, award, rules); err != nil {
			out.Skipped = append(out.Skipped, skip(award, ledger.ReasonOf(err), err))
			continue
		}

		winner.Currency -= award.Amount
		winner.AddPlayer(ledger.OwnedPlayer{
			PlayerID:      award.PlayerID,
			PurchasedAt:   now,
			PurchasePrice: award.Amount,
		})
		winner.UpdatedAt = now
		owners[award.PlayerID] = winner.ID
		out.Applied = append(out.Applied, award)
	}

	for i := range ordered {
		if ordered[i].ClearBids() > 0 {
			ordered[i].UpdatedAt = now
		}
	}
	out.Accounts = ordered
	return out
}

func checkAward(winner ledger.Account, owners map[string]string, award Award, rules ledger.Rules) error {
	if owner, owned := owners[award.PlayerID]; owned {
		return fmt.Errorf("%w: %s owned by %s", ledger.ErrAlreadyOwned, award.PlayerID, owner)
	}
	if len(winner.Players) >= rules.MaxOwnedPlayers {
		return fmt.Errorf("%w: %s owns %d", ledger.ErrRosterFull, winner.ID, len(winner.Players))
	}
	if award.Amount <= 0 || winner.Currency < award.Amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ledger.ErrInsufficientFunds, winner.ID, winner.Currency, award.Amount)
	}
	return nil
}

func skip(award Award, reason ledger.Reason, cause error) SkippedAward {
	return SkippedAward{
		Award:  award,
		Reason: reason,
		Err:    fmt.Errorf("%w: player=%s user=%s: %w", ErrAwardSkipped, award.PlayerID, award.UserID, cause),
	}
}

// Changed returns the accounts whose state differs from the snapshot taken
// before settlement: winners and anyone who had a pending bid.
func (o Outcome) Changed(before []ledger.Account) []ledger.Account {
	had := make(map[string]bool, len(before))
	for _, acc := range before {
		had[acc.ID] = len(acc.Bids) > 0
	}
	won := make(map[string]bool, len(o.Applied))
	for _, a := range o.Applied {
		won[a.UserID] = true
	}

	out := make([]ledger.Account, 0, len(o.Accounts))
	for _, acc := range o.Accounts {
		if had[acc.ID] || won[acc.ID] {
			out = append(out, acc)
		}
	}
	return out
}

// Run converts the outcome into its persisted audit record.
func (o Outcome) Run(id string) ledger.SettlementRun {
	run := ledger.SettlementRun{
		ID:          id,
		SettledAt:   o.SettledAt,
		Awards:      make([]ledger.AwardRecord, 0, len(o.Applied)+len(o.Skipped)),
		ClearedBids: o.ClearedBids,
	}
	for _, a := range o.Applied {
		run.Awards = append(run.Awards, ledger.AwardRecord{
			PlayerID: a.PlayerID,
			UserID:   a.UserID,
			Amount:   a.Amount,
			Status:   ledger.AwardApplied,
		})
	}
	for _, s := range o.Skipped {
		run.Awards = append(run.Awards, ledger.AwardRecord{
			PlayerID: s.PlayerID,
			UserID:   s.UserID,
			Amount:   s.Amount,
			Status:   ledger.AwardSkipped,
			Reason:   s.Reason,
		})
	}
	return run
}
