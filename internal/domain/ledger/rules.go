package ledger

import (
	"errors"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"
)

// Business rule violations. Each one is reported to the caller with a reason and
// guarantees that nothing was written.
var (
	ErrBidTooLow         = crerr.New("bid must exceed the current highest bid")
	ErrAlreadyOwned      = crerr.New("player is already owned")
	ErrInsufficientFunds = crerr.New("insufficient funds")
	ErrRosterFull        = crerr.New("roster is full")
	ErrBuyoutProtected   = crerr.New("player is inside the buyout protection window")
	ErrNotInMarket       = crerr.New("player is not in the current market")
	ErrNotOwned          = crerr.New("player is not owned by this account")
	ErrLineupFull        = crerr.New("lineup is full")
	ErrScoreExists       = crerr.New("weekly score already recorded")
)

// ErrStorageTransaction marks failures of the atomic commit itself. Nothing was
// applied and the whole operation can be retried from a fresh read.
var ErrStorageTransaction = crerr.New("ledger storage transaction failed")

// Reason is the machine-readable rejection code surfaced to callers.
type Reason string

const (
	ReasonOutbid            Reason = "outbid"
	ReasonAlreadyOwned      Reason = "already_owned"
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonRosterFull        Reason = "roster_full"
	ReasonBuyoutProtected   Reason = "buyout_protected"
	ReasonNotInMarket       Reason = "not_in_market"
	ReasonNotOwned          Reason = "not_owned"
	ReasonLineupFull        Reason = "lineup_full"
	ReasonScoreExists       Reason = "score_exists"
	ReasonUnknownUser       Reason = "unknown_user"
)

var reasonByErr = []struct {
	err    error
	reason Reason
}{
	{ErrBidTooLow, ReasonOutbid},
	{ErrAlreadyOwned, ReasonAlreadyOwned},
	{ErrInsufficientFunds, ReasonInsufficientFunds},
	{ErrRosterFull, ReasonRosterFull},
	{ErrBuyoutProtected, ReasonBuyoutProtected},
	{ErrNotInMarket, ReasonNotInMarket},
	{ErrNotOwned, ReasonNotOwned},
	{ErrLineupFull, ReasonLineupFull},
	{ErrScoreExists, ReasonScoreExists},
}

// ReasonOf returns the rejection reason carried by err, or "" if err is not a rule violation.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	for _, item := range reasonByErr {
		if errors.Is(err, item.err) {
			return item.reason
		}
	}
	return ""
}

func IsRuleViolation(err error) bool {
	return ReasonOf(err) != ""
}

// Rules stores the economy limits applied to every account.
type Rules struct {
	MaxOwnedPlayers  int           `yaml:"max_owned_players"`
	MaxLineup        int           `yaml:"max_lineup"`
	BuyoutProtection time.Duration `yaml:"buyout_protection"`
	StartingCurrency int64         `yaml:"starting_currency"`
}

func DefaultRules() Rules {
	return Rules{
		MaxOwnedPlayers:  10,
		MaxLineup:        6,
		BuyoutProtection: 14 * 24 * time.Hour,
		StartingCurrency: 10000,
	}
}

func (r Rules) Validate() error {
	if r.MaxOwnedPlayers < 1 {
		return fmt.Errorf("max owned players must be >= 1")
	}
	if r.MaxLineup < 0 || r.MaxLineup > r.MaxOwnedPlayers {
		return fmt.Errorf("max lineup must be between 0 and max owned players (%d)", r.MaxOwnedPlayers)
	}
	if r.BuyoutProtection < 0 {
		return fmt.Errorf("buyout protection must be >= 0")
	}
	if r.StartingCurrency < 0 {
		return fmt.Errorf("starting currency must be >= 0")
	}
	return nil
}
