package ledger

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/kart-league/internal/domain/player"
)

var recordValidator = validator.New()

// Record is the persisted JSON shape of one account, used for seeding,
// import and export.
type Record struct {
	ID           string                            `json:"id" validate:"required"`
	Name         string                            `json:"name" validate:"required"`
	Currency     int64                             `json:"currency" validate:"gte=0"`
	Players      []OwnedRecord                     `json:"players" validate:"dive"`
	Roster       RosterRecord                      `json:"roster"`
	Bids         map[string]int64                  `json:"bids,omitempty" validate:"dive,keys,required,endkeys,gt=0"`
	BidPlacedAt  map[string]int64                  `json:"bidPlacedAt,omitempty"`
	WeeklyScores map[string]map[string]ScoreRecord `json:"weeklyScores,omitempty"`
	CreatedAt    int64                             `json:"createdAt,omitempty" validate:"gte=0"`
	UpdatedAt    int64                             `json:"updatedAt,omitempty" validate:"gte=0"`
}

// OwnedRecord is one owned player. Legacy exports store a bare player id
// string instead of an object; both forms decode into OwnedRecord.
type OwnedRecord struct {
	ID               string `json:"id" validate:"required"`
	PurchasedAt      int64  `json:"purchasedAt" validate:"gte=0"`
	PurchasePrice    int64  `json:"purchasePrice" validate:"gte=0"`
	ClauseInvestment int64  `json:"clauseInvestment" validate:"gte=0"`
}

func (o *OwnedRecord) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var id string
		if err := sonic.Unmarshal(trimmed, &id); err != nil {
			return fmt.Errorf("decode legacy player id: %w", err)
		}
		*o = OwnedRecord{ID: id}
		return nil
	}

	type plain OwnedRecord
	var out plain
	if err := sonic.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	*o = OwnedRecord(out)
	return nil
}

type RosterRecord struct {
	Lineup []string `json:"lineup"`
	Bench  []string `json:"bench"`
}

// ScoreRecord requires both races to be present.
type ScoreRecord struct {
	Race1 *int `json:"race1" validate:"required,gte=0"`
	Race2 *int `json:"race2" validate:"required,gte=0"`
}

func (r Record) Validate() error {
	if err := recordValidator.Struct(r); err != nil {
		return fmt.Errorf("account record %q: %w", r.ID, err)
	}
	for playerID, weeks := range r.WeeklyScores {
		if playerID == "" {
			return fmt.Errorf("account record %q: weekly score with empty player id", r.ID)
		}
		for weekID, score := range weeks {
			if weekID == "" {
				return fmt.Errorf("account record %q: weekly score for %s with empty week id", r.ID, playerID)
			}
			if err := recordValidator.Struct(score); err != nil {
				return fmt.Errorf("account record %q: score %s/%s: %w", r.ID, playerID, weekID, err)
			}
		}
	}
	return nil
}

// DecodeRecords parses a JSON array of account records.
func DecodeRecords(data []byte) ([]Record, error) {
	var out []Record
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode account records: %w", err)
	}
	return out, nil
}

func EncodeRecords(records []Record) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(records, "", "  ")
}

// Hydrate validates a record and normalizes it into an Account. Missing or
// non-positive purchase prices fall back to the catalog base cost, and owned
// players missing from the roster are placed on the bench.
func Hydrate(rec Record, catalog map[string]player.Player, rules Rules) (Account, error) {
	if err := rec.Validate(); err != nil {
		return Account{}, err
	}

	acc := NewAccount(rec.ID, rec.Name, rec.Currency, fromMillis(rec.CreatedAt))
	acc.UpdatedAt = fromMillis(rec.UpdatedAt)

	for _, p := range rec.Players {
		catalogPlayer, ok := catalog[p.ID]
		if !ok {
			return Account{}, fmt.Errorf("account record %q: unknown player %s", rec.ID, p.ID)
		}
		price := p.PurchasePrice
		if price <= 0 {
			price = catalogPlayer.BaseCost
		}
		acc.Players = append(acc.Players, OwnedPlayer{
			PlayerID:         p.ID,
			PurchasedAt:      fromMillis(p.PurchasedAt),
			PurchasePrice:    price,
			ClauseInvestment: p.ClauseInvestment,
		})
	}

	acc.Roster = Roster{
		Lineup: slices.Clone(rec.Roster.Lineup),
		Bench:  slices.Clone(rec.Roster.Bench),
	}
	slotted := make(map[string]struct{}, len(acc.Players))
	for _, id := range acc.Roster.Lineup {
		slotted[id] = struct{}{}
	}
	for _, id := range acc.Roster.Bench {
		slotted[id] = struct{}{}
	}
	for _, p := range acc.Players {
		if _, ok := slotted[p.PlayerID]; !ok {
			acc.Roster.Bench = append(acc.Roster.Bench, p.PlayerID)
		}
	}

	for playerID, amount := range rec.Bids {
		acc.Bids[playerID] = Bid{Amount: amount, PlacedAt: fromMillis(rec.BidPlacedAt[playerID])}
	}

	for playerID, weeks := range rec.WeeklyScores {
		for weekID, score := range weeks {
			if err := acc.RecordScore(playerID, weekID, RaceScore{Race1: *score.Race1, Race2: *score.Race2}); err != nil {
				return Account{}, err
			}
		}
	}

	if err := acc.Validate(rules); err != nil {
		return Account{}, fmt.Errorf("account record %q: %w", rec.ID, err)
	}
	return acc, nil
}

// HydrateAll hydrates every record and checks ownership across them.
func HydrateAll(records []Record, catalog map[string]player.Player, rules Rules) ([]Account, error) {
	out := make([]Account, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		acc, err := Hydrate(rec, catalog, rules)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[acc.ID]; dup {
			return nil, fmt.Errorf("duplicate account record %q", acc.ID)
		}
		seen[acc.ID] = struct{}{}
		out = append(out, acc)
	}
	if err := ValidateOwnership(out); err != nil {
		return nil, err
	}
	SortByID(out)
	return out, nil
}

// Dehydrate converts an account to its persisted record shape.
func Dehydrate(acc Account) Record {
	rec := Record{
		ID:        acc.ID,
		Name:      acc.Name,
		Currency:  acc.Currency,
		Players:   make([]OwnedRecord, 0, len(acc.Players)),
		Roster:    RosterRecord{Lineup: nonNil(acc.Roster.Lineup), Bench: nonNil(acc.Roster.Bench)},
		CreatedAt: toMillis(acc.CreatedAt),
		UpdatedAt: toMillis(acc.UpdatedAt),
	}
	for _, p := range acc.Players {
		rec.Players = append(rec.Players, OwnedRecord{
			ID:               p.PlayerID,
			PurchasedAt:      toMillis(p.PurchasedAt),
			PurchasePrice:    p.PurchasePrice,
			ClauseInvestment: p.ClauseInvestment,
		})
	}
	if len(acc.Bids) > 0 {
		rec.Bids = make(map[string]int64, len(acc.Bids))
		rec.BidPlacedAt = make(map[string]int64, len(acc.Bids))
		for playerID, bid := range acc.Bids {
			rec.Bids[playerID] = bid.Amount
			if !bid.PlacedAt.IsZero() {
				rec.BidPlacedAt[playerID] = toMillis(bid.PlacedAt)
			}
		}
	}
	if len(acc.WeeklyScores) > 0 {
		rec.WeeklyScores = make(map[string]map[string]ScoreRecord, len(acc.WeeklyScores))
		for playerID, weeks := range acc.WeeklyScores {
			out := make(map[string]ScoreRecord, len(weeks))
			for weekID, score := range weeks {
				r1, r2 := score.Race1, score.Race2
				out[weekID] = ScoreRecord{Race1: &r1, Race2: &r2}
			}
			rec.WeeklyScores[playerID] = out
		}
	}
	return rec
}

func DehydrateAll(accounts []Account) []Record {
	sorted := slices.Clone(accounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	out := make([]Record, 0, len(sorted))
	for _, acc := range sorted {
		out = append(out, Dehydrate(acc))
	}
	return out
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return slices.Clone(ids)
}
