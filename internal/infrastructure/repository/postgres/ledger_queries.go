package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/market"
	qb "github.com/riskibarqy/kart-league/internal/platform/querybuilder"
)

var (
	accountSelectColumns       = []string{"id", "public_id", "name", "currency", "created_at", "updated_at"}
	accountPlayerSelectColumns = []string{
		"account_public_id",
		"player_public_id",
		"purchased_at",
		"purchase_price",
		"clause_investment",
		"owned_order",
		"slot",
		"slot_order",
	}
	accountBidSelectColumns     = []string{"account_public_id", "player_public_id", "amount", "placed_at"}
	weeklyScoreSelectColumns    = []string{"account_public_id", "player_public_id", "week_id", "race1", "race2"}
	marketSnapshotSelectColumns = []string{"id", "public_id", "published_at", "is_current"}
	settlementRunSelectColumns  = []string{"id", "public_id", "settled_at", "cleared_bids"}
)

const accountConflictClause = `(public_id) DO UPDATE SET
    name = EXCLUDED.name,
    currency = EXCLUDED.currency,
    updated_at = EXCLUDED.updated_at`

var accountChildTables = []string{"account_players", "account_bids", "account_weekly_scores"}

// ledgerQueries runs ledger reads and writes against either the pool or an
// open transaction. With lock set, account reads take row locks.
type ledgerQueries struct {
	q    sqlx.ExtContext
	lock bool
}

func (l ledgerQueries) loadAccounts(ctx context.Context, accountIDs []string) ([]ledger.Account, error) {
	sel := qb.Select(accountSelectColumns...).From("league_accounts").OrderBy("public_id")
	if accountIDs != nil {
		sel.Where(qb.In("public_id", stringSliceToAny(accountIDs)))
	}
	if l.lock {
		sel.ForUpdate()
	}
	query, args, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select accounts query: %w", err)
	}

	var rows []accountTableModel
	if err := sqlx.SelectContext(ctx, l.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select accounts: %w", err)
	}
	if len(rows) == 0 {
		return []ledger.Account{}, nil
	}

	ids := make([]any, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PublicID)
	}
	children := make(map[string]*accountRows, len(rows))
	for _, row := range rows {
		children[row.PublicID] = &accountRows{}
	}

	var players []accountPlayerTableModel
	if err := l.selectByAccounts(ctx, &players, "account_players", accountPlayerSelectColumns, ids); err != nil {
		return nil, err
	}
	for _, p := range players {
		children[p.AccountID].players = append(children[p.AccountID].players, p)
	}

	var bids []accountBidTableModel
	if err := l.selectByAccounts(ctx, &bids, "account_bids", accountBidSelectColumns, ids); err != nil {
		return nil, err
	}
	for _, b := range bids {
		children[b.AccountID].bids = append(children[b.AccountID].bids, b)
	}

	var scores []weeklyScoreTableModel
	if err := l.selectByAccounts(ctx, &scores, "account_weekly_scores", weeklyScoreSelectColumns, ids); err != nil {
		return nil, err
	}
	for _, s := range scores {
		children[s.AccountID].scores = append(children[s.AccountID].scores, s)
	}

	out := make([]ledger.Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, accountFromRows(row, *children[row.PublicID]))
	}
	return out, nil
}

func (l ledgerQueries) selectByAccounts(ctx context.Context, dest any, table string, columns []string, ids []any) error {
	query, args, err := qb.Select(columns...).From(table).
		Where(qb.In("account_public_id", ids)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build select %s query: %w", table, err)
	}
	if err := sqlx.SelectContext(ctx, l.q, dest, query, args...); err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	return nil
}

func (l ledgerQueries) getAccount(ctx context.Context, accountID string) (ledger.Account, bool, error) {
	accounts, err := l.loadAccounts(ctx, []string{accountID})
	if err != nil {
		return ledger.Account{}, false, err
	}
	if len(accounts) == 0 {
		return ledger.Account{}, false, nil
	}
	return accounts[0], true, nil
}

// saveAccounts upserts account rows and rewrites owned players, bids and weekly scores.
// Owned rows of every saved account are removed before any insert so that a
// player moving between two saved accounts never trips the ownership index.
func (l ledgerQueries) saveAccounts(ctx context.Context, accounts []ledger.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	stmts, err := accountWriteStatements(accounts)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := l.q.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return fmt.Errorf("%s: %w", stmt.op, err)
		}
	}
	return nil
}

type sqlStatement struct {
	op    string
	query string
	args  []any
}

// accountWriteStatements replaces every child row of the given accounts, so a
// save always leaves the tables holding exactly the saved state.
func accountWriteStatements(accounts []ledger.Account) ([]sqlStatement, error) {
	accountModels := make([]any, 0, len(accounts))
	ids := make([]any, 0, len(accounts))
	var players, bids, scores []any
	for _, acc := range accounts {
		row, children := accountToRows(acc)
		accountModels = append(accountModels, row)
		ids = append(ids, acc.ID)
		for _, p := range children.players {
			players = append(players, p)
		}
		for _, b := range children.bids {
			bids = append(bids, b)
		}
		for _, s := range children.scores {
			scores = append(scores, s)
		}
	}

	stmts := make([]sqlStatement, 0, 7)
	add := func(op, query string, args []any, err error) error {
		if err != nil {
			return fmt.Errorf("build %s query: %w", op, err)
		}
		stmts = append(stmts, sqlStatement{op: op, query: query, args: args})
		return nil
	}

	if len(accountModels) > 0 {
		query, args, err := qb.InsertModels("league_accounts", accountModels, accountConflictClause)
		if err := add("insert league_accounts", query, args, err); err != nil {
			return nil, err
		}
	}
	for _, table := range accountChildTables {
		query, args, err := qb.DeleteFrom(table).Where(qb.In("account_public_id", ids)).ToSQL()
		if err := add("delete "+table, query, args, err); err != nil {
			return nil, err
		}
	}
	children := []struct {
		table  string
		models []any
	}{
		{"account_players", players},
		{"account_bids", bids},
		{"account_weekly_scores", scores},
	}
	for _, child := range children {
		if len(child.models) == 0 {
			continue
		}
		query, args, err := qb.InsertModels(child.table, child.models, "")
		if err := add("insert "+child.table, query, args, err); err != nil {
			return nil, err
		}
	}
	return stmts, nil
}

func (l ledgerQueries) insertModels(ctx context.Context, table string, models []any) error {
	if len(models) == 0 {
		return nil
	}
	query, args, err := qb.InsertModels(table, models, "")
	if err != nil {
		return fmt.Errorf("build insert %s query: %w", table, err)
	}
	if _, err := l.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (l ledgerQueries) getMarket(ctx context.Context) (market.Snapshot, bool, error) {
	query, args, err := qb.Select(marketSnapshotSelectColumns...).From("market_snapshots").
		Where(qb.Eq("is_current", true)).
		Limit(1).
		ToSQL()
	if err != nil {
		return market.Snapshot{}, false, fmt.Errorf("build select market snapshot query: %w", err)
	}

	var row marketSnapshotTableModel
	if err := sqlx.GetContext(ctx, l.q, &row, query, args...); err != nil {
		if isNotFound(err) {
			return market.Snapshot{}, false, nil
		}
		return market.Snapshot{}, false, fmt.Errorf("select market snapshot: %w", err)
	}

	query, args, err = qb.Select("snapshot_public_id", "player_public_id", "position").From("market_snapshot_players").
		Where(qb.Eq("snapshot_public_id", row.PublicID)).
		OrderBy("position").
		ToSQL()
	if err != nil {
		return market.Snapshot{}, false, fmt.Errorf("build select market players query: %w", err)
	}
	var players []marketSnapshotPlayerTableModel
	if err := sqlx.SelectContext(ctx, l.q, &players, query, args...); err != nil {
		return market.Snapshot{}, false, fmt.Errorf("select market players: %w", err)
	}
	return snapshotFromRows(row, players), true, nil
}

func (l ledgerQueries) saveMarket(ctx context.Context, snapshot market.Snapshot) error {
	query, args, err := qb.Update("market_snapshots").
		Set("is_current", false).
		Where(qb.Eq("is_current", true)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build retire market snapshot query: %w", err)
	}
	if _, err := l.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("retire market snapshot: %w", err)
	}

	row := marketSnapshotTableModel{PublicID: snapshot.ID, PublishedAt: snapshot.PublishedAt, IsCurrent: true}
	if err := l.insertModels(ctx, "market_snapshots", []any{row}); err != nil {
		return err
	}

	players := make([]any, 0, len(snapshot.PlayerIDs))
	for i, id := range snapshot.PlayerIDs {
		players = append(players, marketSnapshotPlayerTableModel{SnapshotID: snapshot.ID, PlayerID: id, Position: i})
	}
	return l.insertModels(ctx, "market_snapshot_players", players)
}

func (l ledgerQueries) saveSettlementRun(ctx context.Context, run ledger.SettlementRun) error {
	row, awards := runToRows(run)
	if err := l.insertModels(ctx, "settlement_runs", []any{row}); err != nil {
		return err
	}
	models := make([]any, 0, len(awards))
	for _, a := range awards {
		models = append(models, a)
	}
	return l.insertModels(ctx, "settlement_awards", models)
}

func (l ledgerQueries) listSettlementRuns(ctx context.Context, limit int) ([]ledger.SettlementRun, error) {
	sel := qb.Select(settlementRunSelectColumns...).From("settlement_runs").OrderBy("settled_at DESC", "id DESC")
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args, err := sel.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select settlement runs query: %w", err)
	}
	var rows []settlementRunTableModel
	if err := sqlx.SelectContext(ctx, l.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select settlement runs: %w", err)
	}
	if len(rows) == 0 {
		return []ledger.SettlementRun{}, nil
	}

	ids := make([]any, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PublicID)
	}
	query, args, err = qb.Select("run_public_id", "position", "player_public_id", "user_public_id", "amount", "status", "reason").
		From("settlement_awards").
		Where(qb.In("run_public_id", ids)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select settlement awards query: %w", err)
	}
	var awards []settlementAwardTableModel
	if err := sqlx.SelectContext(ctx, l.q, &awards, query, args...); err != nil {
		return nil, fmt.Errorf("select settlement awards: %w", err)
	}
	byRun := make(map[string][]settlementAwardTableModel, len(rows))
	for _, a := range awards {
		byRun[a.RunID] = append(byRun[a.RunID], a)
	}

	out := make([]ledger.SettlementRun, 0, len(rows))
	for _, row := range rows {
		out = append(out, runFromRows(row, byRun[row.PublicID]))
	}
	return out, nil
}
