package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("public_id", "currency").
		From("league_accounts").
		Where(Eq("public_id", "u1"), IsNull("archived_at")).
		OrderBy("public_id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT public_id, currency FROM league_accounts WHERE public_id = $1 AND archived_at IS NULL ORDER BY public_id LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "u1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_ForUpdate(t *testing.T) {
	query, args, err := Select("public_id").
		From("league_accounts").
		Where(In("public_id", []any{"a", "b"})).
		OrderBy("public_id").
		ForUpdate().
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT public_id FROM league_accounts WHERE public_id IN ($1, $2) ORDER BY public_id FOR UPDATE"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_EmptyInMatchesNothing(t *testing.T) {
	query, _, err := Select("public_id").From("players").Where(In("public_id", nil)).ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}
	if query != "SELECT public_id FROM players WHERE 1=0" {
		t.Fatalf("unexpected query: %s", query)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("account_bids", "account_public_id", "player_public_id", "amount").
		Row("u1", "p1", int64(3000)).
		Row("u2", "p1", int64(4000)).
		OnConflict("DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO account_bids (account_public_id, player_public_id, amount) VALUES ($1, $2, $3), ($4, $5, $6) ON CONFLICT DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 6 || args[3] != "u2" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_RowWidthMismatch(t *testing.T) {
	_, _, err := InsertInto("account_bids", "account_public_id", "amount").Row("u1").ToSQL()
	if err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("market_snapshots").
		Set("is_current", false).
		Where(Eq("is_current", true)).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE market_snapshots SET is_current = $1 WHERE is_current = $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != false || args[1] != true {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("account_bids").
		Where(In("account_public_id", []any{"u1", "u2"})).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM account_bids WHERE account_public_id IN ($1, $2)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := DeleteFrom("account_bids").ToSQL(); err == nil {
		t.Fatalf("expected error for unbounded delete")
	}
}

func TestInsertModels(t *testing.T) {
	type row struct {
		ID       int64  `db:"id,readonly"`
		PlayerID string `db:"player_public_id"`
		Position int    `db:"position"`
		internal string
	}

	query, args, err := InsertModels("market_snapshot_players", []any{
		row{PlayerID: "p1", Position: 0},
		&row{PlayerID: "p2", Position: 1},
	}, "(snapshot_public_id, position) DO NOTHING")
	if err != nil {
		t.Fatalf("build insert models: %v", err)
	}

	wantQuery := "INSERT INTO market_snapshot_players (player_public_id, position) VALUES ($1, $2), ($3, $4) ON CONFLICT (snapshot_public_id, position) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[2] != "p2" {
		t.Fatalf("unexpected args: %+v", args)
	}
}
