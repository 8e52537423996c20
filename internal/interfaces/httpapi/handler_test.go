package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/market"
	"github.com/riskibarqy/kart-league/internal/domain/player"
	"github.com/riskibarqy/kart-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
	"github.com/riskibarqy/kart-league/internal/usecase"
)

const testJobToken = "job-secret"

type testAPI struct {
	handler http.Handler
	markets *usecase.MarketService
}

func newTestAPI(t *testing.T, jobToken string, accounts ...ledger.Account) *testAPI {
	t.Helper()

	catalog := []player.Player{
		{ID: "x", Name: "Velo", Team: "Rainbow Road", BaseCost: 2000},
		{ID: "y", Name: "Drift", Team: "Blue Shell", BaseCost: 1500},
		{ID: "z", Name: "Nitro", Team: "Star Cup", BaseCost: 800},
	}
	logger := logging.NewNop()
	rules := ledger.DefaultRules()
	store := memory.NewLedgerStore(accounts...)
	players := memory.NewPlayerRepository(catalog)

	playerService := usecase.NewPlayerService(players)
	marketService := usecase.NewMarketService(store, players, market.DefaultRules(), nil, logger)
	standingsService := usecase.NewStandingsService(store, 2, logger)
	settlementService := usecase.NewSettlementService(store, rules, nil, logger)

	h := NewHandler(
		playerService,
		marketService,
		standingsService,
		usecase.NewOverviewService(playerService, marketService, standingsService, settlementService),
		usecase.NewBidService(store, players, rules, logger),
		usecase.NewRosterService(store, players, rules, logger),
		settlementService,
		usecase.NewLedgerService(store, players, rules, nil, logger),
		logger,
	)

	return &testAPI{
		handler: NewRouter(h, logger, []string{"*"}, jobToken),
		markets: marketService,
	}
}

func (a *testAPI) do(t *testing.T, method, path, user, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(sessionUserHeader, user)
	}
	if token != "" {
		req.Header.Set(internalJobTokenHdr, token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var out map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response body: %v (raw=%s)", err, rec.Body.String())
	}
	return rec, out
}

func errorReason(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	items, _ := errObj["errors"].([]any)
	if len(items) == 0 {
		return ""
	}
	first, _ := items[0].(map[string]any)
	reason, _ := first["reason"].(string)
	return reason
}

func leagueAccounts() []ledger.Account {
	now := time.Now().Add(-time.Hour)
	return []ledger.Account{
		ledger.NewAccount("alice", "Alice", 10000, now),
		ledger.NewAccount("bob", "Bob", 10000, now),
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, testJobToken)
	rec, body := api.do(t, http.MethodGet, "/healthz", "", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	data, _ := body["data"].(map[string]any)
	if data["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", body)
	}
}

func TestBidSettleFlow(t *testing.T) {
	api := newTestAPI(t, testJobToken, leagueAccounts()...)
	if _, err := api.markets.CommitRotation(context.Background(), []string{"x", "y"}); err != nil {
		t.Fatalf("publish market: %v", err)
	}

	rec, _ := api.do(t, http.MethodPost, "/v1/me/bids", "bob", "", `{"playerId":"x","amount":2500}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected bob's bid to be accepted, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, body := api.do(t, http.MethodPost, "/v1/me/bids", "alice", "", `{"playerId":"x","amount":2000}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a lower bid, got %d", rec.Code)
	}
	if got := errorReason(body); got != string(ledger.ReasonOutbid) {
		t.Fatalf("expected reason %q, got %q", ledger.ReasonOutbid, got)
	}

	rec, body = api.do(t, http.MethodGet, "/v1/market", "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected market 200, got %d", rec.Code)
	}
	data, _ := body["data"].(map[string]any)
	players, _ := data["players"].([]any)
	if len(players) != 2 {
		t.Fatalf("expected 2 market players, got %d", len(players))
	}

	rec, body = api.do(t, http.MethodPost, "/v1/internal/jobs/settle", "", testJobToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected settle 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ = body["data"].(map[string]any)
	if got, _ := data["applied"].(float64); got != 1 {
		t.Fatalf("expected 1 applied award, got %v", data["applied"])
	}

	rec, body = api.do(t, http.MethodGet, "/v1/me", "bob", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected me 200, got %d", rec.Code)
	}
	data, _ = body["data"].(map[string]any)
	if got, _ := data["currency"].(float64); got != 7500 {
		t.Fatalf("expected currency 7500 after winning, got %v", data["currency"])
	}
	owned, _ := data["players"].([]any)
	if len(owned) != 1 {
		t.Fatalf("expected one owned player, got %v", data["players"])
	}
	bids, _ := data["bids"].([]any)
	if len(bids) != 0 {
		t.Fatalf("expected bids cleared after settlement, got %v", bids)
	}
}

func TestSessionRoutesRequireUser(t *testing.T) {
	api := newTestAPI(t, testJobToken, leagueAccounts()...)

	rec, body := api.do(t, http.MethodGet, "/v1/me", "", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := errorReason(body); got != "unauthorized" {
		t.Fatalf("unexpected reason %q", got)
	}
}

func TestInternalRoutesRequireToken(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		provided   string
		wantStatus int
	}{
		{name: "missing token", configured: testJobToken, provided: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", configured: testJobToken, provided: "nope", wantStatus: http.StatusUnauthorized},
		{name: "not configured", configured: "", provided: "anything", wantStatus: http.StatusServiceUnavailable},
		{name: "valid token", configured: testJobToken, provided: testJobToken, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, tt.configured, leagueAccounts()...)
			rec, _ := api.do(t, http.MethodGet, "/v1/internal/bids", "", tt.provided, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestGetMarket_NotPublished(t *testing.T) {
	api := newTestAPI(t, testJobToken)
	rec, _ := api.do(t, http.MethodGet, "/v1/market", "", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before the first rotation, got %d", rec.Code)
	}
}

func TestPlaceBid_RejectsInvalidPayload(t *testing.T) {
	api := newTestAPI(t, testJobToken, leagueAccounts()...)

	tests := []struct {
		name string
		body string
	}{
		{name: "unknown field", body: `{"playerId":"x","amount":10,"extra":true}`},
		{name: "zero amount", body: `{"playerId":"x","amount":0}`},
		{name: "missing player", body: `{"amount":10}`},
		{name: "malformed", body: `{"playerId":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := api.do(t, http.MethodPost, "/v1/me/bids", "alice", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if got := errorReason(body); got != "invalidInput" {
				t.Fatalf("unexpected reason %q", got)
			}
		})
	}
}

func TestInternalAccountLifecycle(t *testing.T) {
	api := newTestAPI(t, testJobToken)

	rec, _ := api.do(t, http.MethodPost, "/v1/internal/accounts", "", testJobToken, `{"id":"carol","name":"Carol"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected account created, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, _ = api.do(t, http.MethodPost, "/v1/internal/accounts/carol/players", "", testJobToken, `{"playerId":"z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected player assigned, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, _ = api.do(t, http.MethodPut, "/v1/me/lineup", "carol", "", `{"playerIds":["z"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected lineup set, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, _ = api.do(t, http.MethodPost, "/v1/internal/scores", "", testJobToken, `{"userId":"carol","playerId":"z","weekId":"w1","race1":12,"race2":9}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected score recorded, got %d: %s", rec.Code, rec.Body.String())
	}

	rec, body := api.do(t, http.MethodGet, "/v1/standings", "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected standings 200, got %d", rec.Code)
	}
	items, _ := body["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one standing, got %v", body["data"])
	}
	first, _ := items[0].(map[string]any)
	if got, _ := first["points"].(float64); got != 21 {
		t.Fatalf("expected 21 points, got %v", first["points"])
	}

	rec, body = api.do(t, http.MethodPost, "/v1/internal/accounts/carol/currency", "", testJobToken, `{"delta":-20000,"reason":"penalty"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for overdraft, got %d", rec.Code)
	}
	if got := errorReason(body); got != string(ledger.ReasonInsufficientFunds) {
		t.Fatalf("unexpected reason %q", got)
	}
}

func TestListPlayers_Filters(t *testing.T) {
	api := newTestAPI(t, testJobToken)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantLen  int
	}{
		{name: "all", path: "/v1/players", wantCode: http.StatusOK, wantLen: 3},
		{name: "team", path: "/v1/players?team=star+cup", wantCode: http.StatusOK, wantLen: 1},
		{name: "max cost", path: "/v1/players?maxCost=1500", wantCode: http.StatusOK, wantLen: 2},
		{name: "bad max cost", path: "/v1/players?maxCost=cheap", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := api.do(t, http.MethodGet, tt.path, "", "", "")
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			items, _ := body["data"].([]any)
			if len(items) != tt.wantLen {
				t.Fatalf("expected %d players, got %d", tt.wantLen, len(items))
			}
		})
	}
}

func TestRefreshCatalog(t *testing.T) {
	api := newTestAPI(t, testJobToken)

	rec, body := api.do(t, http.MethodPost, "/v1/internal/catalog/refresh", "", testJobToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := body["data"].(map[string]any)
	if got, _ := data["catalogSize"].(float64); got != 3 {
		t.Fatalf("unexpected catalog size: %v", data)
	}
}
