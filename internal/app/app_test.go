package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/kart-league/internal/config"
	"github.com/riskibarqy/kart-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
	"github.com/riskibarqy/kart-league/internal/usecase"
)

func memoryConfig() config.Config {
	return config.Config{
		HTTPAddr:         ":0",
		StorageDriver:    config.StorageMemory,
		StandingsWorkers: 2,
		InternalJobToken: "secret",
	}
}

func TestBuild_MemoryStorage(t *testing.T) {
	c, err := Build(context.Background(), memoryConfig(), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	players, err := c.Services.Players.List(context.Background(), usecase.PlayerFilter{})
	require.NoError(t, err)
	assert.Len(t, players, len(memory.SeedPlayers()))
	assert.Equal(t, config.DefaultLeagueRules(), c.Rules)

	accounts, err := c.Services.Ledger.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestBuild_LoadsSeedFile(t *testing.T) {
	catalog := memory.SeedPlayers()
	seed := `[{"id":"alice","name":"Alice","currency":5000,"players":["` + catalog[0].ID + `"],"roster":{"lineup":[],"bench":[]}}]`
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	cfg := memoryConfig()
	cfg.LeagueSeedPath = path
	cfg.CacheEnabled = true
	c, err := Build(context.Background(), cfg, logging.NewNop())
	require.NoError(t, err)

	acc, err := c.Services.Ledger.GetAccount(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), acc.Currency)
	assert.True(t, acc.Owns(catalog[0].ID))
}

func TestBuild_RejectsBadRulesFile(t *testing.T) {
	cfg := memoryConfig()
	cfg.LeagueRulesPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Build(context.Background(), cfg, logging.NewNop())
	require.Error(t, err)
}

func TestNewHTTPServer(t *testing.T) {
	c, err := Build(context.Background(), memoryConfig(), logging.NewNop())
	require.NoError(t, err)

	srv, err := NewHTTPServer(c)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	c.Config.HTTPAddr = ""
	_, err = NewHTTPServer(c)
	require.Error(t, err)
}
