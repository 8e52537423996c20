package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/riskibarqy/kart-league/internal/config"
	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/player"
	cacherepo "github.com/riskibarqy/kart-league/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/kart-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/kart-league/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/kart-league/internal/interfaces/httpapi"
	"github.com/riskibarqy/kart-league/internal/platform/cache"
	"github.com/riskibarqy/kart-league/internal/platform/dburl"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
	"github.com/riskibarqy/kart-league/internal/platform/resilience"
	"github.com/riskibarqy/kart-league/internal/usecase"
)

const dbPingTimeout = 5 * time.Second

type Services struct {
	Players     *usecase.PlayerService
	Market      *usecase.MarketService
	Standings   *usecase.StandingsService
	Overview    *usecase.OverviewService
	Bids        *usecase.BidService
	Roster      *usecase.RosterService
	Settlements *usecase.SettlementService
	Ledger      *usecase.LedgerService
	Cycle       *usecase.CycleService
}

// Container owns the storage handles and every usecase service built on top of them.
type Container struct {
	Config   config.Config
	Rules    config.LeagueRules
	Services Services

	db     *sqlx.DB
	logger *logging.Logger
}

// Build loads league rules, opens the configured storage and wires services.
func Build(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Container, error) {
	if logger == nil {
		logger = logging.Default()
	}

	rules, err := config.LoadRules(cfg.LeagueRulesPath)
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, Rules: rules, logger: logger}

	var (
		store   ledger.Store
		players player.Repository
	)
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := openDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.db = db
		store = postgres.NewLedgerStore(db, postgres.LedgerStoreOptions{
			Breaker: storageBreaker(cfg, logger),
			Logger:  logger,
		})
		players = postgres.NewPlayerRepository(db)
	default:
		catalog := memory.SeedPlayers()
		var accounts []ledger.Account
		if cfg.LeagueSeedPath != "" {
			accounts, err = memory.LoadSeedFile(cfg.LeagueSeedPath, catalog, rules.Economy)
			if err != nil {
				return nil, err
			}
		}
		store = memory.NewLedgerStore(accounts...)
		players = memory.NewPlayerRepository(catalog)
		logger.Info("using in-memory ledger", "players", len(catalog), "accounts", len(accounts))
	}

	if cfg.CacheEnabled {
		players = cacherepo.NewPlayerRepository(players, cache.NewStore(cfg.CacheTTL))
	}

	c.Services = newServices(cfg, rules, store, players, logger)
	return c, nil
}

func newServices(cfg config.Config, rules config.LeagueRules, store ledger.Store, players player.Repository, logger *logging.Logger) Services {
	playerSvc := usecase.NewPlayerService(players)
	marketSvc := usecase.NewMarketService(store, players, rules.Market, nil, logger)
	standingsSvc := usecase.NewStandingsService(store, cfg.StandingsWorkers, logger)
	settlementSvc := usecase.NewSettlementService(store, rules.Economy, nil, logger)

	return Services{
		Players:     playerSvc,
		Market:      marketSvc,
		Standings:   standingsSvc,
		Overview:    usecase.NewOverviewService(playerSvc, marketSvc, standingsSvc, settlementSvc),
		Bids:        usecase.NewBidService(store, players, rules.Economy, logger),
		Roster:      usecase.NewRosterService(store, players, rules.Economy, logger),
		Settlements: settlementSvc,
		Ledger:      usecase.NewLedgerService(store, players, rules.Economy, nil, logger),
		Cycle: usecase.NewCycleService(settlementSvc, marketSvc, usecase.CycleConfig{
			SettlementHourUTC: cfg.SettlementHourUTC,
			JobTimeout:        cfg.WorkerJobTimeout,
		}, logger),
	}
}

func (c *Container) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func NewHTTPServer(c *Container) (*http.Server, error) {
	cfg := c.Config
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	s := c.Services
	handler := httpapi.NewHandler(
		s.Players,
		s.Market,
		s.Standings,
		s.Overview,
		s.Bids,
		s.Roster,
		s.Settlements,
		s.Ledger,
		c.logger,
	)
	router := httpapi.NewRouter(handler, c.logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is required for the postgres storage driver")
	}

	db, err := otelsqlx.Open("postgres", dburl.Normalize(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dburl.Name(cfg.DBURL)),
		otelsql.WithQueryFormatter(traceQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
		db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	}
	otelsql.ReportDBStatsMetrics(db.DB)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func storageBreaker(cfg config.Config, logger *logging.Logger) *resilience.CircuitBreaker {
	if !cfg.StorageCircuitEnabled {
		return nil
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.StorageCircuitFailureCount,
		OpenTimeout:      cfg.StorageCircuitOpenTimeout,
		HalfOpenMaxReq:   cfg.StorageCircuitHalfOpenMaxReq,
	})
	breaker.OnStateChange(func(from, to resilience.CircuitState) {
		logger.Warn("storage circuit state changed", "from", string(from), "to", string(to))
	})
	return breaker
}
