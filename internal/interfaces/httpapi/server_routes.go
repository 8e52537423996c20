package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicLeagueRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/players", handler.ListPlayers)
	mux.HandleFunc("GET /v1/players/{playerID}", handler.GetPlayer)
	mux.HandleFunc("GET /v1/market", handler.GetMarket)
	mux.HandleFunc("GET /v1/standings", handler.ListStandings)
	mux.HandleFunc("GET /v1/overview", handler.GetOverview)
}

func registerSessionRoutes(mux *http.ServeMux, handler *Handler) {
	mux.Handle("GET /v1/me", RequireSession(http.HandlerFunc(handler.GetMe)))
	mux.Handle("POST /v1/me/bids", RequireSession(http.HandlerFunc(handler.PlaceBid)))
	mux.Handle("DELETE /v1/me/bids/{playerID}", RequireSession(http.HandlerFunc(handler.CancelBid)))
	mux.Handle("POST /v1/me/players/{playerID}/sell", RequireSession(http.HandlerFunc(handler.SellPlayer)))
	mux.Handle("POST /v1/me/players/{playerID}/buyout", RequireSession(http.HandlerFunc(handler.BuyoutPlayer)))
	mux.Handle("POST /v1/me/players/{playerID}/invest", RequireSession(http.HandlerFunc(handler.InvestInPlayer)))
	mux.Handle("PUT /v1/me/lineup", RequireSession(http.HandlerFunc(handler.SetLineup)))
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	internal := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, RequireInternalJobToken(internalJobToken, fn))
	}

	internal("POST /v1/internal/jobs/settle", handler.RunSettlementJob)
	internal("POST /v1/internal/jobs/rotate", handler.RunRotationJob)
	internal("POST /v1/internal/catalog/refresh", handler.RefreshCatalog)
	internal("GET /v1/internal/settlements", handler.ListSettlementRuns)
	internal("GET /v1/internal/bids", handler.ListPendingBids)
	internal("GET /v1/internal/accounts", handler.ListAccounts)
	internal("POST /v1/internal/accounts", handler.CreateAccount)
	internal("POST /v1/internal/accounts/{userID}/currency", handler.AdjustCurrency)
	internal("POST /v1/internal/accounts/{userID}/players", handler.AssignPlayer)
	internal("POST /v1/internal/league/setup", handler.SetupLeague)
	internal("POST /v1/internal/scores", handler.RecordScore)
	internal("POST /v1/internal/ledger/import", handler.ImportLedger)
	internal("GET /v1/internal/ledger/export", handler.ExportLedger)
}
