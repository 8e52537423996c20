package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/kart-league/internal/platform/logging"
	"github.com/riskibarqy/kart-league/internal/usecase"
)

const (
	defaultSettlementRunLimit = 20
	maxSettlementRunLimit     = 200
	maxImportBodyBytes        = 8 << 20
)

type Handler struct {
	playerService     *usecase.PlayerService
	marketService     *usecase.MarketService
	standingsService  *usecase.StandingsService
	overviewService   *usecase.OverviewService
	bidService        *usecase.BidService
	rosterService     *usecase.RosterService
	settlementService *usecase.SettlementService
	ledgerService     *usecase.LedgerService
	logger            *logging.Logger
	validator         *validator.Validate
}

func NewHandler(
	playerService *usecase.PlayerService,
	marketService *usecase.MarketService,
	standingsService *usecase.StandingsService,
	overviewService *usecase.OverviewService,
	bidService *usecase.BidService,
	rosterService *usecase.RosterService,
	settlementService *usecase.SettlementService,
	ledgerService *usecase.LedgerService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		playerService:     playerService,
		marketService:     marketService,
		standingsService:  standingsService,
		overviewService:   overviewService,
		bidService:        bidService,
		rosterService:     rosterService,
		settlementService: settlementService,
		ledgerService:     ledgerService,
		logger:            logger.Named("handler"),
		validator:         validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeAndValidate reads a strict JSON body into dst and runs its struct tags.
func (h *Handler) decodeAndValidate(r *http.Request, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return h.validateRequest(r.Context(), dst)
}

func requireSession(ctx context.Context) (string, error) {
	s, ok := sessionFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("%w: session is missing from request context", usecase.ErrUnauthorized)
	}
	return s.UserID, nil
}

func pathID(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(r.PathValue(name))
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", usecase.ErrInvalidInput, name)
	}
	return value, nil
}

func parseLimit(raw string, fallback, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", usecase.ErrInvalidInput)
	}
	return min(limit, max), nil
}
