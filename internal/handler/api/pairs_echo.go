package api

import (
	"encoding/json"
	"net/http"
	"time"

	models "PairPulse/internal/domain/models"
	icache "PairPulse/internal/service/cache"
	"PairPulse/internal/service/metrics"
	"PairPulse/internal/service/ratelimit"
	"PairPulse/internal/usecase"
	pkgcache "PairPulse/pkg/cache"
	xhttp "PairPulse/pkg/http"
	xlogger "PairPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PairsEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
// It exposes the read-only dashboard surface; all data comes from the in-memory
// rolling store and the analyzer snapshot, never from the hot ingestion path.
type PairsEchoHandler struct {
	logger   *xlogger.Logger
	bars     *usecase.BarsUseCase
	analyzer *usecase.PairAnalyzer
	backtest *usecase.BacktestUseCase
	history  *usecase.HistoryUseCase
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
}

func NewPairsEchoHandler(logger *xlogger.Logger, bars *usecase.BarsUseCase, analyzer *usecase.PairAnalyzer, backtest *usecase.BacktestUseCase) *PairsEchoHandler {
	metrics.Register()
	return &PairsEchoHandler{
		logger:   logger,
		bars:     bars,
		analyzer: analyzer,
		backtest: backtest,
		rl:       ratelimit.New(),
	}
}

// SetCache injects an optional response cache for the heavier endpoints.
func (h *PairsEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetHistory enables the archive-backed history endpoint.
func (h *PairsEchoHandler) SetHistory(uc *usecase.HistoryUseCase) { h.history = uc }

func (h *PairsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/bars", h.Bars)
	g.GET("/pair", h.Pair)
	g.GET("/export", h.Export)
	g.GET("/backtest", h.Backtest)
	if h.history.Enabled() {
		g.GET("/history", h.History)
	}
	e.GET("/healthz", h.Health)
}

func (h *PairsEchoHandler) History(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("history").Observe(time.Since(start).Seconds()) }()

	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":history", 5, 2) {
		h.logger.Warn("api.history rate_limited", xlogger.String("remote", c.RealIP()))
		return c.String(http.StatusTooManyRequests, "rate limited")
	}

	res, err := h.history.GetHistory(c.Request().Context(), req.Symbol, req.From, req.To, req.Limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues("history").Inc()
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PairsEchoHandler) Bars(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("bars").Observe(time.Since(start).Seconds()) }()

	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":bars", 10, 5) {
		h.logger.Warn("api.bars rate_limited", xlogger.String("remote", c.RealIP()))
		return c.String(http.StatusTooManyRequests, "rate limited")
	}

	res, err := h.bars.GetBars(req.Symbol, req.Count)
	if err != nil {
		metrics.APIErrors.WithLabelValues("bars").Inc()
		h.logger.Error("bars usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PairsEchoHandler) Pair(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("pair").Observe(time.Since(start).Seconds()) }()

	state := h.analyzer.State()
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=1")
	return xhttp.SuccessResponse(c, state)
}

func (h *PairsEchoHandler) Export(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("export").Observe(time.Since(start).Seconds()) }()

	req := &models.ExportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":export", 5, 2) {
		h.logger.Warn("api.export rate_limited", xlogger.String("remote", c.RealIP()))
		return c.String(http.StatusTooManyRequests, "rate limited")
	}

	recs := h.analyzer.Records(req.Count)
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"count":   len(recs),
		"records": recs,
	})
}

func (h *PairsEchoHandler) Backtest(c echo.Context) error {
	start := time.Now()
	endpoint := "backtest"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":backtest", 3, 1) {
		h.logger.Warn("api.backtest rate_limited", xlogger.String("remote", c.RealIP()))
		return c.String(http.StatusTooManyRequests, "rate limited")
	}

	cacheKey := pkgcache.GenerateKeyWithParams("backtest", req.EntryZ, req.ExitZ, req.Count)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
			h.logger.Warn("api.backtest cache_get_error", xlogger.Error(err))
		} else if ok {
			h.logger.Debug("api.backtest cache_hit", xlogger.String("key", cacheKey))
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	res, err := h.backtest.Run(req.EntryZ, req.ExitZ, req.Count)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("backtest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	}

	if h.cache != nil {
		if b, err := json.Marshal(xhttp.APIResponse{
			Status:  http.StatusOK,
			Message: http.StatusText(http.StatusOK),
			Data:    res,
		}); err == nil {
			if err := h.cache.SetBytes(cacheKey, b, 15*time.Second); err != nil {
				h.logger.Warn("api.backtest cache_set_error", xlogger.Error(err))
			}
		}
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PairsEchoHandler) Health(c echo.Context) error {
	state := h.analyzer.State()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"pair":       state.SymbolA + "/" + state.SymbolB,
		"window_len": state.WindowLen,
	})
}
