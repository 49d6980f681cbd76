package api

import (
	"context"
	"errors"
	"net/http"

	"CoinPull/internal/domain/models"
	xhttp "CoinPull/pkg/http"
	xlogger "CoinPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TickerService is implemented by usecase.TickerUseCase.
type TickerService interface {
	Coins() []models.Coin
	GetTicker(ctx context.Context, coin string, days int) (*models.Ticker, error)
}

// TickerEchoHandler serves coin options and cached price series.
type TickerEchoHandler struct {
	logger *xlogger.Logger
	svc    TickerService
}

func NewTickerEchoHandler(logger *xlogger.Logger, svc TickerService) *TickerEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &TickerEchoHandler{logger: logger, svc: svc}
}

func (h *TickerEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/coins", h.Coins)
	g.GET("/ticker/:coin", h.Ticker)
}

func (h *TickerEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TickerEchoHandler) Coins(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.svc.Coins())
}

func (h *TickerEchoHandler) Ticker(c echo.Context) error {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.GetTicker(c.Request().Context(), req.Coin, req.Days)
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Warn("ticker fetch failed",
				xlogger.String("coin", req.Coin),
				xlogger.Int("days", req.Days),
				xlogger.Error(err),
			)
		}
		return xhttp.AppErrorResponse(c, appErr)
	}

	// the series cannot change before the bucket rolls over
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

// toAppError maps a fetch failure kind to its HTTP form.
func toAppError(err error) *xhttp.AppError {
	var fe *models.FetchError
	if !errors.As(err, &fe) {
		return xhttp.BadRequestError(err.Error()).WithError(err)
	}

	var appErr *xhttp.AppError
	switch fe.Kind {
	case models.KindNotFound:
		appErr = xhttp.NotFoundError("coin not found")
	case models.KindEmpty:
		appErr = xhttp.NewAppError("ERR_EMPTY_SERIES", "", "no price data for this window", http.StatusNotFound)
	case models.KindRateLimited:
		appErr = xhttp.TooManyRequestsError("upstream rate limit reached, try again later")
	case models.KindTimeout:
		appErr = xhttp.GatewayTimeoutError("upstream request timed out")
	case models.KindNetworkFailure:
		appErr = xhttp.BadGatewayError("ERR_UPSTREAM_UNAVAILABLE", "upstream unreachable")
	case models.KindMalformed:
		appErr = xhttp.BadGatewayError("ERR_UPSTREAM_MALFORMED", "upstream returned an unexpected response")
	default:
		appErr = xhttp.InternalError("unexpected fetch failure")
	}
	return appErr.WithParam("kind", string(fe.Kind)).WithParam("detail", fe.Detail).WithError(err)
}
