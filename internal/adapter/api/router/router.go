package router

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusmart/internal/adapter/api"
	"campusmart/internal/adapter/api/handler"
	"campusmart/internal/adapter/api/middleware"
	"campusmart/internal/infrastructure/ratelimit"
)

type Handlers struct {
	Chat      *handler.ChatHandler
	Offer     *handler.OfferHandler
	Like      *handler.LikeHandler
	Listing   *handler.ListingHandler
	User      *handler.UserHandler
	WebSocket *handler.WebSocketHandler
	Health    *handler.HealthHandler
}

type Options struct {
	RequestLimiter *ratelimit.RateLimiter
	MetricsEnabled bool
}

// New builds the echo instance with every route registered.
func New(h Handlers, authMiddleware *middleware.AuthMiddleware, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()

	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(echomiddleware.CORS())
	if opts.RequestLimiter != nil {
		e.Use(middleware.RateLimit(opts.RequestLimiter))
	}

	SetupHealthRouter(e, h.Health, opts.MetricsEnabled)
	SetupChatRouter(e, h.Chat, h.Offer, authMiddleware)
	SetupListingRouter(e, h.Like, h.Listing, authMiddleware)
	SetupUserRouter(e, h.User, authMiddleware)
	SetupWebSocketRouter(e, h.WebSocket, authMiddleware)
	return e
}

func SetupHealthRouter(e *echo.Echo, healthHandler *handler.HealthHandler, metricsEnabled bool) {
	e.GET("/health", healthHandler.CheckHealth)
	if metricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
}
