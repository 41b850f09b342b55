package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/iliyamo/study-spot-reservation/internal/clock"
	"github.com/iliyamo/study-spot-reservation/internal/config"
	"github.com/iliyamo/study-spot-reservation/internal/handler"
	"github.com/iliyamo/study-spot-reservation/internal/middleware"
	"github.com/iliyamo/study-spot-reservation/internal/router"
	"github.com/iliyamo/study-spot-reservation/internal/service"
)

// Spot images may be sent inline as data URIs.
const bodyLimit = "8M"

var HTTPModule = fx.Module("http",
	fx.Provide(
		handler.NewSpotHandler,
		handler.NewReservationHandler,
		handler.NewReviewHandler,
		handler.NewAdminHandler,
		fx.Annotate(handler.NewAuthHandler, fx.From(new(*service.AuthService))),
		NewEcho,
	),
	fx.Invoke(StartServer),
)

type EchoParams struct {
	fx.In

	Config config.Config
	Log    *slog.Logger
	Clock  clock.Clock
	Redis  *redis.Client
	Pinger handler.Pinger

	Spots        *handler.SpotHandler
	Reservations *handler.ReservationHandler
	Reviews      *handler.ReviewHandler
	Admin        *handler.AdminHandler
	Auth         *handler.AuthHandler
}

// NewEcho builds the server: global middlewares first, then the routes.
func NewEcho(p EchoParams) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(p.Log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(p.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: p.Config.CORS.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit(bodyLimit))
	e.Use(middleware.NewTokenBucket(p.Config.RateLimit, p.Redis, p.Log))
	e.Use(middleware.InvalidateOnWrite(p.Config.Cache, p.Redis, p.Log))

	router.Register(e, router.Handlers{
		Spots:        p.Spots,
		Reservations: p.Reservations,
		Reviews:      p.Reviews,
		Admin:        p.Admin,
		Auth:         p.Auth,
		Health:       handler.Health(p.Pinger),
	}, router.Middlewares{
		Auth:  middleware.JWTAuth(p.Config.Auth.JWTSecret, p.Clock),
		Cache: middleware.NewRedisCache(p.Config.Cache, p.Redis, p.Log),
	})
	return e
}

// StartServer listens on APP_PORT once the app starts and drains
// connections on stop. A listener failure shuts the app down.
func StartServer(lc fx.Lifecycle, e *echo.Echo, cfg config.Config, log *slog.Logger, sd fx.Shutdowner) {
	addr := ":" + cfg.App.Port
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting http server", slog.String("addr", addr), slog.String("storage", cfg.App.StorageDriver))
			go func() {
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server failed", slog.String("error", err.Error()))
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping http server")
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return e.Shutdown(ctx)
		},
	})
}
