package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/iliyamo/study-spot-reservation/internal/config"
	"github.com/iliyamo/study-spot-reservation/internal/handler"
	"github.com/iliyamo/study-spot-reservation/internal/service"
)

var ServiceModule = fx.Module("service",
	fx.Provide(
		NewAuthSettings,
		fx.Annotate(service.NewSpotRegistry, fx.As(new(handler.SpotService))),
		fx.Annotate(service.NewAvailabilityResolver, fx.As(new(handler.AvailabilityService))),
		fx.Annotate(service.NewReservationService, fx.As(new(handler.ReservationService))),
		fx.Annotate(service.NewReviewAggregator, fx.As(new(handler.ReviewService))),
		fx.Annotate(service.NewAdminReports, fx.As(new(handler.ReportService))),
		service.NewAuthService,
	),
	fx.Invoke(SeedAdmin),
)

func NewAuthSettings(cfg config.Config) service.AuthSettings {
	return service.AuthSettings{
		JWTSecret:  cfg.Auth.JWTSecret,
		AccessTTL:  cfg.Auth.AccessTTL(),
		RefreshTTL: cfg.Auth.RefreshTTL(),
		BcryptCost: cfg.Auth.BcryptCost,
	}
}

// SeedAdmin creates the ADMIN_EMAIL account on start when configured.
func SeedAdmin(lc fx.Lifecycle, cfg config.Config, auth *service.AuthService, log *slog.Logger) {
	if !cfg.Admin.Enabled() {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			created, err := auth.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
			if err != nil {
				return err
			}
			if !created {
				log.InfoContext(ctx, "admin account already present", slog.String("email", cfg.Admin.Email))
			}
			return nil
		},
	})
}
