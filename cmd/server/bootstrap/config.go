package bootstrap

import (
	"time"

	"go.uber.org/fx"

	"github.com/iliyamo/study-spot-reservation/internal/clock"
	"github.com/iliyamo/study-spot-reservation/internal/config"
)

var ConfigModule = fx.Module("config",
	fx.Provide(
		config.Load,
		NewLocation,
		NewClock,
	),
)

// NewLocation is the zone client timestamps are interpreted in.
func NewLocation(cfg config.Config) (*time.Location, error) {
	return cfg.App.Location()
}

func NewClock(loc *time.Location) clock.Clock {
	return clock.NewReal(loc)
}
