package bootstrap

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"

	"github.com/iliyamo/study-spot-reservation/internal/config"
)

var LoggerModule = fx.Module("logger",
	fx.Provide(
		NewLogger,
	),
)

// NewLogger writes JSON lines to stdout at LOG_LEVEL. Unknown levels fall
// back to info.
func NewLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Log.Level))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("env", cfg.App.Env))
}
