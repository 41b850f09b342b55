package bootstrap_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/iliyamo/study-spot-reservation/cmd/server/bootstrap"
)

// memoryEnv configures a self-contained app: memory storage, no Redis, no
// broker, a seeded admin.
func memoryEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"RABBITMQ_URL", "DB_USER", "DB_NAME", "LOG_LEVEL"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("APP_PORT", "0")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("JWT_SECRET", "bootstrap-secret")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("ADMIN_PASSWORD", "adminpass")
}

func TestModuleGraph(t *testing.T) {
	require.NoError(t, fx.ValidateApp(bootstrap.Module))
}

func TestAppServesWithMemoryStorage(t *testing.T) {
	memoryEnv(t)

	var e *echo.Echo
	app := fxtest.New(t, bootstrap.Module, fx.NopLogger, fx.Populate(&e))
	app.RequireStart()
	defer app.RequireStop()

	serve := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(http.MethodPost, "/api/login", `{"email":"admin@example.com","password":"adminpass"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"role":"ADMIN"`)
	require.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = serve(http.MethodGet, "/api/spots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}
