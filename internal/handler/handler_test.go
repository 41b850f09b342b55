package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/handler"
	"github.com/iliyamo/study-spot-reservation/internal/middleware"
	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/service"
	"github.com/iliyamo/study-spot-reservation/internal/utils"
)

var (
	student = model.Actor{UserID: 7, Role: model.RoleStudent}
	admin   = model.Actor{UserID: 1, Role: model.RoleAdmin}
	loc     = time.FixedZone("TRT", 3*60*60)
)

// ----- fakes -----

type fakeReservations struct {
	create      func(service.CreateReservationInput) (model.Reservation, error)
	cancel      func(uint64, model.Actor) error
	listForUser func(uint64) ([]model.ReservationView, error)
}

func (f *fakeReservations) Create(_ context.Context, in service.CreateReservationInput) (model.Reservation, error) {
	return f.create(in)
}

func (f *fakeReservations) Cancel(_ context.Context, id uint64, a model.Actor) error {
	return f.cancel(id, a)
}

func (f *fakeReservations) Get(context.Context, uint64, model.Actor) (model.Reservation, error) {
	return model.Reservation{}, errs.NotFound("reservation not found")
}

func (f *fakeReservations) ListForUser(_ context.Context, userID uint64) ([]model.ReservationView, error) {
	return f.listForUser(userID)
}

func (f *fakeReservations) ListForSpot(context.Context, uint64) ([]model.ReservationView, error) {
	return nil, nil
}

func (f *fakeReservations) ListAll(context.Context) ([]model.ReservationView, error) {
	return nil, nil
}

type fakeSpots struct {
	create func(service.SpotInput) (model.Spot, error)
	list   func(string) ([]model.Spot, error)

	availabilityCalls int
}

func (f *fakeSpots) Create(_ context.Context, in service.SpotInput) (model.Spot, error) {
	return f.create(in)
}

func (f *fakeSpots) List(_ context.Context, q string) ([]model.Spot, error) { return f.list(q) }

func (f *fakeSpots) Delete(context.Context, uint64) error { return nil }

func (f *fakeSpots) SetAvailability(context.Context, uint64, bool) error {
	f.availabilityCalls++
	return nil
}

func (f *fakeSpots) UpdateCapacity(context.Context, uint64, int) error { return nil }

func (f *fakeSpots) Get(_ context.Context, id uint64) (model.Spot, error) {
	return model.Spot{}, errs.NotFound("spot %d not found", id)
}

type fakeAvailability struct {
	gotStart, gotEnd time.Time
	seats            []int
}

func (f *fakeAvailability) OccupiedSeats(_ context.Context, _ uint64, start, end time.Time) ([]int, error) {
	f.gotStart, f.gotEnd = start, end
	return f.seats, nil
}

type fakeReports struct {
	stats service.Stats

	gotOp   string
	gotA    uint64
	gotB    uint64
	setsErr error
}

func (f *fakeReports) Stats(context.Context) (service.Stats, error) { return f.stats, nil }

func (f *fakeReports) LoyalUsers(context.Context) ([]model.User, error) {
	return []model.User{{ID: 3, Name: "ali", Email: "ali@example.com", Role: model.RoleStudent}}, nil
}

func (f *fakeReports) InactiveUsers(context.Context) ([]model.User, error) { return nil, nil }

func (f *fakeReports) ListUsers(context.Context) ([]model.User, error) { return nil, nil }

func (f *fakeReports) SpotUserSets(_ context.Context, op string, a, b uint64) ([]model.User, error) {
	f.gotOp, f.gotA, f.gotB = op, a, b
	if f.setsErr != nil {
		return nil, f.setsErr
	}
	return []model.User{{ID: 3, Name: "ali", Email: "ali@example.com", Role: model.RoleStudent}}, nil
}

type fakeAuth struct {
	login func(email, password string) (service.Session, error)
}

func (f fakeAuth) Register(context.Context, string, string, string) (model.User, error) {
	return model.User{}, errs.AlreadyExists("email already registered")
}

func (f fakeAuth) Login(_ context.Context, email, password string) (service.Session, error) {
	return f.login(email, password)
}

func (f fakeAuth) Refresh(context.Context, string) (service.Session, error) {
	return service.Session{}, errs.Unauthenticated("invalid refresh token")
}

func (f fakeAuth) Logout(context.Context, string) error { return nil }

func (f fakeAuth) UpdateProfile(context.Context, uint64, string, string) (model.User, error) {
	return model.User{}, nil
}

// ----- helpers -----

// newEcho returns an echo instance with the production error handler.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return e
}

// as injects a into the context the way JWTAuth does.
func as(a model.Actor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.KeyUserID, a.UserID)
			c.Set(middleware.KeyRole, a.Role)
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
	Field  string `json:"field"`
}

// ----- tests -----

func TestErrorHandler(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		want   errBody
	}{
		{
			name:   "validation carries field",
			err:    errs.Validation("seatNumber", "seat must be between 1 and %d", 4),
			status: http.StatusBadRequest,
			want:   errBody{Detail: "seat must be between 1 and 4", Code: "VALIDATION", Field: "seatNumber"},
		},
		{
			name:   "conflict verbatim",
			err:    errs.Conflict("seat %d is already booked for this time range", 3),
			status: http.StatusConflict,
			want:   errBody{Detail: "seat 3 is already booked for this time range", Code: "CONFLICT"},
		},
		{
			name:   "wrapped precondition",
			err:    errs.Wrap(errs.FailedPrecondition("spot has active reservations"), "delete spot"),
			status: http.StatusConflict,
			want:   errBody{Detail: "spot has active reservations", Code: "FAILED_PRECONDITION"},
		},
		{
			name:   "already exists",
			err:    errs.AlreadyExists("reservation 1 has already been reviewed"),
			status: http.StatusConflict,
			want:   errBody{Detail: "reservation 1 has already been reviewed", Code: "ALREADY_EXISTS"},
		},
		{
			name:   "forbidden",
			err:    errs.Forbidden("nope"),
			status: http.StatusForbidden,
			want:   errBody{Detail: "nope", Code: "FORBIDDEN"},
		},
		{
			name:   "internal hides cause",
			err:    errs.Wrap(context.DeadlineExceeded, "select spot"),
			status: http.StatusInternalServerError,
			want:   errBody{Detail: "internal server error", Code: "INTERNAL"},
		},
		{
			name:   "echo error",
			err:    echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"),
			status: http.StatusTooManyRequests,
			want:   errBody{Detail: "rate limit exceeded", Code: "RATE_LIMITED"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEcho()
			e.GET("/x", func(echo.Context) error { return tc.err })

			rec := do(e, http.MethodGet, "/x", "")

			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.want, decode[errBody](t, rec))
		})
	}
}

func TestReservationCreate(t *testing.T) {
	var got service.CreateReservationInput
	fake := &fakeReservations{create: func(in service.CreateReservationInput) (model.Reservation, error) {
		got = in
		if in.SeatNumber == 3 {
			return model.Reservation{}, errs.Conflict("seat 3 is already booked for this time range")
		}
		return model.Reservation{
			ID: 11, UserID: in.UserID, SpotID: in.SpotID, SeatNumber: in.SeatNumber,
			Start: in.Start, End: in.End, Status: model.StatusActive, CreatedAt: in.Start,
		}, nil
	}}
	h := handler.NewReservationHandler(fake, loc)

	e := newEcho()
	e.POST("/student", h.Create, as(student))
	e.POST("/admin", h.Create, as(admin))

	t.Run("defaults to caller", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/student",
			`{"spotId":2,"seatNumber":1,"start":"2024-05-01T14:00","end":"2024-05-01T16:00:00"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.Equal(t, student.UserID, got.UserID)
		require.Equal(t, time.Date(2024, 5, 1, 14, 0, 0, 0, loc), got.Start)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, "2024-05-01T16:00:00", body["end"])
		assert.Equal(t, "ACTIVE", body["status"])
		assert.NotContains(t, body, "hasReviewed")
	})

	t.Run("student cannot book for someone else", func(t *testing.T) {
		got = service.CreateReservationInput{}
		rec := do(e, http.MethodPost, "/student",
			`{"userId":8,"spotId":2,"seatNumber":1,"start":"2024-05-01T14:00","end":"2024-05-01T16:00"}`)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Zero(t, got.SpotID, "service must not be called")
	})

	t.Run("admin books for a student", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/admin",
			`{"userId":8,"spotId":2,"seatNumber":1,"start":"2024-05-01T14:00","end":"2024-05-01T16:00"}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Equal(t, uint64(8), got.UserID)
	})

	t.Run("conflict surfaces detail", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/student",
			`{"spotId":2,"seatNumber":3,"start":"2024-05-01T15:00","end":"2024-05-01T17:00"}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "seat 3 is already booked for this time range", decode[errBody](t, rec).Detail)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/student",
			`{"spotId":2,"seatNumber":1,"start":"2024-05-01T14:00:00+03:00","end":"2024-05-01T16:00"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "start", decode[errBody](t, rec).Field)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/student", `{"spotId":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReservationCancel(t *testing.T) {
	var gotID uint64
	var gotActor model.Actor
	fake := &fakeReservations{cancel: func(id uint64, a model.Actor) error {
		gotID, gotActor = id, a
		if id == 99 {
			return errs.NotFound("reservation 99 not found")
		}
		return nil
	}}
	h := handler.NewReservationHandler(fake, loc)
	e := newEcho()
	e.PUT("/api/reservations/:id/cancel", h.Cancel, as(student))

	rec := do(e, http.MethodPut, "/api/reservations/5/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uint64(5), gotID)
	require.Equal(t, student, gotActor)

	rec = do(e, http.MethodPut, "/api/reservations/99/cancel", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPut, "/api/reservations/abc/cancel", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	var gotUser uint64
	fake := &fakeReservations{listForUser: func(userID uint64) ([]model.ReservationView, error) {
		gotUser = userID
		return []model.ReservationView{{
			Reservation:     model.Reservation{ID: 1, UserID: userID, SpotID: 2, SeatNumber: 1},
			EffectiveStatus: model.StatusCompleted,
			SpotName:        "Library",
			HasReviewed:     false,
		}}, nil
	}}
	h := handler.NewReservationHandler(fake, loc)
	e := newEcho()
	e.GET("/student", h.History, as(student))
	e.GET("/admin", h.History, as(admin))

	rec := do(e, http.MethodGet, "/student", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, student.UserID, gotUser)
	items := decode[[]map[string]any](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "COMPLETED", items[0]["status"])
	assert.Equal(t, false, items[0]["hasReviewed"])

	rec = do(e, http.MethodGet, "/student?user_id=8", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodGet, "/admin?user_id=8", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, uint64(8), gotUser)
}

func TestSpotHandlers(t *testing.T) {
	spots := &fakeSpots{
		create: func(in service.SpotInput) (model.Spot, error) {
			return model.Spot{ID: 4, Name: in.Name, Capacity: in.Capacity, Features: in.Features, IsAvailable: !in.Unavailable}, nil
		},
		list: func(q string) ([]model.Spot, error) {
			if q == "none" {
				return nil, nil
			}
			return []model.Spot{{ID: 1, Name: "Library", Capacity: 10, Rating: model.RatingAggregate{Average: 4.5, Count: 2}}}, nil
		},
	}
	avail := &fakeAvailability{seats: []int{}}
	h := handler.NewSpotHandler(spots, avail, loc)

	e := newEcho()
	e.GET("/api/spots", h.List)
	e.GET("/api/spots/:id/occupied", h.Occupied)
	e.POST("/api/admin/add-spot", h.Create)

	t.Run("list", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/api/spots", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t,
			`[{"id":1,"name":"Library","capacity":10,"features":[],"isAvailable":false,"imageUrl":"","rating":{"average":4.5,"count":2}}]`,
			rec.Body.String())

		rec = do(e, http.MethodGet, "/api/spots?q=none", "")
		require.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("occupied", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/api/spots/1/occupied?date=2024-05-01&start=14:00&end=16:30", "")

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, time.Date(2024, 5, 1, 14, 0, 0, 0, loc), avail.gotStart)
		require.Equal(t, time.Date(2024, 5, 1, 16, 30, 0, 0, loc), avail.gotEnd)
		require.JSONEq(t,
			`{"spotId":1,"start":"2024-05-01T14:00:00","end":"2024-05-01T16:30:00","occupiedSeats":[]}`,
			rec.Body.String())
	})

	t.Run("occupied missing date", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/api/spots/1/occupied?start=14:00&end=16:30", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/api/admin/add-spot", `{"name":"Lab","capacity":6,"features":["Wifi"]}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, float64(4), body["id"])
		assert.Equal(t, []any{"Wifi"}, body["features"])
		assert.Equal(t, true, body["isAvailable"])
	})

	t.Run("create in maintenance mode", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/api/admin/add-spot", `{"name":"Lab","capacity":6,"isAvailable":false}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, false, body["isAvailable"])
		assert.Zero(t, spots.availabilityCalls, "the flag is stored by Create itself")
	})
}

func TestAdminStats(t *testing.T) {
	h := handler.NewAdminHandler(&fakeReports{stats: service.Stats{
		ActiveReservations: 1, AvailableSpots: 2, AverageSiteRating: 4.3, TotalStudents: 3,
	}})
	e := newEcho()
	e.GET("/api/admin/stats", h.Stats)
	e.GET("/api/admin/analysis/loyal-users", h.LoyalUsers)
	e.GET("/api/admin/analysis/inactive-users", h.InactiveUsers)

	rec := do(e, http.MethodGet, "/api/admin/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t,
		`{"activeReservations":1,"availableSpots":2,"averageSiteRating":4.3,"totalStudents":3}`,
		rec.Body.String())

	rec = do(e, http.MethodGet, "/api/admin/analysis/loyal-users", "")
	users := decode[[]map[string]any](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, "ali", users[0]["name"])
	assert.NotContains(t, users[0], "passwordHash")

	rec = do(e, http.MethodGet, "/api/admin/analysis/inactive-users", "")
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestAdminSpotUserSets(t *testing.T) {
	reports := &fakeReports{}
	h := handler.NewAdminHandler(reports)
	e := newEcho()
	e.GET("/api/admin/analysis/loyal-users", h.LoyalUsers)
	e.GET("/api/admin/analysis/:op", h.SpotUserSets)

	rec := do(e, http.MethodGet, "/api/admin/analysis/intersect?spot_a=4&spot_b=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "intersect", reports.gotOp)
	assert.Equal(t, uint64(4), reports.gotA)
	assert.Equal(t, uint64(7), reports.gotB)
	users := decode[[]map[string]any](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, "ali", users[0]["name"])

	rec = do(e, http.MethodGet, "/api/admin/analysis/union", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(1), reports.gotA)
	assert.Equal(t, uint64(2), reports.gotB)

	rec = do(e, http.MethodGet, "/api/admin/analysis/except?spot_a=x", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	reports.setsErr = errs.Validation("op", "op must be one of union, intersect or except")
	rec = do(e, http.MethodGet, "/api/admin/analysis/xor", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	reports.gotOp = ""
	do(e, http.MethodGet, "/api/admin/analysis/loyal-users", "")
	assert.Empty(t, reports.gotOp, "static analysis routes win over :op")
}

func TestAuthHandlers(t *testing.T) {
	exp := time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC)
	h := handler.NewAuthHandler(fakeAuth{login: func(email, password string) (service.Session, error) {
		if password != "secret1" {
			return service.Session{}, errs.Unauthenticated("invalid email or password")
		}
		return service.Session{
			User:         model.User{ID: 7, Name: "ayse", Email: email, Role: model.RoleStudent},
			AccessToken:  utils.AccessToken{Token: "access", Exp: exp},
			RefreshToken: utils.RefreshToken{Raw: "refresh", Exp: exp.Add(time.Hour)},
		}, nil
	}})
	e := newEcho()
	e.POST("/api/login", h.Login)
	e.POST("/api/register", h.Register)
	e.POST("/api/auth/refresh", h.Refresh)

	rec := do(e, http.MethodPost, "/api/login", `{"email":"ayse@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]map[string]any](t, rec)
	assert.Equal(t, "access", body["access"]["token"])
	assert.Equal(t, "refresh", body["refresh"]["token"])
	assert.Equal(t, "ayse@example.com", body["user"]["email"])

	rec = do(e, http.MethodPost, "/api/login", `{"email":"ayse@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/api/register", `{"username":"ayse","email":"ayse@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "ALREADY_EXISTS", decode[errBody](t, rec).Code)

	rec = do(e, http.MethodPost, "/api/auth/refresh", `{"refresh_token":"stale"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newEcho()
	e.GET("/healthz", handler.Health(nil))

	rec := do(e, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
