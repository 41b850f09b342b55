package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/service"
)

// AuthService is the part of service.AuthService the handlers use.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (model.User, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	Refresh(ctx context.Context, raw string) (service.Session, error)
	Logout(ctx context.Context, raw string) error
	UpdateProfile(ctx context.Context, userID uint64, name, password string) (model.User, error)
}

// AuthHandler bundles the account endpoints.
type AuthHandler struct {
	Auth AuthService
}

func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

type registerReq struct {
	// username is accepted for older clients.
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type updateProfileReq struct {
	UserID   uint64 `json:"userId"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    userResp  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toAuthResp(s service.Session) authResp {
	return authResp{
		User:    toUser(s.User),
		Access:  tokenPart{Token: s.AccessToken.Token, Expires: s.AccessToken.Exp},
		Refresh: tokenPart{Token: s.RefreshToken.Raw, Expires: s.RefreshToken.Exp},
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Register: POST /api/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Auth.Register(c.Request().Context(), firstNonEmpty(req.Name, req.Username), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUser(u))
}

// Login: POST /api/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAuthResp(s))
}

// Refresh: POST /api/auth/refresh. The presented token is revoked and a
// new pair issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	s, err := h.Auth.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAuthResp(s))
}

// Logout: POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Auth.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateProfile: PUT /api/profile/update. An empty password keeps the
// current one.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return err
	}
	var req updateProfileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	userID, err := onBehalfOf(a, req.UserID)
	if err != nil {
		return err
	}
	u, err := h.Auth.UpdateProfile(c.Request().Context(), userID, firstNonEmpty(req.Name, req.Username), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUser(u))
}
