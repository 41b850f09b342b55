package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/iliyamo/study-spot-reservation/internal/clock"
	"github.com/iliyamo/study-spot-reservation/internal/errs"
	"github.com/iliyamo/study-spot-reservation/internal/model"
	"github.com/iliyamo/study-spot-reservation/internal/repository"
	"github.com/iliyamo/study-spot-reservation/internal/utils"
)

// bcrypt ignores input beyond 72 bytes and x/crypto rejects it outright.
const maxPasswordBytes = 72

// AuthSettings are the token and hashing parameters.
type AuthSettings struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// Session is what a successful login or refresh returns.
type Session struct {
	User         model.User
	AccessToken  utils.AccessToken
	RefreshToken utils.RefreshToken
}

// AuthService registers users and issues access/refresh token pairs.
type AuthService struct {
	uow   repository.UnitOfWork
	clock clock.Clock
	cfg   AuthSettings
	log   *slog.Logger
}

func NewAuthService(uow repository.UnitOfWork, clk clock.Clock, cfg AuthSettings, log *slog.Logger) *AuthService {
	return &AuthService{uow: uow, clock: clk, cfg: cfg, log: orDiscard(log)}
}

// Register creates a STUDENT account. Admins are provisioned out of band.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return model.User{}, errs.Validation("name", "name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return model.User{}, errs.Validation("email", "email must be a valid email address")
	}
	if err := validatePassword(password); err != nil {
		return model.User{}, err
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}

	u := model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleStudent,
		CreatedAt:    s.clock.Now(),
	}
	err = s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Users().Create(ctx, &u)
	})
	if err != nil {
		return model.User{}, err
	}
	s.log.InfoContext(ctx, "user registered", slog.Uint64("user_id", u.ID))
	u.PasswordHash = ""
	return u, nil
}

// Login checks the credentials and opens a session. Unknown email and
// wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		u, err = tx.Users().GetByEmail(ctx, email)
		return err
	})
	if err != nil {
		if errs.Classify(err) != nil {
			return Session{}, errs.Unauthenticated("invalid email or password")
		}
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, errs.Unauthenticated("invalid email or password")
	}
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	if strings.TrimSpace(raw) == "" {
		return Session{}, errs.Validation("refresh_token", "refresh_token is required")
	}
	now := s.clock.Now()
	hash := utils.HashRefreshRaw(raw)
	var u model.User
	err := s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		tok, err := tx.Tokens().GetByHash(ctx, hash)
		if err != nil || !tok.Active(now) {
			return errs.Unauthenticated("invalid or expired refresh token")
		}
		if u, err = tx.Users().GetByID(ctx, tok.UserID); err != nil {
			return errs.Unauthenticated("invalid or expired refresh token")
		}
		return tx.Tokens().Revoke(ctx, hash, now)
	})
	if err != nil {
		return Session{}, err
	}
	return s.issue(ctx, u)
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errs.Validation("refresh_token", "refresh_token is required")
	}
	now := s.clock.Now()
	return s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Tokens().Revoke(ctx, utils.HashRefreshRaw(raw), now)
	})
}

// UpdateProfile renames the user and, when password is non-empty, sets a
// new password.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, name, password string) (model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, errs.Validation("name", "name is required")
	}
	var hash string
	if password != "" {
		if err := validatePassword(password); err != nil {
			return model.User{}, err
		}
		var err error
		if hash, err = utils.HashPassword(password, s.cfg.BcryptCost); err != nil {
			return model.User{}, err
		}
	}
	var u model.User
	err := s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Users().UpdateProfile(ctx, userID, name, hash); err != nil {
			return err
		}
		var err error
		u, err = tx.Users().GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}

// EnsureAdmin creates an ADMIN account for email unless a user with that
// email already exists. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validatePassword(password); err != nil {
		return false, err
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return false, err
	}
	created := false
	err = s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.Users().GetByEmail(ctx, email)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		u := model.User{
			Name:         strings.TrimSpace(name),
			Email:        email,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
			CreatedAt:    s.clock.Now(),
		}
		if err := tx.Users().Create(ctx, &u); err != nil {
			return err
		}
		created = true
		s.log.InfoContext(ctx, "admin account created", slog.Uint64("user_id", u.ID))
		return nil
	})
	return created, err
}

func (s *AuthService) issue(ctx context.Context, u model.User) (Session, error) {
	now := s.clock.Now()
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.AccessTTL, now)
	if err != nil {
		return Session{}, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTL, now)
	if err != nil {
		return Session{}, err
	}
	err = s.uow.Within(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Tokens().Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp)
	})
	if err != nil {
		return Session{}, err
	}
	u.PasswordHash = ""
	return Session{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

func validatePassword(p string) error {
	if len(p) < utils.MinPasswordLength {
		return errs.Validation("password", "password must be at least %d characters", utils.MinPasswordLength)
	}
	if len(p) > maxPasswordBytes {
		return errs.Validation("password", "password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}
