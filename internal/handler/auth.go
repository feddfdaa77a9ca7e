package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/apperror"
	"github.com/iliyamo/theatre-box-office/internal/config"
	"github.com/iliyamo/theatre-box-office/internal/logger"
	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/repository"
	"github.com/iliyamo/theatre-box-office/internal/utils"
)

// AuthHandler bundles dependencies for account endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=5,max=128"`
	FirstName string `json:"first_name" validate:"max=64"`
	LastName  string `json:"last_name" validate:"max=64"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type profileReq struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	FirstName string `json:"first_name" validate:"max=64"`
	LastName  string `json:"last_name" validate:"max=64"`
	Password  string `json:"password" validate:"omitempty,min=5,max=128"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    UserResponse `json:"user"`
	Access  tokenPart    `json:"access"`
	Refresh tokenPart    `json:"refresh"`
}

// Register creates a regular (non-staff) account. It does not log in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u := model.User{
		Email:     req.Email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if err := h.Users.Create(ctx, &u, req.Password, h.Cfg.BcryptCost); err != nil {
		return repoErr(err, "user", "email")
	}
	logger.FromContext(ctx, h.Log).Info("user registered", zap.Uint64("user_id", u.ID))
	return c.JSON(http.StatusCreated, newUserResponse(u))
}

// Login verifies email and password and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.Unauthorized("invalid credentials")
	}
	if err != nil {
		return apperror.Internal("load user", err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return apperror.Unauthorized("invalid credentials")
	}
	h.rehash(ctx, u, req.Password)

	resp, err := h.issue(ctx, *u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh exchanges a refresh token for a new pair. The old refresh token
// is revoked, so each one can be used once.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := requestContext(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, oldHash)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return apperror.Internal("validate refresh", err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || !u.IsActive {
		return apperror.Unauthorized("invalid refresh token")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role(), h.Cfg.AccessTTLMin)
	if err != nil {
		return apperror.Internal("issue access", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return apperror.Internal("issue refresh", err)
	}
	err = h.Tokens.RotateRefresh(ctx, u.ID, oldHash, utils.HashRefreshRaw(refresh.Raw), refresh.Exp)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return apperror.Internal("rotate refresh", err)
	}

	return c.JSON(http.StatusOK, authResp{
		User:    newUserResponse(*u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Logout revokes the given refresh token. Unknown tokens are ignored.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))); err != nil {
		return apperror.Internal("revoke refresh", err)
	}
	return noContent(c)
}

func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return repoErr(err, "user", "email")
	}
	return c.JSON(http.StatusOK, newUserResponse(*u))
}

// UpdateMe serves PUT and PATCH on the caller's profile. A new password
// revokes every refresh token of the account.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return repoErr(err, "user", "email")
	}
	var req profileReq
	if c.Request().Method == http.MethodPatch {
		req = profileReq{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
	}
	if err := bind(c, &req); err != nil {
		return err
	}

	u.Email = req.Email
	u.FirstName = strings.TrimSpace(req.FirstName)
	u.LastName = strings.TrimSpace(req.LastName)
	if err := h.Users.UpdateProfile(ctx, u); err != nil {
		return repoErr(err, "user", "email")
	}

	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return apperror.Internal("hash password", err)
		}
		if err := h.Users.SetPasswordHash(ctx, u.ID, hash); err != nil {
			return apperror.Internal("save password", err)
		}
		if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
			return apperror.Internal("revoke tokens", err)
		}
	}
	return c.JSON(http.StatusOK, newUserResponse(*u))
}

func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role(), h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, apperror.Internal("issue access", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, apperror.Internal("issue refresh", err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, apperror.Internal("save refresh", err)
	}
	return authResp{
		User:    newUserResponse(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// rehash upgrades the stored hash after BCRYPT_COST changed. Failures only
// cost another rehash on the next login.
func (h *AuthHandler) rehash(ctx context.Context, u *model.User, password string) {
	if !utils.NeedsRehash(u.PasswordHash, h.Cfg.BcryptCost) {
		return
	}
	hash, err := utils.HashPassword(password, h.Cfg.BcryptCost)
	if err == nil {
		err = h.Users.SetPasswordHash(ctx, u.ID, hash)
	}
	if err != nil {
		logger.FromContext(ctx, h.Log).Warn("password rehash failed", zap.Uint64("user_id", u.ID), zap.Error(err))
	}
}
