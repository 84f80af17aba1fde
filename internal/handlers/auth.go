package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamtube/backend/internal/auth"
	"github.com/streamtube/backend/internal/logging"
	"github.com/streamtube/backend/internal/middleware"
	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
)

// RefreshCookieName is the cookie carrying the refresh token for browser clients.
const RefreshCookieName = "refreshToken"

// AuthHandler implements the session lifecycle endpoints: register, login,
// logout, refresh, password change, and profile updates.
type AuthHandler struct {
	Users  UserStore
	Tokens TokenManager
	Media  MediaStore

	Limiter    RateLimiter
	BcryptCost int
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	NowFunc    func() time.Time
}

// Register handles POST /api/v1/auth/register requests.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Media == nil {
		logger.Error("registration dependencies unavailable", "hasUsers", h.Users != nil, "hasMedia", h.Media != nil)
		respondError(ctx, w, http.StatusInternalServerError, "registration services unavailable")
		return
	}

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)

	if req.Username == "" || req.Email == "" || req.FullName == "" || strings.TrimSpace(req.Password) == "" {
		logger.Warn("register missing fields", "username", req.Username, "email", req.Email)
		respondError(ctx, w, http.StatusBadRequest, "all fields are required")
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		logger.Warn("register invalid email", "email", req.Email, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	for _, identifier := range []string{req.Username, req.Email} {
		if _, err := h.Users.FindByIdentifier(ctx, identifier); err == nil {
			logger.Warn("register existing account", "identifier", identifier)
			respondError(ctx, w, http.StatusConflict, "user with email or username already exists")
			return
		} else if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("register user lookup failed", "error", err, "identifier", identifier)
			respondError(ctx, w, http.StatusInternalServerError, "unable to verify existing accounts")
			return
		}
	}

	if strings.TrimSpace(req.AvatarPath) == "" {
		respondError(ctx, w, http.StatusBadRequest, "avatar is required")
		return
	}

	avatarURL, err := h.Media.Upload(ctx, req.AvatarPath)
	if err != nil || avatarURL == "" {
		logger.Warn("register avatar upload failed", "path", req.AvatarPath, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "avatar is required")
		return
	}

	coverImageURL := ""
	if strings.TrimSpace(req.CoverImagePath) != "" {
		coverImageURL, err = h.Media.Upload(ctx, req.CoverImagePath)
		if err != nil {
			// The cover asset is optional; a failed upload degrades to none.
			logger.Warn("register cover upload failed", "path", req.CoverImagePath, "error", err)
			coverImageURL = ""
		}
	}

	hashed, err := auth.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      req.Username,
		Email:         req.Email,
		FullName:      req.FullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverImageURL,
		Password:      hashed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := h.Users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("register conflict", "username", req.Username, "email", req.Email)
			respondError(ctx, w, http.StatusConflict, "user with email or username already exists")
			return
		}
		logger.Error("register failed to create user", "error", err, "username", req.Username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to register user")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, created.View(), "user registered successfully")
}

// Login handles POST /api/v1/auth/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Users == nil || h.Tokens == nil {
		logger.Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasTokens", h.Tokens != nil)
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := strings.TrimSpace(strings.ToLower(req.Username))
	if identifier == "" {
		identifier = strings.TrimSpace(strings.ToLower(req.Email))
	}

	if identifier == "" || req.Password == "" {
		logger.Warn("login missing credentials")
		respondError(ctx, w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	user, err := h.Users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("login unknown user", "identifier", identifier)
			respondError(ctx, w, http.StatusNotFound, "user does not exist")
			return
		}
		logger.Error("login user lookup failed", "error", err, "identifier", identifier)
		respondError(ctx, w, http.StatusInternalServerError, "unable to verify credentials")
		return
	}

	if !auth.VerifyPassword(user.Password, req.Password) {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid user credentials")
		return
	}

	pair, err := h.Tokens.IssuePair(ctx, user.ID)
	if err != nil {
		logger.Error("failed to issue token pair", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.setSessionCookies(w, pair)
	respondJSON(ctx, w, http.StatusOK, loginResponse{
		User:         user.View(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/auth/logout for an authenticated caller. It
// clears the stored refresh token and both session cookies.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.Users.UpdateRefreshToken(ctx, claims.UserID(), nil); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("logout failed to clear refresh token", "error", err, "userId", claims.UserID())
		respondError(ctx, w, http.StatusInternalServerError, "failed to log out")
		return
	}

	h.clearSessionCookies(w)
	respondJSON(ctx, w, http.StatusOK, struct{}{}, "user logged out")
}

// Refresh handles POST /api/v1/auth/refresh. The refresh token is read from
// the cookie first, then from the request body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Tokens == nil {
		logger.Error("token service unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "session service unavailable")
		return
	}

	incoming := ""
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		incoming = cookie.Value
	}
	if incoming == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			incoming = strings.TrimSpace(req.RefreshToken)
		}
	}

	if incoming == "" {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	pair, err := h.Tokens.Rotate(ctx, incoming)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenReused):
			logger.Warn("refresh token replay detected")
			respondError(ctx, w, http.StatusUnauthorized, "refresh token is expired or used")
		case errors.Is(err, auth.ErrInvalidToken):
			logger.Warn("invalid refresh token presented")
			respondError(ctx, w, http.StatusUnauthorized, "invalid refresh token")
		default:
			logger.Error("refresh failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		}
		return
	}

	h.setSessionCookies(w, pair)
	respondJSON(ctx, w, http.StatusOK, pair, "access token refreshed successfully")
}

// ChangePassword handles POST /api/v1/auth/change-password for an
// authenticated caller.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid change-password payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.NewPassword == "" || req.NewPassword != req.ConfirmPassword {
		respondError(ctx, w, http.StatusBadRequest, "new password and confirmation do not match")
		return
	}

	user, err := h.Users.FindByID(ctx, claims.UserID())
	if err != nil {
		logger.Error("change-password user lookup failed", "error", err, "userId", claims.UserID())
		respondError(ctx, w, http.StatusInternalServerError, "unable to verify credentials")
		return
	}

	if !auth.VerifyPassword(user.Password, req.OldPassword) {
		respondError(ctx, w, http.StatusBadRequest, "invalid old password")
		return
	}

	// The only field changing is the password, so this is the one write
	// path that re-hashes.
	hashed, err := auth.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		logger.Error("change-password failed to hash", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		logger.Error("change-password update failed", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to change password")
		return
	}

	respondJSON(ctx, w, http.StatusOK, struct{}{}, "password changed successfully")
}

// Me handles /api/v1/users/me: GET returns the current user view, PATCH
// updates the mutable identity fields.
func (h AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.currentUser(w, r)
	case http.MethodPatch:
		h.updateAccount(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.Users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user does not exist")
			return
		}
		logging.FromContext(ctx).Error("current-user lookup failed", "error", err, "userId", claims.UserID())
		respondError(ctx, w, http.StatusInternalServerError, "unable to load user")
		return
	}

	respondJSON(ctx, w, http.StatusOK, user.View(), "current user fetched successfully")
}

func (h AuthHandler) updateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid account update payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.FullName == "" || req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "full name and email are required")
		return
	}

	updated, err := h.Users.UpdateProfile(ctx, claims.UserID(), req.FullName, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "email already in use")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "user does not exist")
		default:
			logger.Error("account update failed", "error", err, "userId", claims.UserID())
			respondError(ctx, w, http.StatusInternalServerError, "failed to update account")
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated.View(), "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/me/avatar.
func (h AuthHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateAsset(w, r, "avatar", h.Users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/me/cover.
func (h AuthHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateAsset(w, r, "cover image", h.Users.UpdateCoverImage)
}

func (h AuthHandler) updateAsset(w http.ResponseWriter, r *http.Request, label string, apply func(ctx context.Context, userID, url string) (models.User, error)) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid asset update payload", "asset", label, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Path) == "" {
		respondError(ctx, w, http.StatusBadRequest, label+" file is required")
		return
	}

	url, err := h.Media.Upload(ctx, req.Path)
	if err != nil || url == "" {
		logger.Warn("asset upload failed", "asset", label, "path", req.Path, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "failed to upload "+label)
		return
	}

	updated, err := apply(ctx, claims.UserID(), url)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user does not exist")
			return
		}
		logger.Error("asset update failed", "asset", label, "error", err, "userId", claims.UserID())
		respondError(ctx, w, http.StatusInternalServerError, "failed to update "+label)
		return
	}

	respondJSON(ctx, w, http.StatusOK, updated.View(), label+" updated successfully")
}

type registerRequest struct {
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	AvatarPath     string `json:"avatarPath"`
	CoverImagePath string `json:"coverImagePath"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type updateAssetRequest struct {
	Path string `json:"path"`
}

type loginResponse struct {
	User         models.UserView `json:"user"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func (h AuthHandler) setSessionCookies(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, sessionCookie(middleware.AccessCookieName, pair.AccessToken, int(h.AccessTTL.Seconds())))
	http.SetCookie(w, sessionCookie(RefreshCookieName, pair.RefreshToken, int(h.RefreshTTL.Seconds())))
}

func (h AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie(middleware.AccessCookieName, "", -1))
	http.SetCookie(w, sessionCookie(RefreshCookieName, "", -1))
}

func sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
