package auth

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"time"

	"go.uber.org/zap"

	"github.com/mkarimov/fastauth/internal/config"
)

const maxRequestBody = 1 << 20 // 1MB

type Handler struct {
	service *Service
	config  *config.AppConfig
	log     *zap.Logger
}

func NewHandler(service *Service, cfg *config.AppConfig, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		config:  cfg,
		log:     log,
	}
}

type response struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
}

type registerRequest struct {
	Email string `json:"email"`
}

type registerConfirmRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	OtpCode  string `json:"otp_code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

type setPasswordRequest struct {
	Email           string `json:"email"`
	OtpCode         string `json:"otp_code"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

type activateRequest struct {
	Email   string `json:"email"`
	OtpCode string `json:"otp_code"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest handles POST /auth/register
func (h *Handler) RegisterRequest(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !isValidEmail(req.Email) {
		h.writeError(w, validationError("Invalid email format."))
		return
	}

	message, err := h.service.RegisterRequest(req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response{Data: messageResponse{Message: message}})
}

// RegisterConfirm handles POST /auth/register/confirm
func (h *Handler) RegisterConfirm(w http.ResponseWriter, r *http.Request) {
	var req registerConfirmRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := validateRegisterConfirm(&req); err != nil {
		h.writeError(w, err)
		return
	}

	user, err := h.service.RegisterConfirm(req.Email, req.Username, req.Password, req.OtpCode)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, response{Data: user})
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeError(w, validationError(genericLoginMessage))
		return
	}

	_, access, refresh, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.setRefreshCookie(w, refresh)
	h.writeJSON(w, http.StatusOK, response{Data: tokenResponse{AccessToken: access, TokenType: "bearer"}})
}

// Refresh handles POST /auth/refresh. The refresh token is read from the
// HTTP-only cookie, falling back to the request body.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(h.config.Auth.RefreshCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if !h.decode(w, r, &req) {
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		h.writeError(w, validationError("Missing refresh token."))
		return
	}

	access, refresh, err := h.service.Refresh(token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.setRefreshCookie(w, refresh)
	h.writeJSON(w, http.StatusOK, response{Data: tokenResponse{AccessToken: access, TokenType: "bearer"}})
}

// ResetPasswordRequest handles POST /auth/password/reset
func (h *Handler) ResetPasswordRequest(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !isValidEmail(req.Email) {
		h.writeError(w, validationError("Invalid email format."))
		return
	}

	message, err := h.service.ResetPasswordRequest(req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response{Data: messageResponse{Message: message}})
}

// SetPassword handles POST /auth/password/set
func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.NewPassword) < 8 {
		h.writeError(w, validationError("Password must be at least 8 characters."))
		return
	}

	if err := h.service.SetPassword(req.Email, req.OtpCode, req.NewPassword, req.ConfirmPassword); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{Data: messageResponse{Message: "Password has been reset."}})
}

// ChangePassword handles POST /auth/password/change
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userFromContext(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.NewPassword) < 8 {
		h.writeError(w, validationError("Password must be at least 8 characters."))
		return
	}

	if err := h.service.ChangePassword(userID, req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{Data: messageResponse{Message: "Password changed."}})
}

// UpdateProfile handles PATCH /auth/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userFromContext(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Email != nil && !isValidEmail(*req.Email) {
		h.writeError(w, validationError("Invalid email format."))
		return
	}

	user, message, err := h.service.UpdateProfile(userID, UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{Data: struct {
		User    *User  `json:"user"`
		Message string `json:"message"`
	}{User: user, Message: message}})
}

// Activate handles POST /auth/activate
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.Activate(req.Email, req.OtpCode)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{Data: user})
}

// DeleteAccount handles DELETE /auth/account
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userFromContext(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(userID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userFromContext(w, r)
	if !ok {
		return
	}

	user, err := h.service.Me(userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{Data: user})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, validationError("Invalid request body."))
		return false
	}
	return true
}

func (h *Handler) userFromContext(w http.ResponseWriter, r *http.Request) (uint, bool) {
	userID, err := GetUserFromContext(r.Context())
	if err != nil {
		h.writeError(w, unauthenticatedError("authentication required"))
		return 0, false
	}
	return userID, true
}

// setRefreshCookie transports the refresh token as an HTTP-only, path-scoped,
// same-site-lax cookie whose expiry matches the token TTL. Secure is dropped
// only in debug mode.
func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Auth.RefreshCookieName,
		Value:    token,
		Path:     h.config.Auth.RefreshCookiePath,
		Expires:  time.Now().Add(h.config.Auth.RefreshTokenDuration),
		HttpOnly: true,
		Secure:   !h.config.Server.Debug,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	e := AsError(err)
	if e.Kind == KindInternal || e.Kind == KindConflict {
		h.log.Error("request failed", zap.Error(e))
	}
	h.writeJSON(w, e.HTTPStatus(), response{Error: &errorBody{Message: e.Message}})
}

func validateRegisterConfirm(req *registerConfirmRequest) error {
	if !isValidEmail(req.Email) {
		return validationError("Invalid email format.")
	}
	if len(req.Username) < 4 {
		return validationError("Username must be at least 4 characters.")
	}
	if len(req.Password) < 8 {
		return validationError("Password must be at least 8 characters.")
	}
	if req.OtpCode == "" {
		return validationError("Verification code is required.")
	}
	return nil
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
