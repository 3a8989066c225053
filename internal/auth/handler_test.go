package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *testEnv) {
	env := newTestEnv(t)
	return NewHandler(env.service, env.config, newTestLogger(t)), env
}

func doJSON(t *testing.T, h http.HandlerFunc, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func asUser(userID uint) func(*http.Request) {
	return func(req *http.Request) {
		*req = *req.WithContext(context.WithValue(req.Context(), UserContextKey, userID))
	}
}

func TestHandler_RegisterRequest(t *testing.T) {
	h, env := newTestHandler(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{
			name:       "valid email",
			body:       map[string]string{"email": "new@example.com"},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "invalid email",
			body:       map[string]string{"email": "not-an-email"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       "not json",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h.RegisterRequest, http.MethodPost, "/auth/register", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	assert.Equal(t, 1, env.mailer.count())
}

func TestHandler_RegisterConfirm(t *testing.T) {
	h, env := newTestHandler(t)
	email := "confirm@example.com"
	code := issueOtpFor(t, env, email)

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{
			name: "short username",
			body: map[string]string{
				"email": email, "username": "abc", "password": "password123", "otp_code": code,
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "short password",
			body: map[string]string{
				"email": email, "username": "newuser", "password": "short", "otp_code": code,
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "wrong code",
			body: map[string]string{
				"email": email, "username": "newuser", "password": "password123", "otp_code": "000000",
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "valid confirmation",
			body: map[string]string{
				"email": email, "username": "newuser", "password": "password123", "otp_code": code,
			},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h.RegisterConfirm, http.MethodPost, "/auth/register/confirm", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandler_LoginSetsRefreshCookie(t *testing.T) {
	h, env := newTestHandler(t)
	registerUser(t, env, "loginuser", "login@example.com", "password123")

	rec := doJSON(t, h.Login, http.MethodPost, "/auth/login", map[string]string{
		"email":    "login@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data tokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.AccessToken)
	assert.Equal(t, "bearer", body.Data.TokenType)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "refresh_token", cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/auth/refresh", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Expires.IsZero())
	// Secure is dropped in debug mode only.
	assert.False(t, cookie.Secure)
}

func TestHandler_LoginGenericFailure(t *testing.T) {
	h, env := newTestHandler(t)
	registerUser(t, env, "loginuser", "login@example.com", "password123")

	wrongPassword := doJSON(t, h.Login, http.MethodPost, "/auth/login", map[string]string{
		"email":    "login@example.com",
		"password": "wrong",
	})
	unknownEmail := doJSON(t, h.Login, http.MethodPost, "/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "password123",
	})

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, http.StatusBadRequest, unknownEmail.Code)
	// Identical responses: user existence is not observable.
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestHandler_RefreshFromCookie(t *testing.T) {
	h, env := newTestHandler(t)
	user := registerUser(t, env, "refresher", "refresh@example.com", "password123")

	_, refresh, err := env.tokens.IssuePair(user.ID, user.Email)
	require.NoError(t, err)

	withCookie := func(value string) func(*http.Request) {
		return func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: "refresh_token", Value: value})
		}
	}

	first := doJSON(t, h.Refresh, http.MethodPost, "/auth/refresh", nil, withCookie(refresh))
	require.Equal(t, http.StatusOK, first.Code)
	require.Len(t, first.Result().Cookies(), 1)
	assert.NotEqual(t, refresh, first.Result().Cookies()[0].Value)

	// Replaying the consumed token is forbidden.
	second := doJSON(t, h.Refresh, http.MethodPost, "/auth/refresh", nil, withCookie(refresh))
	assert.Equal(t, http.StatusForbidden, second.Code)

	// Garbage tokens are a bad request.
	garbage := doJSON(t, h.Refresh, http.MethodPost, "/auth/refresh", nil, withCookie("garbage"))
	assert.Equal(t, http.StatusBadRequest, garbage.Code)

	// Body fallback works when no cookie is set.
	fresh := first.Result().Cookies()[0].Value
	body := doJSON(t, h.Refresh, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": fresh})
	assert.Equal(t, http.StatusOK, body.Code)
}

func TestHandler_SetPassword(t *testing.T) {
	h, env := newTestHandler(t)
	registerUser(t, env, "setter", "set@example.com", "old-password")
	code := issueOtpFor(t, env, "set@example.com")

	mismatch := doJSON(t, h.SetPassword, http.MethodPost, "/auth/password/set", map[string]string{
		"email": "set@example.com", "otp_code": code,
		"new_password": "new-password", "confirm_password": "other-password",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, mismatch.Code)
	assert.Equal(t, 1, env.repo.otpCount())

	ok := doJSON(t, h.SetPassword, http.MethodPost, "/auth/password/set", map[string]string{
		"email": "set@example.com", "otp_code": code,
		"new_password": "new-password", "confirm_password": "new-password",
	})
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestHandler_ChangePassword(t *testing.T) {
	h, env := newTestHandler(t)
	user := registerUser(t, env, "changer", "change@example.com", "old-password")

	noAuth := doJSON(t, h.ChangePassword, http.MethodPost, "/auth/password/change", map[string]string{
		"old_password": "old-password", "new_password": "new-password", "confirm_password": "new-password",
	})
	assert.Equal(t, http.StatusUnauthorized, noAuth.Code)

	ok := doJSON(t, h.ChangePassword, http.MethodPost, "/auth/password/change", map[string]string{
		"old_password": "old-password", "new_password": "new-password", "confirm_password": "new-password",
	}, asUser(user.ID))
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestHandler_Activate(t *testing.T) {
	h, env := newTestHandler(t)
	user := registerUser(t, env, "dormant", "dormant@example.com", "password123")
	user.IsActive = false
	require.NoError(t, env.repo.UpdateUser(user))

	code := issueOtpFor(t, env, "dormant@example.com")

	wrong := doJSON(t, h.Activate, http.MethodPost, "/auth/activate", map[string]string{
		"email": "dormant@example.com", "otp_code": "000000",
	})
	assert.Equal(t, http.StatusForbidden, wrong.Code)

	ok := doJSON(t, h.Activate, http.MethodPost, "/auth/activate", map[string]string{
		"email": "dormant@example.com", "otp_code": code,
	})
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestHandler_DeleteAccount(t *testing.T) {
	h, env := newTestHandler(t)
	user := registerUser(t, env, "doomed", "doomed@example.com", "password123")

	rec := doJSON(t, h.DeleteAccount, http.MethodDelete, "/auth/account", nil, asUser(user.ID))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandler_Me(t *testing.T) {
	h, env := newTestHandler(t)
	user := registerUser(t, env, "whoami", "whoami@example.com", "password123")

	rec := doJSON(t, h.Me, http.MethodGet, "/auth/me", nil, asUser(user.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "whoami", body.Data.Username)
	// Password hash never serializes.
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestMiddleware_Authenticate(t *testing.T) {
	env := newTestEnv(t)
	mw := NewMiddleware(env.tokens, env.repo)
	user := registerUser(t, env, "guarded", "guarded@example.com", "password123")

	access, _, err := env.tokens.IssuePair(user.ID, user.Email)
	require.NoError(t, err)
	_, refresh, err := env.tokens.IssuePair(user.ID, user.Email)
	require.NoError(t, err)

	var gotUserID uint
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{
			name:       "valid bearer token",
			header:     "Bearer " + access,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer header",
			header:     access,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "refresh token is not an access token",
			header:     "Bearer " + refresh,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			mw.Authenticate(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, user.ID, gotUserID)
			}
		})
	}
}

func TestMiddleware_RequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	mw := NewMiddleware(env.tokens, env.repo)

	admin := registerUser(t, env, "operator", "operator@example.com", "password123")
	admin.Role = RoleAdmin
	require.NoError(t, env.repo.UpdateUser(admin))

	regular := registerUser(t, env, "civilian", "civilian@example.com", "password123")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		userID     uint
		noContext  bool
		wantStatus int
	}{
		{
			name:       "admin passes",
			userID:     admin.ID,
			wantStatus: http.StatusOK,
		},
		{
			name:       "regular user is forbidden",
			userID:     regular.ID,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "deleted user is rejected",
			userID:     9999,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no authenticated user",
			noContext:  true,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			if !tt.noContext {
				asUser(tt.userID)(req)
			}

			rec := httptest.NewRecorder()
			mw.RequireAdmin(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
