package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MikhailRaia/media-proxy/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureClientID(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, _ = GetClientIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateClient_IssuesCookie(t *testing.T) {
	m := NewAuthMiddleware(auth.NewJWTService("secret"))

	var clientID string
	rec := httptest.NewRecorder()
	m.AuthenticateClient(captureClientID(&clientID)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, clientID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAuthenticateClient_ReusesValidCookie(t *testing.T) {
	jwtService := auth.NewJWTService("secret")
	m := NewAuthMiddleware(jwtService)

	token, err := jwtService.GenerateToken("known-client")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	var clientID string
	rec := httptest.NewRecorder()
	m.AuthenticateClient(captureClientID(&clientID)).ServeHTTP(rec, req)

	assert.Equal(t, "known-client", clientID)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthenticateClient_ReplacesInvalidCookie(t *testing.T) {
	m := NewAuthMiddleware(auth.NewJWTService("secret"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})

	var clientID string
	rec := httptest.NewRecorder()
	m.AuthenticateClient(captureClientID(&clientID)).ServeHTTP(rec, req)

	assert.NotEmpty(t, clientID)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestRequireAuth(t *testing.T) {
	jwtService := auth.NewJWTService("secret")
	m := NewAuthMiddleware(jwtService)
	token, err := jwtService.GenerateToken("client-1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		cookie     *http.Cookie
		wantStatus int
		wantClient string
	}{
		{name: "No cookie", wantStatus: http.StatusUnauthorized},
		{name: "Invalid cookie", cookie: &http.Cookie{Name: CookieName, Value: "bad"}, wantStatus: http.StatusUnauthorized},
		{name: "Valid cookie", cookie: &http.Cookie{Name: CookieName, Value: token}, wantStatus: http.StatusOK, wantClient: "client-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}

			var clientID string
			rec := httptest.NewRecorder()
			m.RequireAuth(captureClientID(&clientID)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantClient, clientID)
		})
	}
}
