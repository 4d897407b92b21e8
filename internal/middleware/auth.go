package middleware

import (
	"context"
	"net/http"

	"github.com/MikhailRaia/media-proxy/internal/auth"
	"github.com/rs/zerolog/log"
)

type contextKey string

// ClientIDKey is the context key used to store the client ID.
const ClientIDKey contextKey = "clientID"

// CookieName is the cookie carrying the client token.
const CookieName = "auth_token"

// AuthMiddleware manages anonymous client identity using JWT cookies.
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware creates an AuthMiddleware with the provided JWT service.
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// AuthenticateClient ensures a client ID is present, issuing a token and cookie if needed.
func (a *AuthMiddleware) AuthenticateClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var clientID string

		if cookie, err := r.Cookie(CookieName); err == nil {
			claims, err := a.jwtService.ValidateToken(cookie.Value)
			if err == nil {
				clientID = claims.ClientID
			} else {
				log.Debug().Err(err).Msg("Invalid client token, issuing a new one")
			}
		}

		if clientID == "" {
			clientID = a.jwtService.GenerateClientID()

			token, err := a.jwtService.GenerateToken(clientID)
			if err != nil {
				log.Error().Err(err).Msg("Failed to generate token")
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(auth.TokenTTL.Seconds()),
			})

			log.Debug().Str("clientID", clientID).Msg("Issued new client token")
		}

		next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), clientID)))
	})
}

// RequireAuth enforces that a valid auth cookie is present.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		claims, err := a.jwtService.ValidateToken(cookie.Value)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), claims.ClientID)))
	})
}

// WithClientID stores clientID in ctx.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ClientIDKey, clientID)
}

// GetClientIDFromContext extracts the client ID from context.
func GetClientIDFromContext(ctx context.Context) (string, bool) {
	clientID, ok := ctx.Value(ClientIDKey).(string)
	return clientID, ok && clientID != ""
}
