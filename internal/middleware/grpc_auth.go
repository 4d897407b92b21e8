package middleware

import (
	"context"
	"strings"

	"github.com/MikhailRaia/media-proxy/internal/auth"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// AuthorizationKey is the metadata key carrying the client token.
const AuthorizationKey = "authorization"

// GRPCAuthMiddleware resolves the client identity of gRPC calls from the same
// tokens the HTTP cookie carries.
type GRPCAuthMiddleware struct {
	jwtService *auth.JWTService
}

func NewGRPCAuthMiddleware(jwtService *auth.JWTService) *GRPCAuthMiddleware {
	return &GRPCAuthMiddleware{
		jwtService: jwtService,
	}
}

// UnaryInterceptor attaches the client ID carried by the authorization
// metadata. Calls without a valid token proceed anonymously, so downloads
// are still audited and rate limited under the anonymous client.
func (m *GRPCAuthMiddleware) UnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	clientID, ok := m.clientID(ctx)
	if !ok {
		return handler(ctx, req)
	}

	return handler(WithClientID(ctx, clientID), req)
}

func (m *GRPCAuthMiddleware) clientID(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}

	values := md.Get(AuthorizationKey)
	if len(values) == 0 {
		return "", false
	}

	token := strings.TrimSpace(values[0])
	if rest, found := strings.CutPrefix(token, "Bearer "); found {
		token = strings.TrimSpace(rest)
	}

	claims, err := m.jwtService.ValidateToken(token)
	if err != nil {
		log.Debug().Err(err).Msg("Invalid gRPC client token, continuing anonymously")
		return "", false
	}

	return claims.ClientID, true
}
