package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/zentra/linkpreview/internal/utils"
	"github.com/zentra/linkpreview/pkg/auth"
)

type principalKey struct{}

// Principal is the account a request is authenticated as.
type Principal struct {
	UserID   uuid.UUID
	Username string
}

// AuthMiddleware accepts access tokens issued by the chat gateway. Preview requests act
// on behalf of the caller: settings and call link credentials are per account.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token required")
				return
			}

			claims, err := auth.ValidateAccessToken(token, secret)
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				utils.RespondError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token expired")
				return
			case err != nil:
				utils.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid user ID in token")
				return
			}

			ctx := WithUser(r.Context(), userID, claims.Username)
			logger := zerolog.Ctx(ctx).With().Str("userId", userID.String()).Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func WithUser(ctx context.Context, userID uuid.UUID, username string) context.Context {
	return context.WithValue(ctx, principalKey{}, Principal{UserID: userID, Username: username})
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFrom(ctx)
	return p.UserID, ok
}
