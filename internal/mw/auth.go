package mw

import (
	"context"
	"net/http"
	"strings"

	"starledger/internal/service"
)

type contextKey string

const ActorCtxKey contextKey = "actor_id"

// AuthMiddleware resolves the bearer token to an actor id. It does not
// decide whether that actor may act; the coordinator does.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid token format", http.StatusUnauthorized)
				return
			}

			actorID, err := service.ParseToken(parts[1], secret)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ActorCtxKey, actorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorID returns the actor id stored by AuthMiddleware.
func ActorID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ActorCtxKey).(int64)
	return id, ok
}
