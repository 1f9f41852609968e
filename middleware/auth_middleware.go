package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/NajehRouin/Seekras-api/util"
)

// UserIDKey is the key used to store the UserID in the request context.
type UserIDKeyType string

const UserIDKey UserIDKeyType = "userID"

// AuthMiddleware validates the bearer token on the request. If valid, the
// authenticated user id is placed in the request context for downstream
// handlers; otherwise the request is rejected with 401.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := util.GetUserIDFromRequest(r)
		if err != nil {
			util.Logger.Error("Error getting UserID from request in middleware", zap.Error(err))
			http.Error(w, "Server error processing authentication", http.StatusInternalServerError)
			return
		}

		if userID == 0 {
			util.Logger.Warn("Unauthorized access attempt",
				zap.String("remote", r.RemoteAddr), zap.String("path", r.URL.Path))
			http.Error(w, "Unauthorized: You must be logged in.", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
