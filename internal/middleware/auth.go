package middleware

import (
	"context"
	"net/http"

	"payu-gateway/internal/auth"
	"payu-gateway/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const MerchantIDKey contextKey = "merchantID"

// AuthMiddleware requires a merchant token signed with secret (HS256). The
// token subject becomes the merchant id in the request context. An empty
// secret rejects every request.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(secret) == 0 {
				logger.FromCtx(r.Context()).Error("Merchant auth has no signing secret configured")
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				logger.FromCtx(r.Context()).Warn("Rejected merchant token", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			merchantID, err := token.Claims.GetSubject()
			if err != nil || merchantID == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), MerchantIDKey, merchantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MerchantIDFromContext returns the authenticated merchant, if any.
func MerchantIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(MerchantIDKey).(string)
	return id, ok && id != ""
}
