package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"payments-authorizenet/logger"
	"payments-authorizenet/models"
	"payments-authorizenet/services/auth"
	"payments-authorizenet/utils"
)

type contextKey string

const ServiceContextKey contextKey = "service"

type tokenValidator interface {
	ValidateToken(token string) (*models.ServiceClaimsInfo, error)
}

// InternalAuth requires a valid "Bearer <jwt>" Authorization header.
func InternalAuth(validator tokenValidator) func(http.Handler) http.Handler {
	log := logger.WithComponent("auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("missing authorization header", "remote", r.RemoteAddr, "path", r.URL.Path)
				utils.SendErrorResponse(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				utils.SendErrorResponse(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			info, err := validator.ValidateToken(parts[1])
			if err != nil {
				log.Warn("token validation failed", "remote", r.RemoteAddr, "error", err)

				message := "Authentication failed"
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					message = "Token expired"
				case errors.Is(err, auth.ErrInvalidToken):
					message = "Invalid token"
				}
				utils.SendErrorResponse(w, http.StatusUnauthorized, message)
				return
			}

			ctx := context.WithValue(r.Context(), ServiceContextKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ServiceFromContext(ctx context.Context) *models.ServiceClaimsInfo {
	info, _ := ctx.Value(ServiceContextKey).(*models.ServiceClaimsInfo)
	return info
}
