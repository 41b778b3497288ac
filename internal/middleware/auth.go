package middleware

import (
	"net/http"
	"strings"

	"storerate-service/internal/model"
	"storerate-service/pkg/database"
	"storerate-service/pkg/jwtutil"
	"storerate-service/pkg/logger"
	"storerate-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const userContextKey = "user"

// AuthMiddleware validates the JWT from the Authorization header and then
// re-reads the user from the database. The token's role claim is never
// trusted directly: tokens are not revocable, so a role change or account
// deletion must take effect on the next request regardless of outstanding
// tokens.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		var user model.User
		if result := database.GetDB().First(&user, claims.UserID); result.Error != nil {
			log.Error("Token user no longer exists", zap.Uint("user_id", claims.UserID))
			prometheus.RecordAuthError("user_not_found")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user not found"})
		}

		c.Set(userContextKey, &user)
		c.Set("user_id", user.ID)
		c.Set("email", user.Email)
		c.Set("role", user.Role)

		return next(c)
	}
}

// CurrentUser returns the authenticated user attached by AuthMiddleware.
func CurrentUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(userContextKey).(*model.User)
	return user, ok
}

// RequireRole restricts a route to callers whose current role, as resolved
// from the database by AuthMiddleware, is in the given set.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			if !allowed[user.Role] {
				logger.FromContext(c).Warn("Insufficient role for route",
					zap.Uint("user_id", user.ID),
					zap.String("role", user.Role),
					zap.String("path", c.Path()))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
			}

			return next(c)
		}
	}
}
