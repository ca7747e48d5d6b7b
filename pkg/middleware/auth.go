package middleware

import (
	"strings"

	"finetica/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	LocalUserID = "userID"
	LocalActor  = "actor"
)

func AuthMiddleware(jwtManager *auth.JWTManager, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(fiber.HeaderAuthorization)
		if token == "" {
			logger.Warn("Missing authorization token", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization token required",
				"code":  "UNAUTHORIZED",
			})
		}

		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			logger.Warn("Invalid token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
				"code":  "UNAUTHORIZED",
			})
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalActor, claims.Actor())

		return c.Next()
	}
}

// Actor returns the operator name stored by AuthMiddleware.
func Actor(c *fiber.Ctx) string {
	actor, _ := c.Locals(LocalActor).(string)
	return actor
}
