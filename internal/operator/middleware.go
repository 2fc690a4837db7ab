package operator

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
)

var ErrMissingSecret = errors.New("jwt secret is empty")

// Middleware guards the routes registered after it with HS256 tokens signed
// by secret. An empty secret would accept tokens anyone can sign, so it is
// refused.
func Middleware(secret string) (fiber.Handler, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return jwtware.New(jwtware.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid or expired token"})
		},
	}), nil
}
