// Package middleware guards routes. User routes carry a Bearer session
// token; operator routes carry an operator session token issued against
// the shared secret.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/mvalverde/go-custody/internal/auth"
	"github.com/mvalverde/go-custody/internal/helper"
)

const (
	accountIDKey     = "account_id"
	operatorTokenKey = "operator_token"
)

func RequireUser(gate *auth.Gate) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, err := gate.Authenticate(bearerToken(c))
		if err != nil {
			return helper.WriteError(c, err)
		}
		c.Locals(accountIDKey, id)
		return c.Next()
	}
}

func RequireOperator(operators *auth.Operators) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := bearerToken(c)
		if err := operators.Check(token); err != nil {
			return helper.WriteError(c, err)
		}
		c.Locals(operatorTokenKey, token)
		return c.Next()
	}
}

// AccountID returns the authenticated account id set by RequireUser.
func AccountID(c fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(accountIDKey).(uuid.UUID)
	return id
}

// OperatorToken returns the operator session token set by RequireOperator.
func OperatorToken(c fiber.Ctx) string {
	token, _ := c.Locals(operatorTokenKey).(string)
	return token
}

func bearerToken(c fiber.Ctx) string {
	header := c.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
