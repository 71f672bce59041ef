package operator

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/mvalverde/go-custody/internal/api/middleware"
	"github.com/mvalverde/go-custody/internal/approval"
	"github.com/mvalverde/go-custody/internal/auth"
	"github.com/mvalverde/go-custody/internal/custody"
	"github.com/mvalverde/go-custody/internal/domain"
	"github.com/mvalverde/go-custody/internal/helper"
	"github.com/mvalverde/go-custody/internal/ledger"
)

func LoginHandler(operators *auth.Operators) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req = LoginSchema{}
		if err := c.Bind().Body(&req); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		token, err := operators.Login(req.Secret)
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.JSON(LoginResponseSchema{Token: token})
	}
}

// ListPendingHandler serves the operator queue for one record kind.
// "SETTLEMENT" lists PENDING outflows on manual rails; the other kinds
// map to the approval engine's claim kinds.
func ListPendingHandler(eng *approval.Engine) fiber.Handler {
	return func(c fiber.Ctx) error {
		kind := c.Params("kind")

		switch kind {
		case "DEPOSIT":
			pagination := helper.GetPagination[domain.LedgerEntry](c)
			entries, err := eng.ListPendingDeposits(context.Background(), pagination.Size, pagination.Offset())
			if err != nil {
				return helper.WriteError(c, err)
			}
			pagination.Items = entries
			return c.JSON(pagination)
		case "SETTLEMENT":
			pagination := helper.GetPagination[domain.LedgerEntry](c)
			entries, err := eng.ListPendingSettlements(context.Background(), pagination.Size, pagination.Offset())
			if err != nil {
				return helper.WriteError(c, err)
			}
			pagination.Items = entries
			return c.JSON(pagination)
		case "LOAN", "TAX_REFUND", "VERIFICATION":
			pagination := helper.GetPagination[domain.Claim](c)
			claims, err := eng.ListPendingClaims(context.Background(), domain.ClaimKind(kind), pagination.Size, pagination.Offset())
			if err != nil {
				return helper.WriteError(c, err)
			}
			pagination.Items = claims
			return c.JSON(pagination)
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown queue kind",
		})
	}
}

func ResolveHandler(eng *approval.Engine) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req = ResolveSchema{}
		if err := c.Bind().Body(&req); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		resolution, err := eng.Resolve(context.Background(), req.Kind, req.RecordId, req.Decision, middleware.OperatorToken(c))
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.JSON(resolution)
	}
}

func CompensateHandler(led *ledger.Service) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("entryId"))
		if err != nil {
			return fiber.ErrBadRequest
		}

		entry, err := led.Compensate(context.Background(), id, middleware.OperatorToken(c))
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.JSON(entry)
	}
}

func RevealKeysHandler(cust *custody.Service) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req = RevealKeysSchema{}
		if err := c.Bind().Body(&req); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		keys, err := cust.RevealKeys(context.Background(), req.Email, middleware.OperatorToken(c))
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.JSON(RevealKeysResponseSchema{Email: req.Email, Keys: keys})
	}
}
