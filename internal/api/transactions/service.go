package transactions

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/api/middleware"
	"github.com/mvalverde/go-custody/internal/helper"
	"github.com/mvalverde/go-custody/internal/ledger"
)

func RecordDepositHandler(led *ledger.Service) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req = DepositSchema{}
		if err := c.Bind().Body(&req); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		source, err := req.Source.ToDomain()
		if err != nil {
			return helper.WriteError(c, err)
		}

		entry, err := led.RecordDeposit(context.Background(), middleware.AccountID(c), req.Amount, req.Asset, source)
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	}
}

func RecordOutflowHandler(led *ledger.Service) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req = OutflowSchema{}
		if err := c.Bind().Body(&req); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		counterparty, err := req.Counterparty.ToDomain()
		if err != nil {
			return helper.WriteError(c, err)
		}

		entry, err := led.RecordOutflow(context.Background(), middleware.AccountID(c), req.Amount, req.Asset, req.Kind, counterparty, req.Pin)
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	}
}
