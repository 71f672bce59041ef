package claims

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/api/middleware"
	"github.com/mvalverde/go-custody/internal/approval"
	"github.com/mvalverde/go-custody/internal/helper"
)

func SubmitLoanHandler(eng *approval.Engine) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req = LoanSchema{}
		if err := c.Bind().Body(&req); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		claim, err := eng.SubmitLoan(context.Background(), middleware.AccountID(c), req.Amount, req.Purpose)
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(claim)
	}
}

func SubmitTaxRefundHandler(eng *approval.Engine) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req = TaxRefundSchema{}
		if err := c.Bind().Body(&req); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		claim, err := eng.SubmitTaxRefund(context.Background(), middleware.AccountID(c), req.Amount, req.TaxYear)
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(claim)
	}
}

func SubmitVerificationHandler(eng *approval.Engine) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req = VerificationSchema{}
		if err := c.Bind().Body(&req); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		claim, err := eng.SubmitVerification(context.Background(), middleware.AccountID(c), req.FullName, req.Documents)
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(claim)
	}
}
