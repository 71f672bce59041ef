package session

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/auth"
	"github.com/mvalverde/go-custody/internal/helper"
)

func LoginHandler(gate *auth.Gate) fiber.Handler {
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

		result, err := gate.Login(context.Background(), req.Email, req.Password, req.DeviceFingerprint)
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.JSON(LoginResponseSchema{
			Token:        result.Token,
			CodeRequired: result.ChallengeRequired,
		})
	}
}

func DeviceCodeHandler(gate *auth.Gate) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req = DeviceCodeSchema{}
		if err := c.Bind().Body(&req); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		token, err := gate.VerifyDeviceCode(context.Background(), req.Email, req.Code, req.DeviceFingerprint)
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.JSON(DeviceCodeResponseSchema{Token: token})
	}
}
