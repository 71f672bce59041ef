package session

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/auth"
)

func InitializeRoutes(app *fiber.App, gate *auth.Gate) {
	app.Post("/v1/auth/login", LoginHandler(gate))
	app.Post("/v1/auth/device-code", DeviceCodeHandler(gate))
}
