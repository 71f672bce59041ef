package transactions

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/api/middleware"
	"github.com/mvalverde/go-custody/internal/auth"
	"github.com/mvalverde/go-custody/internal/ledger"
)

func InitializeRoutes(app *fiber.App, gate *auth.Gate, led *ledger.Service) {
	user := middleware.RequireUser(gate)
	app.Post("/v1/ledger/deposits", RecordDepositHandler(led), user)
	app.Post("/v1/ledger/outflows", RecordOutflowHandler(led), user)
}
