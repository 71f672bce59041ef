package accounts

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/api/middleware"
	"github.com/mvalverde/go-custody/internal/auth"
	"github.com/mvalverde/go-custody/internal/ledger"
	"github.com/mvalverde/go-custody/internal/store"
)

func InitializeRoutes(app *fiber.App, gate *auth.Gate, led *ledger.Service, st store.Store) {
	app.Post("/v1/accounts", RegisterHandler(gate))

	user := middleware.RequireUser(gate)
	app.Get("/v1/accounts/me", GetProfileHandler(st), user)
	app.Get("/v1/accounts/me/balances/:asset", GetBalanceHandler(led), user)
	app.Get("/v1/accounts/me/ledger", GetLedgerHandler(led), user)
	app.Get("/v1/accounts/me/wallets", GetWalletsHandler(st), user)
}
