package operator

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/api/middleware"
	"github.com/mvalverde/go-custody/internal/approval"
	"github.com/mvalverde/go-custody/internal/auth"
	"github.com/mvalverde/go-custody/internal/custody"
	"github.com/mvalverde/go-custody/internal/ledger"
)

func InitializeRoutes(app *fiber.App, operators *auth.Operators, eng *approval.Engine, led *ledger.Service, cust *custody.Service) {
	app.Post("/v1/operator/login", LoginHandler(operators))

	op := middleware.RequireOperator(operators)
	app.Get("/v1/operator/pending/:kind", ListPendingHandler(eng), op)
	app.Post("/v1/operator/resolve", ResolveHandler(eng), op)
	app.Post("/v1/operator/compensate/:entryId", CompensateHandler(led), op)
	app.Post("/v1/operator/keys/reveal", RevealKeysHandler(cust), op)
}
