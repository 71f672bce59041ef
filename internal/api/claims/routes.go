package claims

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/api/middleware"
	"github.com/mvalverde/go-custody/internal/approval"
	"github.com/mvalverde/go-custody/internal/auth"
)

func InitializeRoutes(app *fiber.App, gate *auth.Gate, eng *approval.Engine) {
	user := middleware.RequireUser(gate)
	app.Post("/v1/claims/loans", SubmitLoanHandler(eng), user)
	app.Post("/v1/claims/tax-refunds", SubmitTaxRefundHandler(eng), user)
	app.Post("/v1/claims/verification", SubmitVerificationHandler(eng), user)
}
