package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/api/accounts"
	"github.com/mvalverde/go-custody/internal/api/claims"
	"github.com/mvalverde/go-custody/internal/api/operator"
	"github.com/mvalverde/go-custody/internal/api/session"
	"github.com/mvalverde/go-custody/internal/api/transactions"
	"github.com/mvalverde/go-custody/internal/approval"
	"github.com/mvalverde/go-custody/internal/auth"
	"github.com/mvalverde/go-custody/internal/custody"
	"github.com/mvalverde/go-custody/internal/ledger"
	"github.com/mvalverde/go-custody/internal/store"
)

// Deps bundles the engines the route packages need.
type Deps struct {
	Store     store.Store
	Gate      *auth.Gate
	Operators *auth.Operators
	Ledger    *ledger.Service
	Approval  *approval.Engine
	Custody   *custody.Service
}

func InitializeRoutes(app *fiber.App, d Deps) {
	accounts.InitializeRoutes(app, d.Gate, d.Ledger, d.Store)
	session.InitializeRoutes(app, d.Gate)
	transactions.InitializeRoutes(app, d.Gate, d.Ledger)
	claims.InitializeRoutes(app, d.Gate, d.Approval)
	operator.InitializeRoutes(app, d.Operators, d.Approval, d.Ledger, d.Custody)
}
