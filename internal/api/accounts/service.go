package accounts

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/mvalverde/go-custody/internal/api/middleware"
	"github.com/mvalverde/go-custody/internal/auth"
	"github.com/mvalverde/go-custody/internal/domain"
	"github.com/mvalverde/go-custody/internal/helper"
	"github.com/mvalverde/go-custody/internal/ledger"
	"github.com/mvalverde/go-custody/internal/store"
)

func RegisterHandler(gate *auth.Gate) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req = RegisterSchema{}
		if err := c.Bind().Body(&req); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&req); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		acc, addresses, err := gate.Register(context.Background(), req.Email, req.Password, req.Pin)
		if err != nil {
			return helper.WriteError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(RegisterResponseSchema{
			Id:        acc.Id.String(),
			Email:     acc.Email,
			Addresses: addresses,
		})
	}
}

func GetProfileHandler(st store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		acc, err := st.AccountByID(context.Background(), middleware.AccountID(c))
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.JSON(ProfileSchema{
			Id:           acc.Id.String(),
			Email:        acc.Email,
			FiatBalance:  acc.FiatBalance,
			Verification: acc.Verification,
			CreatedAt:    acc.CreatedAt,
		})
	}
}

func GetBalanceHandler(led *ledger.Service) fiber.Handler {
	return func(c fiber.Ctx) error {
		asset := domain.AssetTag(c.Params("asset"))
		balance, err := led.BalanceOf(context.Background(), middleware.AccountID(c), asset)
		if err != nil {
			return helper.WriteError(c, err)
		}
		return c.JSON(BalanceSchema{Asset: asset, Balance: balance})
	}
}

func GetLedgerHandler(led *ledger.Service) fiber.Handler {
	return func(c fiber.Ctx) error {
		pagination := helper.GetPagination[domain.LedgerEntry](c)

		var asset *domain.AssetTag
		if q := c.Query("asset"); q != "" {
			tag := domain.AssetTag(q)
			asset = &tag
		}

		entries, total, err := led.History(context.Background(), middleware.AccountID(c), asset, pagination.Size, pagination.Offset())
		if err != nil {
			return helper.WriteError(c, err)
		}
		pagination.Total = &total
		pagination.Items = entries
		return c.JSON(pagination)
	}
}

func GetWalletsHandler(st store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		wallets, err := st.WalletsByAccount(context.Background(), middleware.AccountID(c))
		if err != nil {
			return helper.WriteError(c, err)
		}
		out := make([]WalletSchema, 0, len(wallets))
		for _, w := range wallets {
			out = append(out, WalletSchema{Chain: w.Chain, Address: w.Address})
		}
		return c.JSON(out)
	}
}
