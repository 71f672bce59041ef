package accounts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mvalverde/go-custody/internal/domain"
)

type RegisterSchema struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Pin      string `json:"pin" validate:"required,len=4,numeric"`
}

type RegisterResponseSchema struct {
	Id        string                  `json:"id"`
	Email     string                  `json:"email"`
	Addresses map[domain.Chain]string `json:"addresses"`
}

type ProfileSchema struct {
	Id           string                    `json:"id"`
	Email        string                    `json:"email"`
	FiatBalance  decimal.Decimal           `json:"fiat_balance"`
	Verification domain.VerificationStatus `json:"verification"`
	CreatedAt    time.Time                 `json:"created_at"`
}

type BalanceSchema struct {
	Asset   domain.AssetTag `json:"asset"`
	Balance decimal.Decimal `json:"balance"`
}

type WalletSchema struct {
	Chain   domain.Chain `json:"chain"`
	Address string       `json:"address"`
}
