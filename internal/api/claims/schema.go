package claims

import "github.com/shopspring/decimal"

type LoanSchema struct {
	Amount  decimal.Decimal `json:"amount" validate:"required"`
	Purpose string          `json:"purpose" validate:"required"`
}

type TaxRefundSchema struct {
	Amount  decimal.Decimal `json:"amount" validate:"required"`
	TaxYear int             `json:"tax_year" validate:"required"`
}

type VerificationSchema struct {
	FullName  string   `json:"full_name" validate:"required"`
	Documents []string `json:"documents" validate:"required,min=1"`
}
