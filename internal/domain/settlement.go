package domain

import "github.com/shopspring/decimal"

// Settlement is the side effect a store applies atomically with an
// approval. Zero value means the approval is a pure status flip.
type Settlement struct {
	// CreditFiat is added to the account's stored fiat balance.
	CreditFiat decimal.Decimal
	// SetVerification, when non-nil, replaces the account's
	// verification status.
	SetVerification *VerificationStatus
}

func (s Settlement) Empty() bool {
	return s.CreditFiat.IsZero() && s.SetVerification == nil
}
