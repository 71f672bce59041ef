package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvalverde/go-custody/internal/domain"
)

// SubmitLoan files a loan application for operator review. Approval
// disburses the principal to the stored fiat balance.
func (e *Engine) SubmitLoan(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, purpose string) (*domain.Claim, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: loan amount must be positive", domain.ErrValidation)
	}
	c := &domain.Claim{
		Id:        uuid.New(),
		AccountId: accountID,
		Kind:      domain.ClaimLoan,
		Status:    domain.StatusPending,
		Amount:    amount,
		Purpose:   purpose,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.InsertClaim(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SubmitTaxRefund files a tax-refund claim. Approval credits the refund
// to the stored fiat balance.
func (e *Engine) SubmitTaxRefund(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, taxYear int) (*domain.Claim, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: refund amount must be positive", domain.ErrValidation)
	}
	if taxYear < 2000 || taxYear > time.Now().Year() {
		return nil, fmt.Errorf("%w: tax year %d", domain.ErrValidation, taxYear)
	}
	c := &domain.Claim{
		Id:        uuid.New(),
		AccountId: accountID,
		Kind:      domain.ClaimTaxRefund,
		Status:    domain.StatusPending,
		Amount:    amount,
		TaxYear:   taxYear,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.InsertClaim(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SubmitVerification files an identity-verification request and moves
// the account's verification status to PENDING. Rejected accounts may
// resubmit; verified and already-pending accounts may not.
func (e *Engine) SubmitVerification(ctx context.Context, accountID uuid.UUID, fullName string, documents []string) (*domain.Claim, error) {
	if fullName == "" || len(documents) == 0 {
		return nil, fmt.Errorf("%w: name and documents are required", domain.ErrValidation)
	}

	acc, err := e.store.AccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	switch acc.Verification {
	case domain.Verified:
		return nil, fmt.Errorf("%w: account already verified", domain.ErrValidation)
	case domain.VerificationPending:
		return nil, fmt.Errorf("%w: verification already pending", domain.ErrValidation)
	}

	c := &domain.Claim{
		Id:        uuid.New(),
		AccountId: accountID,
		Kind:      domain.ClaimVerification,
		Status:    domain.StatusPending,
		FullName:  fullName,
		Documents: documents,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.InsertClaim(ctx, c); err != nil {
		return nil, err
	}
	if err := e.store.SetVerification(ctx, accountID, domain.VerificationPending); err != nil {
		return nil, err
	}
	return c, nil
}
