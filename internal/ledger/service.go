// Package ledger records money movement and derives balances. Deposits
// enter as unverified PENDING claims; outflows are PIN-gated, funds-checked
// and debited atomically.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvalverde/go-custody/internal/domain"
	"github.com/mvalverde/go-custody/internal/store"
)

// PinVerifier checks the transaction PIN. Satisfied by auth.Gate.
type PinVerifier interface {
	VerifyPIN(ctx context.Context, accountID uuid.UUID, pin string) error
}

// OperatorGate validates operator session tokens. Satisfied by
// auth.Operators.
type OperatorGate interface {
	Check(token string) error
}

type Service struct {
	store     store.Store
	pins      PinVerifier
	operators OperatorGate
}

func NewService(st store.Store, pins PinVerifier, operators OperatorGate) *Service {
	return &Service{store: st, pins: pins, operators: operators}
}

// RecordDeposit appends a PENDING deposit claim. Anyone can claim a
// deposit; only operator approval makes it spendable.
func (s *Service) RecordDeposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, asset domain.AssetTag, source domain.Counterparty) (*domain.LedgerEntry, error) {
	if err := validateMovement(amount, asset, source); err != nil {
		return nil, err
	}

	e := &domain.LedgerEntry{
		Id:          uuid.New(),
		AccountId:   accountID,
		Kind:        domain.KindDeposit,
		Asset:       asset,
		Amount:      amount,
		Status:      domain.StatusPending,
		Rail:        source.Rail(),
		Counterpart: source,
		CreatedAt:   now(),
	}
	if err := s.store.InsertDeposit(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// RecordOutflow performs, in order: PIN check, funds check, debit and
// entry creation; the last three run atomically per account. Instant rails
// create the entry APPROVED; settlement rails create it PENDING, but the
// debit stands either way. A later rejection is recovered only through
// Compensate, never automatically.
func (s *Service) RecordOutflow(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, asset domain.AssetTag, kind domain.EntryKind, counterparty domain.Counterparty, pin string) (*domain.LedgerEntry, error) {
	if kind != domain.KindTransfer && kind != domain.KindWithdrawal {
		return nil, fmt.Errorf("%w: kind %q is not an outflow", domain.ErrValidation, kind)
	}
	if err := validateMovement(amount, asset, counterparty); err != nil {
		return nil, err
	}

	if err := s.pins.VerifyPIN(ctx, accountID, pin); err != nil {
		return nil, err
	}

	e := &domain.LedgerEntry{
		Id:          uuid.New(),
		AccountId:   accountID,
		Kind:        kind,
		Asset:       asset,
		Amount:      amount,
		Status:      domain.StatusPending,
		Rail:        counterparty.Rail(),
		Counterpart: counterparty,
		CreatedAt:   now(),
	}
	if counterparty.Instant() {
		e.Status = domain.StatusApproved
		t := e.CreatedAt
		e.ResolvedAt = &t
	}

	if err := s.store.InsertOutflow(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// BalanceOf returns the spendable balance. Fiat reads the stored balance;
// every other asset is re-derived from APPROVED entries on each call.
func (s *Service) BalanceOf(ctx context.Context, accountID uuid.UUID, asset domain.AssetTag) (decimal.Decimal, error) {
	if !domain.ValidAsset(asset) {
		return decimal.Zero, fmt.Errorf("%w: unknown asset %q", domain.ErrValidation, asset)
	}
	if asset == domain.AssetFiat {
		acc, err := s.store.AccountByID(ctx, accountID)
		if err != nil {
			return decimal.Zero, err
		}
		return acc.FiatBalance, nil
	}
	return s.store.DerivedBalance(ctx, accountID, asset)
}

// History lists an account's entries newest first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, asset *domain.AssetTag, limit, offset int) ([]domain.LedgerEntry, int, error) {
	return s.store.Entries(ctx, accountID, asset, limit, offset)
}

// Compensate credits back the debit of a REJECTED outflow. Explicit and
// operator-gated; at most once per entry.
func (s *Service) Compensate(ctx context.Context, entryID uuid.UUID, operatorToken string) (*domain.LedgerEntry, error) {
	if err := s.operators.Check(operatorToken); err != nil {
		return nil, err
	}
	return s.store.CompensateOutflow(ctx, entryID)
}

func now() time.Time {
	return time.Now().UTC()
}

func validateMovement(amount decimal.Decimal, asset domain.AssetTag, counterparty domain.Counterparty) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if !domain.ValidAsset(asset) {
		return fmt.Errorf("%w: unknown asset %q", domain.ErrValidation, asset)
	}
	if counterparty == nil {
		return fmt.Errorf("%w: missing counterparty", domain.ErrValidation)
	}
	if c, ok := counterparty.(domain.CryptoAddress); ok && domain.AssetTag(c.Chain) != asset {
		return fmt.Errorf("%w: %s address cannot settle %s", domain.ErrValidation, c.Chain, asset)
	}
	return nil
}
