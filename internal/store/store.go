// Package store persists accounts, wallets, ledger entries and claims.
// Two implementations exist: Postgres for deployments and an in-process
// memory store for tests and local runs without a database.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvalverde/go-custody/internal/domain"
)

type Store interface {
	// CreateAccount persists the account together with its provisioned
	// wallets in one atomic step. Fails with domain.ErrDuplicateEmail
	// when the email is taken; nothing is persisted on failure.
	CreateAccount(ctx context.Context, acc *domain.Account, wallets []domain.Wallet) error
	AccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	AccountByEmail(ctx context.Context, email string) (*domain.Account, error)

	SetLoginCode(ctx context.Context, id uuid.UUID, codeHash string, exp time.Time) error
	// TrustDevice records the fingerprint as the account's trusted
	// device and clears any outstanding login code.
	TrustDevice(ctx context.Context, id uuid.UUID, fingerprint string) error
	SetVerification(ctx context.Context, id uuid.UUID, status domain.VerificationStatus) error

	WalletsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Wallet, error)
	SaveWallets(ctx context.Context, wallets []domain.Wallet) error

	// InsertDeposit appends a PENDING deposit entry.
	InsertDeposit(ctx context.Context, e *domain.LedgerEntry) error
	// InsertOutflow checks available funds and appends the entry in one
	// critical section per account. For fiat the stored balance is
	// decremented in the same step. Fails with
	// domain.ErrInsufficientFunds without touching anything.
	InsertOutflow(ctx context.Context, e *domain.LedgerEntry) error
	EntryByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	Entries(ctx context.Context, accountID uuid.UUID, asset *domain.AssetTag, limit, offset int) ([]domain.LedgerEntry, int, error)
	// DerivedBalance sums APPROVED deposits minus APPROVED outflows for
	// a non-fiat asset. Read-only; an unknown account fails with
	// domain.ErrNotFound.
	DerivedBalance(ctx context.Context, accountID uuid.UUID, asset domain.AssetTag) (decimal.Decimal, error)

	// ResolveEntry flips a PENDING entry to the decision and applies the
	// settlement atomically. The caller decides the settlement per
	// decision; the store applies whatever it is handed. A terminal
	// entry fails with domain.ErrAlreadyResolved.
	ResolveEntry(ctx context.Context, id uuid.UUID, d domain.Decision, settle domain.Settlement) (*domain.LedgerEntry, error)
	// CompensateOutflow credits back a REJECTED outflow exactly once.
	CompensateOutflow(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	// PendingDeposits and PendingOutflows page over PENDING entries of
	// their kind, oldest first. Filtering happens before pagination so
	// pages stay full and stable per queue.
	PendingDeposits(ctx context.Context, limit, offset int) ([]domain.LedgerEntry, error)
	PendingOutflows(ctx context.Context, limit, offset int) ([]domain.LedgerEntry, error)

	InsertClaim(ctx context.Context, c *domain.Claim) error
	ClaimByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error)
	ResolveClaim(ctx context.Context, id uuid.UUID, d domain.Decision, settle domain.Settlement) (*domain.Claim, error)
	PendingClaims(ctx context.Context, kind domain.ClaimKind, limit, offset int) ([]domain.Claim, error)
}
