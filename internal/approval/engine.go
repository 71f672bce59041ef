// Package approval is the single PENDING -> {APPROVED, REJECTED} state
// machine shared by deposit entries, loan applications, tax-refund claims
// and identity-verification requests. The engine guarantees the status
// transition and its terminality; the financial side effect of an
// approval is expressed as a Settlement the store applies in the same
// atomic step.
package approval

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mvalverde/go-custody/internal/domain"
	"github.com/mvalverde/go-custody/internal/store"
)

// OperatorGate validates operator session tokens. Satisfied by
// auth.Operators.
type OperatorGate interface {
	Check(token string) error
}

// EntrySettler decides the settlement for a ledger entry.
type EntrySettler func(d domain.Decision, e *domain.LedgerEntry) domain.Settlement

// ClaimSettler decides the settlement for a claim of its kind.
type ClaimSettler func(d domain.Decision, c *domain.Claim) domain.Settlement

type Engine struct {
	store     store.Store
	operators OperatorGate

	entrySettler  EntrySettler
	claimSettlers map[domain.ClaimKind]ClaimSettler
}

func NewEngine(st store.Store, operators OperatorGate) *Engine {
	e := &Engine{
		store:         st,
		operators:     operators,
		claimSettlers: make(map[domain.ClaimKind]ClaimSettler),
	}
	e.entrySettler = settleEntry
	e.claimSettlers[domain.ClaimLoan] = settleFiatCredit
	e.claimSettlers[domain.ClaimTaxRefund] = settleFiatCredit
	e.claimSettlers[domain.ClaimVerification] = settleVerification
	return e
}

// Resolution carries whichever record kind was resolved.
type Resolution struct {
	Entry *domain.LedgerEntry `json:"entry,omitempty"`
	Claim *domain.Claim       `json:"claim,omitempty"`
}

// Resolve moves a PENDING record to the decision. Exactly one of two
// concurrent calls on the same record succeeds; the loser gets
// domain.ErrAlreadyResolved.
func (e *Engine) Resolve(ctx context.Context, kind domain.ClaimKind, id uuid.UUID, d domain.Decision, operatorToken string) (*Resolution, error) {
	if err := e.operators.Check(operatorToken); err != nil {
		return nil, err
	}
	if !domain.ValidDecision(d) {
		return nil, fmt.Errorf("%w: decision %q", domain.ErrValidation, d)
	}

	if kind == domain.ClaimDeposit || kind == domain.ClaimSettlement {
		entry, err := e.store.EntryByID(ctx, id)
		if err != nil {
			return nil, err
		}
		// An entry is only reachable through its own queue. An outflow
		// approved as a deposit would credit back funds that were
		// already debited at submission.
		if kind == domain.ClaimDeposit && entry.Kind != domain.KindDeposit {
			return nil, domain.ErrNotFound
		}
		if kind == domain.ClaimSettlement && !entry.Outflow() {
			return nil, domain.ErrNotFound
		}
		resolved, err := e.store.ResolveEntry(ctx, id, d, e.entrySettler(d, entry))
		if err != nil {
			return nil, err
		}
		return &Resolution{Entry: resolved}, nil
	}

	settler, ok := e.claimSettlers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: claim kind %q", domain.ErrValidation, kind)
	}
	claim, err := e.store.ClaimByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim.Kind != kind {
		return nil, domain.ErrNotFound
	}
	resolved, err := e.store.ResolveClaim(ctx, id, d, settler(d, claim))
	if err != nil {
		return nil, err
	}
	return &Resolution{Claim: resolved}, nil
}

// ListPendingDeposits returns currently-PENDING deposit entries, oldest
// first, straight from the store.
func (e *Engine) ListPendingDeposits(ctx context.Context, limit, offset int) ([]domain.LedgerEntry, error) {
	return e.store.PendingDeposits(ctx, limit, offset)
}

// ListPendingSettlements returns PENDING outflow entries awaiting manual
// settlement on non-instant rails.
func (e *Engine) ListPendingSettlements(ctx context.Context, limit, offset int) ([]domain.LedgerEntry, error) {
	return e.store.PendingOutflows(ctx, limit, offset)
}

// ListPendingClaims returns currently-PENDING claims of one kind.
func (e *Engine) ListPendingClaims(ctx context.Context, kind domain.ClaimKind, limit, offset int) ([]domain.Claim, error) {
	return e.store.PendingClaims(ctx, kind, limit, offset)
}

func settleEntry(d domain.Decision, entry *domain.LedgerEntry) domain.Settlement {
	if d == domain.Approve && entry.Kind == domain.KindDeposit && entry.Asset == domain.AssetFiat {
		// Fiat is stored, not derived: the credit lands on the
		// account balance with the status flip. Crypto deposits need
		// nothing; the derived balance picks them up.
		return domain.Settlement{CreditFiat: entry.Amount}
	}
	// Outflows settle with the status flip alone. The debit happened
	// at submission; a rejection is recovered through Compensate.
	return domain.Settlement{}
}

func settleFiatCredit(d domain.Decision, c *domain.Claim) domain.Settlement {
	if d == domain.Approve {
		return domain.Settlement{CreditFiat: c.Amount}
	}
	return domain.Settlement{}
}

func settleVerification(d domain.Decision, c *domain.Claim) domain.Settlement {
	status := domain.VerificationDenied
	if d == domain.Approve {
		status = domain.Verified
	}
	return domain.Settlement{SetVerification: &status}
}
