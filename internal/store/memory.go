package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvalverde/go-custody/internal/domain"
)

// Memory keeps everything in process. A single mutex serializes writes,
// which covers the per-account check-and-debit requirement trivially.
type Memory struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
	byEmail  map[string]uuid.UUID
	wallets  map[uuid.UUID][]domain.Wallet
	entries  map[uuid.UUID]*domain.LedgerEntry
	claims   map[uuid.UUID]*domain.Claim
	// entryOrder preserves append order for listings.
	entryOrder []uuid.UUID
	claimOrder []uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[uuid.UUID]*domain.Account),
		byEmail:  make(map[string]uuid.UUID),
		wallets:  make(map[uuid.UUID][]domain.Wallet),
		entries:  make(map[uuid.UUID]*domain.LedgerEntry),
		claims:   make(map[uuid.UUID]*domain.Claim),
	}
}

func (m *Memory) CreateAccount(ctx context.Context, acc *domain.Account, wallets []domain.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[acc.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	cp := *acc
	m.accounts[acc.Id] = &cp
	m.byEmail[acc.Email] = acc.Id
	m.wallets[acc.Id] = append([]domain.Wallet(nil), wallets...)
	return nil
}

func (m *Memory) AccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *Memory) AccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m.accounts[id]
	return &cp, nil
}

func (m *Memory) SetLoginCode(ctx context.Context, id uuid.UUID, codeHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	acc.LoginCodeHash = codeHash
	acc.LoginCodeExp = &exp
	return nil
}

func (m *Memory) TrustDevice(ctx context.Context, id uuid.UUID, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	acc.TrustedDevice = fingerprint
	acc.LoginCodeHash = ""
	acc.LoginCodeExp = nil
	return nil
}

func (m *Memory) SetVerification(ctx context.Context, id uuid.UUID, status domain.VerificationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	acc.Verification = status
	return nil
}

func (m *Memory) WalletsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[accountID]; !ok {
		return nil, domain.ErrNotFound
	}
	return append([]domain.Wallet(nil), m.wallets[accountID]...), nil
}

func (m *Memory) SaveWallets(ctx context.Context, wallets []domain.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range wallets {
		m.wallets[w.AccountId] = append(m.wallets[w.AccountId], w)
	}
	return nil
}

func (m *Memory) InsertDeposit(ctx context.Context, e *domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[e.AccountId]; !ok {
		return domain.ErrNotFound
	}
	cp := *e
	m.entries[e.Id] = &cp
	m.entryOrder = append(m.entryOrder, e.Id)
	return nil
}

func (m *Memory) InsertOutflow(ctx context.Context, e *domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[e.AccountId]
	if !ok {
		return domain.ErrNotFound
	}

	if e.Asset == domain.AssetFiat {
		if acc.FiatBalance.LessThan(e.Amount) {
			return domain.ErrInsufficientFunds
		}
		acc.FiatBalance = acc.FiatBalance.Sub(e.Amount)
	} else {
		if m.derivedLocked(e.AccountId, e.Asset).LessThan(e.Amount) {
			return domain.ErrInsufficientFunds
		}
	}

	cp := *e
	m.entries[e.Id] = &cp
	m.entryOrder = append(m.entryOrder, e.Id)
	return nil
}

func (m *Memory) EntryByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) Entries(ctx context.Context, accountID uuid.UUID, asset *domain.AssetTag, limit, offset int) ([]domain.LedgerEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []domain.LedgerEntry
	for _, id := range m.entryOrder {
		e := m.entries[id]
		if e.AccountId != accountID {
			continue
		}
		if asset != nil && e.Asset != *asset {
			continue
		}
		all = append(all, *e)
	}
	// Newest first.
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= len(all) {
		return []domain.LedgerEntry{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *Memory) derivedLocked(accountID uuid.UUID, asset domain.AssetTag) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.AccountId != accountID || e.Asset != asset || e.Status != domain.StatusApproved {
			continue
		}
		if e.Kind == domain.KindDeposit {
			sum = sum.Add(e.Amount)
		} else {
			sum = sum.Sub(e.Amount)
		}
	}
	return sum
}

func (m *Memory) DerivedBalance(ctx context.Context, accountID uuid.UUID, asset domain.AssetTag) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[accountID]; !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	return m.derivedLocked(accountID, asset), nil
}

func (m *Memory) ResolveEntry(ctx context.Context, id uuid.UUID, d domain.Decision, settle domain.Settlement) (*domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if e.Status != domain.StatusPending {
		return nil, domain.ErrAlreadyResolved
	}

	now := time.Now().UTC()
	e.Status = domain.EntryStatus(d)
	e.ResolvedAt = &now
	m.applySettlementLocked(e.AccountId, settle)
	cp := *e
	return &cp, nil
}

func (m *Memory) applySettlementLocked(accountID uuid.UUID, settle domain.Settlement) {
	acc, ok := m.accounts[accountID]
	if !ok {
		return
	}
	if !settle.CreditFiat.IsZero() {
		acc.FiatBalance = acc.FiatBalance.Add(settle.CreditFiat)
	}
	if settle.SetVerification != nil {
		acc.Verification = *settle.SetVerification
	}
}

func (m *Memory) CompensateOutflow(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !e.Outflow() || e.Status != domain.StatusRejected {
		return nil, domain.ErrValidation
	}
	if e.Compensated {
		return nil, domain.ErrAlreadyResolved
	}

	e.Compensated = true
	if e.Asset == domain.AssetFiat {
		m.accounts[e.AccountId].FiatBalance = m.accounts[e.AccountId].FiatBalance.Add(e.Amount)
	} else {
		now := time.Now().UTC()
		credit := &domain.LedgerEntry{
			Id:          uuid.New(),
			AccountId:   e.AccountId,
			Kind:        domain.KindDeposit,
			Asset:       e.Asset,
			Amount:      e.Amount,
			Status:      domain.StatusApproved,
			Rail:        e.Rail,
			Counterpart: e.Counterpart,
			CreatedAt:   now,
			ResolvedAt:  &now,
		}
		m.entries[credit.Id] = credit
		m.entryOrder = append(m.entryOrder, credit.Id)
	}
	cp := *e
	return &cp, nil
}

func (m *Memory) PendingDeposits(ctx context.Context, limit, offset int) ([]domain.LedgerEntry, error) {
	return m.pendingEntries(func(e *domain.LedgerEntry) bool { return e.Kind == domain.KindDeposit }, limit, offset)
}

func (m *Memory) PendingOutflows(ctx context.Context, limit, offset int) ([]domain.LedgerEntry, error) {
	return m.pendingEntries((*domain.LedgerEntry).Outflow, limit, offset)
}

func (m *Memory) pendingEntries(match func(*domain.LedgerEntry) bool, limit, offset int) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.LedgerEntry{}
	for _, id := range m.entryOrder {
		if e := m.entries[id]; e.Status == domain.StatusPending && match(e) {
			out = append(out, *e)
		}
	}
	return page(out, limit, offset), nil
}

func (m *Memory) InsertClaim(ctx context.Context, c *domain.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[c.AccountId]; !ok {
		return domain.ErrNotFound
	}
	cp := *c
	m.claims[c.Id] = &cp
	m.claimOrder = append(m.claimOrder, c.Id)
	return nil
}

func (m *Memory) ClaimByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) ResolveClaim(ctx context.Context, id uuid.UUID, d domain.Decision, settle domain.Settlement) (*domain.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.claims[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if c.Status != domain.StatusPending {
		return nil, domain.ErrAlreadyResolved
	}

	now := time.Now().UTC()
	c.Status = domain.EntryStatus(d)
	c.ResolvedAt = &now
	m.applySettlementLocked(c.AccountId, settle)
	cp := *c
	return &cp, nil
}

func (m *Memory) PendingClaims(ctx context.Context, kind domain.ClaimKind, limit, offset int) ([]domain.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Claim{}
	for _, id := range m.claimOrder {
		if c := m.claims[id]; c.Kind == kind && c.Status == domain.StatusPending {
			out = append(out, *c)
		}
	}
	return page(out, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
