package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mvalverde/go-custody/internal/domain"
)

//go:embed schema.sql
var schema string

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate applies the schema. Statements are idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schema)
	return err
}

const accountColumns = `id, email, password_hash, pin_hash, fiat_balance, verification,
	trusted_device, login_code_hash, login_code_exp, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	err := row.Scan(&acc.Id, &acc.Email, &acc.PasswordHash, &acc.PinHash, &acc.FiatBalance,
		&acc.Verification, &acc.TrustedDevice, &acc.LoginCodeHash, &acc.LoginCodeExp, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (p *Postgres) CreateAccount(ctx context.Context, acc *domain.Account, wallets []domain.Wallet) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, pin_hash, fiat_balance, verification, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		acc.Id, acc.Email, acc.PasswordHash, acc.PinHash, acc.FiatBalance, acc.Verification, acc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}

	for _, w := range wallets {
		_, err = tx.Exec(ctx, `
			INSERT INTO wallets (account_id, chain, address, sealed_key, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			w.AccountId, w.Chain, w.Address, w.SealedKey, w.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert wallet %s: %w", w.Chain, err)
		}
	}

	return tx.Commit(ctx)
}

func (p *Postgres) AccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := p.pool.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id)
	return scanAccount(row)
}

func (p *Postgres) AccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := p.pool.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email = $1", email)
	return scanAccount(row)
}

func (p *Postgres) SetLoginCode(ctx context.Context, id uuid.UUID, codeHash string, exp time.Time) error {
	tag, err := p.pool.Exec(ctx,
		"UPDATE accounts SET login_code_hash = $1, login_code_exp = $2 WHERE id = $3",
		codeHash, exp, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (p *Postgres) TrustDevice(ctx context.Context, id uuid.UUID, fingerprint string) error {
	tag, err := p.pool.Exec(ctx,
		"UPDATE accounts SET trusted_device = $1, login_code_hash = '', login_code_exp = NULL WHERE id = $2",
		fingerprint, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (p *Postgres) SetVerification(ctx context.Context, id uuid.UUID, status domain.VerificationStatus) error {
	tag, err := p.pool.Exec(ctx, "UPDATE accounts SET verification = $1 WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (p *Postgres) WalletsByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Wallet, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT account_id, chain, address, sealed_key, created_at FROM wallets WHERE account_id = $1 ORDER BY chain",
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(&w.AccountId, &w.Chain, &w.Address, &w.SealedKey, &w.CreatedAt); err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (p *Postgres) SaveWallets(ctx context.Context, wallets []domain.Wallet) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, w := range wallets {
		_, err = tx.Exec(ctx, `
			INSERT INTO wallets (account_id, chain, address, sealed_key, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			w.AccountId, w.Chain, w.Address, w.SealedKey, w.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert wallet %s: %w", w.Chain, err)
		}
	}
	return tx.Commit(ctx)
}

func insertEntry(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	payload, err := domain.EncodeCounterparty(e.Counterpart)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, account_id, kind, asset, amount, status, rail, counterparty, compensated, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.Id, e.AccountId, e.Kind, e.Asset, e.Amount, e.Status, e.Rail, payload, e.Compensated, e.CreatedAt, e.ResolvedAt)
	return err
}

func (p *Postgres) InsertDeposit(ctx context.Context, e *domain.LedgerEntry) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertEntry(ctx, tx, e); err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	return tx.Commit(ctx)
}

// InsertOutflow locks the account row so the funds check and the debit are
// atomic against concurrent outflows on the same account.
func (p *Postgres) InsertOutflow(ctx context.Context, e *domain.LedgerEntry) error {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var fiatBalance decimal.Decimal
	err = tx.QueryRow(ctx, "SELECT fiat_balance FROM accounts WHERE id = $1 FOR UPDATE", e.AccountId).
		Scan(&fiatBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock account: %w", err)
	}

	if e.Asset == domain.AssetFiat {
		if fiatBalance.LessThan(e.Amount) {
			return domain.ErrInsufficientFunds
		}
		_, err = tx.Exec(ctx, "UPDATE accounts SET fiat_balance = fiat_balance - $1 WHERE id = $2",
			e.Amount, e.AccountId)
		if err != nil {
			return fmt.Errorf("debit account: %w", err)
		}
	} else {
		available, err := derivedBalance(ctx, tx, e.AccountId, e.Asset)
		if err != nil {
			return err
		}
		if available.LessThan(e.Amount) {
			return domain.ErrInsufficientFunds
		}
	}

	if err := insertEntry(ctx, tx, e); err != nil {
		return fmt.Errorf("insert outflow: %w", err)
	}
	return tx.Commit(ctx)
}

const entryColumns = `id, account_id, kind, asset, amount, status, rail, counterparty, compensated, created_at, resolved_at`

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	var payload []byte
	err := row.Scan(&e.Id, &e.AccountId, &e.Kind, &e.Asset, &e.Amount, &e.Status,
		&e.Rail, &payload, &e.Compensated, &e.CreatedAt, &e.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	e.Counterpart, err = domain.DecodeCounterparty(e.Rail, payload)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (p *Postgres) EntryByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	row := p.pool.QueryRow(ctx, "SELECT "+entryColumns+" FROM ledger_entries WHERE id = $1", id)
	return scanEntry(row)
}

func (p *Postgres) Entries(ctx context.Context, accountID uuid.UUID, asset *domain.AssetTag, limit, offset int) ([]domain.LedgerEntry, int, error) {
	where := "WHERE account_id = $1"
	args := []any{accountID}
	if asset != nil {
		where += " AND asset = $2"
		args = append(args, *asset)
	}

	var total int
	if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM ledger_entries %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		entryColumns, where, limit, offset)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func derivedBalance(ctx context.Context, q queryer, accountID uuid.UUID, asset domain.AssetTag) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN kind = 'DEPOSIT' THEN amount ELSE -amount END), 0)
		FROM ledger_entries
		WHERE account_id = $1 AND asset = $2 AND status = 'APPROVED'`,
		accountID, asset).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("derive balance: %w", err)
	}
	return sum, nil
}

func (p *Postgres) DerivedBalance(ctx context.Context, accountID uuid.UUID, asset domain.AssetTag) (decimal.Decimal, error) {
	// COALESCE makes the sum zero-valued for any account id, known or
	// not; check existence so unknown accounts fail like everywhere
	// else.
	var exists bool
	if err := p.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)", accountID).Scan(&exists); err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, domain.ErrNotFound
	}
	return derivedBalance(ctx, p.pool, accountID, asset)
}

func applySettlement(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, settle domain.Settlement) error {
	if !settle.CreditFiat.IsZero() {
		_, err := tx.Exec(ctx, "UPDATE accounts SET fiat_balance = fiat_balance + $1 WHERE id = $2",
			settle.CreditFiat, accountID)
		if err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
	}
	if settle.SetVerification != nil {
		_, err := tx.Exec(ctx, "UPDATE accounts SET verification = $1 WHERE id = $2",
			*settle.SetVerification, accountID)
		if err != nil {
			return fmt.Errorf("set verification: %w", err)
		}
	}
	return nil
}

func (p *Postgres) ResolveEntry(ctx context.Context, id uuid.UUID, d domain.Decision, settle domain.Settlement) (*domain.LedgerEntry, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Conditional update is the concurrency control: of two racing
	// resolvers exactly one sees RowsAffected == 1.
	tag, err := tx.Exec(ctx,
		"UPDATE ledger_entries SET status = $1, resolved_at = now() WHERE id = $2 AND status = 'PENDING'",
		domain.EntryStatus(d), id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE id = $1)", id).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrAlreadyResolved
	}

	e, err := scanEntry(tx.QueryRow(ctx, "SELECT "+entryColumns+" FROM ledger_entries WHERE id = $1", id))
	if err != nil {
		return nil, err
	}
	if err := applySettlement(ctx, tx, e.AccountId, settle); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *Postgres) CompensateOutflow(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	e, err := scanEntry(tx.QueryRow(ctx, "SELECT "+entryColumns+" FROM ledger_entries WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		return nil, err
	}
	if !e.Outflow() || e.Status != domain.StatusRejected {
		return nil, domain.ErrValidation
	}
	if e.Compensated {
		return nil, domain.ErrAlreadyResolved
	}

	if _, err := tx.Exec(ctx, "UPDATE ledger_entries SET compensated = true WHERE id = $1", id); err != nil {
		return nil, err
	}
	e.Compensated = true

	if e.Asset == domain.AssetFiat {
		_, err = tx.Exec(ctx, "UPDATE accounts SET fiat_balance = fiat_balance + $1 WHERE id = $2",
			e.Amount, e.AccountId)
		if err != nil {
			return nil, fmt.Errorf("credit account: %w", err)
		}
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
		if err := insertEntry(ctx, tx, credit); err != nil {
			return nil, fmt.Errorf("insert compensation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *Postgres) PendingDeposits(ctx context.Context, limit, offset int) ([]domain.LedgerEntry, error) {
	return p.pendingEntries(ctx, "kind = 'DEPOSIT'", limit, offset)
}

func (p *Postgres) PendingOutflows(ctx context.Context, limit, offset int) ([]domain.LedgerEntry, error) {
	return p.pendingEntries(ctx, "kind <> 'DEPOSIT'", limit, offset)
}

func (p *Postgres) pendingEntries(ctx context.Context, kindCond string, limit, offset int) ([]domain.LedgerEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM ledger_entries WHERE status = 'PENDING' AND %s ORDER BY created_at LIMIT %d OFFSET %d",
		entryColumns, kindCond, limit, offset)
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

const claimColumns = `id, account_id, kind, status, amount, purpose, tax_year, documents, full_name, created_at, resolved_at`

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var c domain.Claim
	err := row.Scan(&c.Id, &c.AccountId, &c.Kind, &c.Status, &c.Amount, &c.Purpose,
		&c.TaxYear, &c.Documents, &c.FullName, &c.CreatedAt, &c.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) InsertClaim(ctx context.Context, c *domain.Claim) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO claims (id, account_id, kind, status, amount, purpose, tax_year, documents, full_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.Id, c.AccountId, c.Kind, c.Status, c.Amount, c.Purpose, c.TaxYear, c.Documents, c.FullName, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (p *Postgres) ClaimByID(ctx context.Context, id uuid.UUID) (*domain.Claim, error) {
	return scanClaim(p.pool.QueryRow(ctx, "SELECT "+claimColumns+" FROM claims WHERE id = $1", id))
}

func (p *Postgres) ResolveClaim(ctx context.Context, id uuid.UUID, d domain.Decision, settle domain.Settlement) (*domain.Claim, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"UPDATE claims SET status = $1, resolved_at = now() WHERE id = $2 AND status = 'PENDING'",
		domain.EntryStatus(d), id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM claims WHERE id = $1)", id).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrAlreadyResolved
	}

	c, err := scanClaim(tx.QueryRow(ctx, "SELECT "+claimColumns+" FROM claims WHERE id = $1", id))
	if err != nil {
		return nil, err
	}
	if err := applySettlement(ctx, tx, c.AccountId, settle); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Postgres) PendingClaims(ctx context.Context, kind domain.ClaimKind, limit, offset int) ([]domain.Claim, error) {
	query := fmt.Sprintf("SELECT %s FROM claims WHERE kind = $1 AND status = 'PENDING' ORDER BY created_at LIMIT %d OFFSET %d",
		claimColumns, limit, offset)
	rows, err := p.pool.Query(ctx, query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claims := []domain.Claim{}
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}
