package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mvalverde/go-custody/internal/domain"
	"github.com/mvalverde/go-custody/internal/ledger"
	"github.com/mvalverde/go-custody/internal/store"
)

type stubPins struct{ err error }

func (s stubPins) VerifyPIN(ctx context.Context, accountID uuid.UUID, pin string) error {
	return s.err
}

type stubOperators struct{ err error }

func (s stubOperators) Check(token string) error { return s.err }

func newAccount(t *testing.T, st *store.Memory, fiat string) uuid.UUID {
	t.Helper()
	acc := &domain.Account{
		Id:          uuid.New(),
		Email:       uuid.NewString() + "@example.com",
		FiatBalance: decimal.RequireFromString(fiat),
	}
	require.NoError(t, st.CreateAccount(context.Background(), acc, nil))
	return acc.Id
}

func approvedDeposit(t *testing.T, st *store.Memory, svc *ledger.Service, accountID uuid.UUID, amount string, asset domain.AssetTag) *domain.LedgerEntry {
	t.Helper()
	e, err := svc.RecordDeposit(context.Background(), accountID, decimal.RequireFromString(amount), asset,
		domain.CryptoAddress{Chain: domain.Chain(asset), Address: "ext"})
	require.NoError(t, err)
	resolved, err := st.ResolveEntry(context.Background(), e.Id, domain.Approve, domain.Settlement{})
	require.NoError(t, err)
	return resolved
}

func TestDerivedBalanceSumsApprovedEntries(t *testing.T) {
	st := store.NewMemory()
	svc := ledger.NewService(st, stubPins{}, stubOperators{})
	ctx := context.Background()
	acc := newAccount(t, st, "0")

	approvedDeposit(t, st, svc, acc, "0.7", domain.AssetBTC)
	approvedDeposit(t, st, svc, acc, "0.3", domain.AssetBTC)

	// A pending deposit must not count.
	_, err := svc.RecordDeposit(ctx, acc, decimal.RequireFromString("9"), domain.AssetBTC,
		domain.CryptoAddress{Chain: domain.ChainBTC, Address: "ext"})
	require.NoError(t, err)

	_, err = svc.RecordOutflow(ctx, acc, decimal.RequireFromString("0.4"), domain.AssetBTC,
		domain.KindWithdrawal, domain.CryptoAddress{Chain: domain.ChainBTC, Address: "dest"}, "0000")
	require.NoError(t, err)

	balance, err := svc.BalanceOf(ctx, acc, domain.AssetBTC)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("0.6")), "got %s", balance)
}

func TestPendingDepositInvisibleUntilApproved(t *testing.T) {
	st := store.NewMemory()
	svc := ledger.NewService(st, stubPins{}, stubOperators{})
	ctx := context.Background()
	acc := newAccount(t, st, "0")

	e, err := svc.RecordDeposit(ctx, acc, decimal.RequireFromString("1.5"), domain.AssetETH,
		domain.CryptoAddress{Chain: domain.ChainETH, Address: "ext"})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, e.Status)

	balance, err := svc.BalanceOf(ctx, acc, domain.AssetETH)
	require.NoError(t, err)
	require.True(t, balance.IsZero())

	_, err = st.ResolveEntry(ctx, e.Id, domain.Approve, domain.Settlement{})
	require.NoError(t, err)

	balance, err = svc.BalanceOf(ctx, acc, domain.AssetETH)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("1.5")))
}

func TestOutflowWrongPinCreatesNoEntry(t *testing.T) {
	st := store.NewMemory()
	svc := ledger.NewService(st, stubPins{err: domain.ErrAuthorization}, stubOperators{})
	ctx := context.Background()
	acc := newAccount(t, st, "100")

	_, err := svc.RecordOutflow(ctx, acc, decimal.RequireFromString("10"), domain.AssetFiat,
		domain.KindTransfer, domain.InternalAccount{AccountId: uuid.New()}, "9999")
	require.ErrorIs(t, err, domain.ErrAuthorization)

	_, total, err := svc.History(ctx, acc, nil, 50, 0)
	require.NoError(t, err)
	require.Zero(t, total)

	balance, err := svc.BalanceOf(ctx, acc, domain.AssetFiat)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("100")))
}

func TestOutflowInsufficientFunds(t *testing.T) {
	st := store.NewMemory()
	svc := ledger.NewService(st, stubPins{}, stubOperators{})
	ctx := context.Background()
	acc := newAccount(t, st, "0")

	approvedDeposit(t, st, svc, acc, "0.5", domain.AssetBTC)

	dest := domain.CryptoAddress{Chain: domain.ChainBTC, Address: "dest"}
	_, err := svc.RecordOutflow(ctx, acc, decimal.RequireFromString("0.6"), domain.AssetBTC,
		domain.KindWithdrawal, dest, "0000")
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = svc.RecordOutflow(ctx, acc, decimal.RequireFromString("0.5"), domain.AssetBTC,
		domain.KindWithdrawal, dest, "0000")
	require.NoError(t, err)

	balance, err := svc.BalanceOf(ctx, acc, domain.AssetBTC)
	require.NoError(t, err)
	require.True(t, balance.IsZero(), "got %s", balance)
}

func TestRailDecidesInitialStatus(t *testing.T) {
	st := store.NewMemory()
	svc := ledger.NewService(st, stubPins{}, stubOperators{})
	ctx := context.Background()
	acc := newAccount(t, st, "1000")

	instant, err := svc.RecordOutflow(ctx, acc, decimal.RequireFromString("10"), domain.AssetFiat,
		domain.KindTransfer, domain.InternalAccount{AccountId: uuid.New()}, "0000")
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, instant.Status)
	require.NotNil(t, instant.ResolvedAt)

	manual, err := svc.RecordOutflow(ctx, acc, decimal.RequireFromString("20"), domain.AssetFiat,
		domain.KindWithdrawal, domain.InternationalWire{SwiftCode: "DEUTDEFF", Iban: "DE02"}, "0000")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, manual.Status)

	// The debit happened for both, pending or not.
	balance, err := svc.BalanceOf(ctx, acc, domain.AssetFiat)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("970")), "got %s", balance)
}

func TestConcurrentOutflowsNeverOverdraw(t *testing.T) {
	st := store.NewMemory()
	svc := ledger.NewService(st, stubPins{}, stubOperators{})
	ctx := context.Background()
	acc := newAccount(t, st, "150")

	amount := decimal.RequireFromString("100")
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordOutflow(ctx, acc, amount, domain.AssetFiat,
				domain.KindTransfer, domain.InternalAccount{AccountId: uuid.New()}, "0000")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
			insufficient++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, insufficient)

	balance, err := svc.BalanceOf(ctx, acc, domain.AssetFiat)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("50")), "got %s", balance)
}

func TestCompensateRejectedOutflow(t *testing.T) {
	st := store.NewMemory()
	svc := ledger.NewService(st, stubPins{}, stubOperators{})
	ctx := context.Background()
	acc := newAccount(t, st, "500")

	e, err := svc.RecordOutflow(ctx, acc, decimal.RequireFromString("200"), domain.AssetFiat,
		domain.KindWithdrawal, domain.InternationalWire{SwiftCode: "DEUTDEFF", Iban: "DE02"}, "0000")
	require.NoError(t, err)

	// Rejection of the settlement does not refund by itself.
	_, err = st.ResolveEntry(ctx, e.Id, domain.Reject, domain.Settlement{})
	require.NoError(t, err)
	balance, err := svc.BalanceOf(ctx, acc, domain.AssetFiat)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("300")))

	compensated, err := svc.Compensate(ctx, e.Id, "op-token")
	require.NoError(t, err)
	require.True(t, compensated.Compensated)

	balance, err = svc.BalanceOf(ctx, acc, domain.AssetFiat)
	require.NoError(t, err)
	require.True(t, balance.Equal(decimal.RequireFromString("500")))

	// Only once.
	_, err = svc.Compensate(ctx, e.Id, "op-token")
	require.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

func TestCompensateRequiresOperator(t *testing.T) {
	st := store.NewMemory()
	svc := ledger.NewService(st, stubPins{}, stubOperators{err: domain.ErrAuthorization})

	_, err := svc.Compensate(context.Background(), uuid.New(), "bogus")
	require.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestValidationRejectsBadMovements(t *testing.T) {
	st := store.NewMemory()
	svc := ledger.NewService(st, stubPins{}, stubOperators{})
	ctx := context.Background()
	acc := newAccount(t, st, "100")

	_, err := svc.RecordDeposit(ctx, acc, decimal.Zero, domain.AssetFiat,
		domain.DomesticBank{BankName: "First", AccountNumber: "1"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.RecordDeposit(ctx, acc, decimal.RequireFromString("5"), domain.AssetTag("DOGE"),
		domain.DomesticBank{BankName: "First", AccountNumber: "1"})
	require.ErrorIs(t, err, domain.ErrValidation)

	// A BTC address cannot settle an ETH outflow.
	_, err = svc.RecordOutflow(ctx, acc, decimal.RequireFromString("1"), domain.AssetETH,
		domain.KindWithdrawal, domain.CryptoAddress{Chain: domain.ChainBTC, Address: "dest"}, "0000")
	require.ErrorIs(t, err, domain.ErrValidation)

	// Deposits are not outflows.
	_, err = svc.RecordOutflow(ctx, acc, decimal.RequireFromString("1"), domain.AssetFiat,
		domain.KindDeposit, domain.InternalAccount{AccountId: uuid.New()}, "0000")
	require.ErrorIs(t, err, domain.ErrValidation)
}
