package approval_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mvalverde/go-custody/internal/approval"
	"github.com/mvalverde/go-custody/internal/domain"
	"github.com/mvalverde/go-custody/internal/store"
)

type stubOperators struct{ err error }

func (s stubOperators) Check(token string) error { return s.err }

func setup(t *testing.T) (*store.Memory, *approval.Engine, uuid.UUID) {
	t.Helper()
	st := store.NewMemory()
	eng := approval.NewEngine(st, stubOperators{})
	acc := &domain.Account{
		Id:           uuid.New(),
		Email:        "user@example.com",
		FiatBalance:  decimal.Zero,
		Verification: domain.Unverified,
	}
	require.NoError(t, st.CreateAccount(context.Background(), acc, nil))
	return st, eng, acc.Id
}

func pendingDeposit(t *testing.T, st *store.Memory, accountID uuid.UUID, amount string, asset domain.AssetTag) *domain.LedgerEntry {
	t.Helper()
	e := &domain.LedgerEntry{
		Id:          uuid.New(),
		AccountId:   accountID,
		Kind:        domain.KindDeposit,
		Asset:       asset,
		Amount:      decimal.RequireFromString(amount),
		Status:      domain.StatusPending,
		Rail:        domain.RailBank,
		Counterpart: domain.DomesticBank{BankName: "First National", AccountNumber: "77"},
	}
	require.NoError(t, st.InsertDeposit(context.Background(), e))
	return e
}

// fundFiat credits the stored balance by approving a deposit claim.
func fundFiat(t *testing.T, st *store.Memory, eng *approval.Engine, accountID uuid.UUID, amount string) {
	t.Helper()
	e := pendingDeposit(t, st, accountID, amount, domain.AssetFiat)
	_, err := eng.Resolve(context.Background(), domain.ClaimDeposit, e.Id, domain.Approve, "op")
	require.NoError(t, err)
}

func pendingWireOutflow(t *testing.T, st *store.Memory, accountID uuid.UUID, amount string) *domain.LedgerEntry {
	t.Helper()
	e := &domain.LedgerEntry{
		Id:        uuid.New(),
		AccountId: accountID,
		Kind:      domain.KindWithdrawal,
		Asset:     domain.AssetFiat,
		Amount:    decimal.RequireFromString(amount),
		Status:    domain.StatusPending,
		Rail:      domain.RailWire,
		Counterpart: domain.InternationalWire{
			SwiftCode: "DEUTDEFF",
			Iban:      "DE89370400440532013000",
		},
	}
	require.NoError(t, st.InsertOutflow(context.Background(), e))
	return e
}

func fiatBalance(t *testing.T, st *store.Memory, accountID uuid.UUID) decimal.Decimal {
	t.Helper()
	account, err := st.AccountByID(context.Background(), accountID)
	require.NoError(t, err)
	return account.FiatBalance
}

func TestApproveFiatDepositCreditsStoredBalance(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	e := pendingDeposit(t, st, acc, "500", domain.AssetFiat)

	// Stored balance untouched while the claim is pending.
	account, err := st.AccountByID(ctx, acc)
	require.NoError(t, err)
	require.True(t, account.FiatBalance.IsZero())

	res, err := eng.Resolve(ctx, domain.ClaimDeposit, e.Id, domain.Approve, "op")
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, res.Entry.Status)
	require.NotNil(t, res.Entry.ResolvedAt)

	account, err = st.AccountByID(ctx, acc)
	require.NoError(t, err)
	require.True(t, account.FiatBalance.Equal(decimal.RequireFromString("500")))
}

func TestRejectDepositLeavesBalanceAlone(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	e := pendingDeposit(t, st, acc, "500", domain.AssetFiat)
	res, err := eng.Resolve(ctx, domain.ClaimDeposit, e.Id, domain.Reject, "op")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, res.Entry.Status)

	account, err := st.AccountByID(ctx, acc)
	require.NoError(t, err)
	require.True(t, account.FiatBalance.IsZero())
}

func TestResolveTwiceFailsSecondCall(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	e := pendingDeposit(t, st, acc, "100", domain.AssetBTC)

	_, err := eng.Resolve(ctx, domain.ClaimDeposit, e.Id, domain.Approve, "op")
	require.NoError(t, err)

	_, err = eng.Resolve(ctx, domain.ClaimDeposit, e.Id, domain.Reject, "op")
	require.ErrorIs(t, err, domain.ErrAlreadyResolved)

	// The winning decision is stable.
	entry, err := st.EntryByID(ctx, e.Id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, entry.Status)
}

func TestConcurrentResolveHasOneWinner(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	e := pendingDeposit(t, st, acc, "100", domain.AssetBTC)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Resolve(ctx, domain.ClaimDeposit, e.Id, domain.Approve, "op")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, already int
	for err := range results {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, domain.ErrAlreadyResolved)
			already++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, already)
}

func TestResolveUnknownRecord(t *testing.T) {
	_, eng, _ := setup(t)
	_, err := eng.Resolve(context.Background(), domain.ClaimDeposit, uuid.New(), domain.Approve, "op")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveRequiresOperatorSession(t *testing.T) {
	st := store.NewMemory()
	eng := approval.NewEngine(st, stubOperators{err: domain.ErrAuthorization})
	_, err := eng.Resolve(context.Background(), domain.ClaimDeposit, uuid.New(), domain.Approve, "bogus")
	require.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestLoanApprovalDisbursesPrincipal(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	claim, err := eng.SubmitLoan(ctx, acc, decimal.RequireFromString("2500"), "equipment")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, claim.Status)

	res, err := eng.Resolve(ctx, domain.ClaimLoan, claim.Id, domain.Approve, "op")
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, res.Claim.Status)

	account, err := st.AccountByID(ctx, acc)
	require.NoError(t, err)
	require.True(t, account.FiatBalance.Equal(decimal.RequireFromString("2500")))
}

func TestTaxRefundValidation(t *testing.T) {
	_, eng, acc := setup(t)
	ctx := context.Background()

	_, err := eng.SubmitTaxRefund(ctx, acc, decimal.Zero, 2024)
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = eng.SubmitTaxRefund(ctx, acc, decimal.RequireFromString("100"), 1990)
	require.ErrorIs(t, err, domain.ErrValidation)

	claim, err := eng.SubmitTaxRefund(ctx, acc, decimal.RequireFromString("100"), 2024)
	require.NoError(t, err)
	require.Equal(t, domain.ClaimTaxRefund, claim.Kind)
}

func TestVerificationLifecycle(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	claim, err := eng.SubmitVerification(ctx, acc, "Ada Lovelace", []string{"passport.jpg"})
	require.NoError(t, err)

	account, err := st.AccountByID(ctx, acc)
	require.NoError(t, err)
	require.Equal(t, domain.VerificationPending, account.Verification)

	// No double submission while pending.
	_, err = eng.SubmitVerification(ctx, acc, "Ada Lovelace", []string{"passport.jpg"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = eng.Resolve(ctx, domain.ClaimVerification, claim.Id, domain.Approve, "op")
	require.NoError(t, err)

	account, err = st.AccountByID(ctx, acc)
	require.NoError(t, err)
	require.Equal(t, domain.Verified, account.Verification)

	// Verified accounts cannot resubmit.
	_, err = eng.SubmitVerification(ctx, acc, "Ada Lovelace", []string{"passport.jpg"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestVerificationRejectionAllowsResubmit(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	claim, err := eng.SubmitVerification(ctx, acc, "Ada Lovelace", []string{"passport.jpg"})
	require.NoError(t, err)

	_, err = eng.Resolve(ctx, domain.ClaimVerification, claim.Id, domain.Reject, "op")
	require.NoError(t, err)

	account, err := st.AccountByID(ctx, acc)
	require.NoError(t, err)
	require.Equal(t, domain.VerificationDenied, account.Verification)

	_, err = eng.SubmitVerification(ctx, acc, "Ada Lovelace", []string{"id-card.jpg"})
	require.NoError(t, err)
}

func TestApproveSettlementLeavesDebitInPlace(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	fundFiat(t, st, eng, acc, "500")
	e := pendingWireOutflow(t, st, acc, "200")
	require.True(t, fiatBalance(t, st, acc).Equal(decimal.RequireFromString("300")))

	res, err := eng.Resolve(ctx, domain.ClaimSettlement, e.Id, domain.Approve, "op")
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, res.Entry.Status)

	// The wire settled; the debit from submission is the outflow.
	require.True(t, fiatBalance(t, st, acc).Equal(decimal.RequireFromString("300")))
}

func TestRejectSettlementDoesNotRefund(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	fundFiat(t, st, eng, acc, "500")
	e := pendingWireOutflow(t, st, acc, "200")

	res, err := eng.Resolve(ctx, domain.ClaimSettlement, e.Id, domain.Reject, "op")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, res.Entry.Status)

	// Recovery is Compensate's job, never the status flip's.
	require.True(t, fiatBalance(t, st, acc).Equal(decimal.RequireFromString("300")))
}

func TestOutflowNotResolvableThroughDepositQueue(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	fundFiat(t, st, eng, acc, "500")
	e := pendingWireOutflow(t, st, acc, "200")

	_, err := eng.Resolve(ctx, domain.ClaimDeposit, e.Id, domain.Approve, "op")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// No credit minted and the entry is still awaiting settlement.
	require.True(t, fiatBalance(t, st, acc).Equal(decimal.RequireFromString("300")))
	entry, err := st.EntryByID(ctx, e.Id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, entry.Status)
}

func TestDepositNotResolvableThroughSettlementQueue(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	e := pendingDeposit(t, st, acc, "500", domain.AssetFiat)
	_, err := eng.Resolve(ctx, domain.ClaimSettlement, e.Id, domain.Approve, "op")
	require.ErrorIs(t, err, domain.ErrNotFound)

	entry, err := st.EntryByID(ctx, e.Id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, entry.Status)
}

func TestPendingQueuesPaginateIndependently(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	fundFiat(t, st, eng, acc, "1000")

	// Interleave deposits and outflows so each queue's pages only stay
	// full if the kind filter runs before pagination.
	var deposits, outflows []*domain.LedgerEntry
	for range 3 {
		deposits = append(deposits, pendingDeposit(t, st, acc, "10", domain.AssetFiat))
		outflows = append(outflows, pendingWireOutflow(t, st, acc, "10"))
	}

	pageOne, err := eng.ListPendingDeposits(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, pageOne, 2)
	require.Equal(t, deposits[0].Id, pageOne[0].Id)
	require.Equal(t, deposits[1].Id, pageOne[1].Id)

	pageTwo, err := eng.ListPendingDeposits(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, pageTwo, 1)
	require.Equal(t, deposits[2].Id, pageTwo[0].Id)

	pageOne, err = eng.ListPendingSettlements(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, pageOne, 2)
	require.Equal(t, outflows[0].Id, pageOne[0].Id)
	require.Equal(t, outflows[1].Id, pageOne[1].Id)

	pageTwo, err = eng.ListPendingSettlements(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, pageTwo, 1)
	require.Equal(t, outflows[2].Id, pageTwo[0].Id)
}

func TestListPendingReflectsResolution(t *testing.T) {
	st, eng, acc := setup(t)
	ctx := context.Background()

	e1 := pendingDeposit(t, st, acc, "10", domain.AssetFiat)
	e2 := pendingDeposit(t, st, acc, "20", domain.AssetFiat)

	pending, err := eng.ListPendingDeposits(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	_, err = eng.Resolve(ctx, domain.ClaimDeposit, e1.Id, domain.Approve, "op")
	require.NoError(t, err)

	pending, err = eng.ListPendingDeposits(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, e2.Id, pending[0].Id)
}

func TestResolveKindMismatch(t *testing.T) {
	_, eng, acc := setup(t)
	ctx := context.Background()

	claim, err := eng.SubmitLoan(ctx, acc, decimal.RequireFromString("100"), "car")
	require.NoError(t, err)

	_, err = eng.Resolve(ctx, domain.ClaimTaxRefund, claim.Id, domain.Approve, "op")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
