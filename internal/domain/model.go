package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Chain string

const (
	ChainBTC Chain = "BTC"
	ChainETH Chain = "ETH"
	ChainSOL Chain = "SOL"
	ChainTRX Chain = "TRX"
)

// SupportedChains is the closed set of chains every account gets a wallet on.
var SupportedChains = []Chain{ChainBTC, ChainETH, ChainSOL, ChainTRX}

type AssetTag string

const (
	AssetFiat AssetTag = "FIAT"
	AssetBTC  AssetTag = "BTC"
	AssetETH  AssetTag = "ETH"
	AssetSOL  AssetTag = "SOL"
	AssetTRX  AssetTag = "TRX"
)

var assetTags = map[AssetTag]bool{
	AssetFiat: true,
	AssetBTC:  true,
	AssetETH:  true,
	AssetSOL:  true,
	AssetTRX:  true,
}

func ValidAsset(a AssetTag) bool {
	return assetTags[a]
}

type VerificationStatus string

const (
	Unverified          VerificationStatus = "UNVERIFIED"
	VerificationPending VerificationStatus = "PENDING"
	Verified            VerificationStatus = "VERIFIED"
	VerificationDenied  VerificationStatus = "REJECTED"
)

type Account struct {
	Id           uuid.UUID          `json:"id"`
	Email        string             `json:"email"`
	PasswordHash string             `json:"-"`
	PinHash      string             `json:"-"`
	FiatBalance  decimal.Decimal    `json:"fiat_balance"`
	Verification VerificationStatus `json:"verification"`

	// Device trust and one-time login code state, mutated only by the
	// authentication gate.
	TrustedDevice string     `json:"-"`
	LoginCodeHash string     `json:"-"`
	LoginCodeExp  *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

type Wallet struct {
	AccountId uuid.UUID `json:"account_id"`
	Chain     Chain     `json:"chain"`
	Address   string    `json:"address"`
	// SealedKey is the AES-GCM sealed private key material, nonce-prefixed.
	// Only the custody service can open it.
	SealedKey []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type EntryKind string

const (
	KindDeposit    EntryKind = "DEPOSIT"
	KindTransfer   EntryKind = "TRANSFER"
	KindWithdrawal EntryKind = "WITHDRAWAL"
)

type EntryStatus string

const (
	StatusPending  EntryStatus = "PENDING"
	StatusApproved EntryStatus = "APPROVED"
	StatusRejected EntryStatus = "REJECTED"
)

// LedgerEntry is append-only: every field except Status, ResolvedAt and
// Compensated is immutable once the entry exists, and Status only moves
// PENDING -> APPROVED or PENDING -> REJECTED.
type LedgerEntry struct {
	Id          uuid.UUID       `json:"id"`
	AccountId   uuid.UUID       `json:"account_id"`
	Kind        EntryKind       `json:"kind"`
	Asset       AssetTag        `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	Status      EntryStatus     `json:"status"`
	Rail        Rail            `json:"rail"`
	Counterpart Counterparty    `json:"counterparty"`
	// Compensated marks a rejected outflow whose debit has been credited
	// back by an operator. At most one compensation per entry.
	Compensated bool       `json:"compensated"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}

func (e *LedgerEntry) Outflow() bool {
	return e.Kind == KindTransfer || e.Kind == KindWithdrawal
}

type ClaimKind string

const (
	ClaimDeposit      ClaimKind = "DEPOSIT"
	ClaimLoan         ClaimKind = "LOAN"
	ClaimTaxRefund    ClaimKind = "TAX_REFUND"
	ClaimVerification ClaimKind = "VERIFICATION"
	// ClaimSettlement adjudicates PENDING outflow entries on manual
	// rails. It never appears as a stored Claim.Kind; deposits and
	// settlements are separate queues because their approvals carry
	// opposite financial meaning.
	ClaimSettlement ClaimKind = "SETTLEMENT"
)

// Claim is a user-submitted assertion awaiting operator adjudication.
// Deposits live in the ledger instead; they share the claim lifecycle
// through the approval engine.
type Claim struct {
	Id        uuid.UUID   `json:"id"`
	AccountId uuid.UUID   `json:"account_id"`
	Kind      ClaimKind   `json:"kind"`
	Status    EntryStatus `json:"status"`

	// Kind-specific payload. Amount is set for loans and tax refunds,
	// Documents for verification requests.
	Amount    decimal.Decimal `json:"amount"`
	Purpose   string          `json:"purpose,omitempty"`
	TaxYear   int             `json:"tax_year,omitempty"`
	Documents []string        `json:"documents,omitempty"`
	FullName  string          `json:"full_name,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

type Decision string

const (
	Approve Decision = "APPROVED"
	Reject  Decision = "REJECTED"
)

func ValidDecision(d Decision) bool {
	return d == Approve || d == Reject
}
