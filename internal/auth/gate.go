// Package auth admits users and operators. The user gate covers
// credential login with device-trust escalation and per-operation
// transaction-PIN checks; the operator gate is a separate shared-secret
// path scoped to approvals and key retrieval.
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mvalverde/go-custody/internal/domain"
	"github.com/mvalverde/go-custody/internal/store"
)

// WalletGenerator produces the initial wallet set for a new account.
// Satisfied by custody.Service.
type WalletGenerator interface {
	Generate(accountID uuid.UUID) ([]domain.Wallet, error)
}

const (
	sessionTTL = 30 * time.Minute
	codeTTL    = 10 * time.Minute
)

type Gate struct {
	store     store.Store
	wallets   WalletGenerator
	jwtSecret []byte

	// SendCode delivers a one-time login code out-of-band. The default
	// logs it, which stands in for an email or SMS integration.
	SendCode func(email, code string)
}

func NewGate(st store.Store, wallets WalletGenerator, jwtSecret []byte) *Gate {
	return &Gate{
		store:     st,
		wallets:   wallets,
		jwtSecret: jwtSecret,
		SendCode: func(email, code string) {
			log.Printf("auth: login code for %s: %s", email, code)
		},
	}
}

// Register creates the account and its wallets in one step. A wallet
// generation failure aborts the whole registration.
func (g *Gate) Register(ctx context.Context, email, password, pin string) (*domain.Account, map[domain.Chain]string, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	pinHash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	acc := &domain.Account{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: string(passwordHash),
		PinHash:      string(pinHash),
		FiatBalance:  decimal.Zero,
		Verification: domain.Unverified,
		CreatedAt:    time.Now().UTC(),
	}

	wallets, err := g.wallets.Generate(acc.Id)
	if err != nil {
		return nil, nil, err
	}
	if err := g.store.CreateAccount(ctx, acc, wallets); err != nil {
		return nil, nil, err
	}

	addresses := make(map[domain.Chain]string, len(wallets))
	for _, w := range wallets {
		addresses[w.Chain] = w.Address
	}
	return acc, addresses, nil
}

// LoginResult either carries a session token or signals that a device
// code challenge was issued.
type LoginResult struct {
	Token             string
	ChallengeRequired bool
}

// Login checks credentials. A request from the trusted device gets a
// session immediately; any other device triggers a one-time code sent
// out-of-band, to be presented to VerifyDeviceCode.
func (g *Gate) Login(ctx context.Context, email, password, deviceFingerprint string) (*LoginResult, error) {
	acc, err := g.store.AccountByEmail(ctx, email)
	if err != nil {
		// Same failure for unknown email and bad password.
		return nil, domain.ErrInvalidCredential
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredential
	}

	if deviceFingerprint != "" && deviceFingerprint == acc.TrustedDevice {
		token, err := issueToken(g.jwtSecret, acc.Id, sessionTTL)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Token: token}, nil
	}

	code, err := randomCode()
	if err != nil {
		return nil, err
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := g.store.SetLoginCode(ctx, acc.Id, string(codeHash), time.Now().Add(codeTTL)); err != nil {
		return nil, err
	}
	g.SendCode(acc.Email, code)
	return &LoginResult{ChallengeRequired: true}, nil
}

// VerifyDeviceCode consumes a one-time code. Success trusts the device,
// clears the code and grants a session; expired or wrong codes fail.
func (g *Gate) VerifyDeviceCode(ctx context.Context, email, code, deviceFingerprint string) (string, error) {
	acc, err := g.store.AccountByEmail(ctx, email)
	if err != nil {
		return "", domain.ErrInvalidCode
	}
	if acc.LoginCodeHash == "" || acc.LoginCodeExp == nil {
		return "", domain.ErrInvalidCode
	}
	if time.Now().After(*acc.LoginCodeExp) {
		return "", domain.ErrInvalidCode
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.LoginCodeHash), []byte(code)) != nil {
		return "", domain.ErrInvalidCode
	}

	if err := g.store.TrustDevice(ctx, acc.Id, deviceFingerprint); err != nil {
		return "", err
	}
	return issueToken(g.jwtSecret, acc.Id, sessionTTL)
}

// Authenticate resolves a session token to an account id.
func (g *Gate) Authenticate(token string) (uuid.UUID, error) {
	return parseToken(g.jwtSecret, token)
}

// VerifyPIN checks the transaction PIN. Separate from the login
// credential and checked per operation, never cached in a session.
func (g *Gate) VerifyPIN(ctx context.Context, accountID uuid.UUID, pin string) error {
	acc, err := g.store.AccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PinHash), []byte(pin)) != nil {
		return fmt.Errorf("%w: pin mismatch", domain.ErrAuthorization)
	}
	return nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
