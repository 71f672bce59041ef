// Package custody generates and holds per-chain wallet credentials.
// Private key material never leaves the package unencrypted except
// through RevealKeys, which sits behind the operator gate.
package custody

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvalverde/go-custody/internal/domain"
	"github.com/mvalverde/go-custody/internal/store"
)

// OperatorGate validates operator session tokens. Satisfied by
// auth.Operators.
type OperatorGate interface {
	Check(token string) error
}

const (
	revealWindow = time.Minute
	revealLimit  = 5
)

type Service struct {
	store      store.Store
	custodyKey []byte
	operators  OperatorGate

	mu      sync.Mutex
	reveals map[string][]time.Time
}

// NewService requires a 32-byte custody key for AES-256-GCM sealing.
func NewService(st store.Store, custodyKey []byte, operators OperatorGate) (*Service, error) {
	if len(custodyKey) != 32 {
		return nil, fmt.Errorf("custody key must be 32 bytes, got %d", len(custodyKey))
	}
	return &Service{
		store:      st,
		custodyKey: custodyKey,
		operators:  operators,
		reveals:    make(map[string][]time.Time),
	}, nil
}

// Generate produces one sealed wallet per supported chain without
// persisting anything. All chains succeed or none do.
func (s *Service) Generate(accountID uuid.UUID) ([]domain.Wallet, error) {
	now := time.Now().UTC()
	wallets := make([]domain.Wallet, 0, len(domain.SupportedChains))
	for _, chain := range domain.SupportedChains {
		address, priv, err := generateKeypair(chain)
		if err != nil {
			return nil, fmt.Errorf("%w: %s keypair: %v", domain.ErrProvisioning, chain, err)
		}
		sealed, err := seal(s.custodyKey, priv)
		if err != nil {
			return nil, fmt.Errorf("%w: seal %s key: %v", domain.ErrProvisioning, chain, err)
		}
		wallets = append(wallets, domain.Wallet{
			AccountId: accountID,
			Chain:     chain,
			Address:   address,
			SealedKey: sealed,
			CreatedAt: now,
		})
	}
	return wallets, nil
}

// Provision creates wallets for every supported chain the account does
// not have yet. Calling it on a fully provisioned account is a no-op
// that returns the existing addresses.
func (s *Service) Provision(ctx context.Context, accountID uuid.UUID) (map[domain.Chain]string, error) {
	existing, err := s.store.WalletsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	addresses := make(map[domain.Chain]string, len(domain.SupportedChains))
	for _, w := range existing {
		addresses[w.Chain] = w.Address
	}
	if len(addresses) == len(domain.SupportedChains) {
		return addresses, nil
	}

	var missing []domain.Wallet
	now := time.Now().UTC()
	for _, chain := range domain.SupportedChains {
		if _, ok := addresses[chain]; ok {
			continue
		}
		address, priv, err := generateKeypair(chain)
		if err != nil {
			return nil, fmt.Errorf("%w: %s keypair: %v", domain.ErrProvisioning, chain, err)
		}
		sealed, err := seal(s.custodyKey, priv)
		if err != nil {
			return nil, fmt.Errorf("%w: seal %s key: %v", domain.ErrProvisioning, chain, err)
		}
		missing = append(missing, domain.Wallet{
			AccountId: accountID,
			Chain:     chain,
			Address:   address,
			SealedKey: sealed,
			CreatedAt: now,
		})
	}

	if err := s.store.SaveWallets(ctx, missing); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvisioning, err)
	}
	for _, w := range missing {
		addresses[w.Chain] = w.Address
	}
	return addresses, nil
}

// RevealKeys decrypts and returns the raw key material for every wallet
// of the account. Operator-gated, rate-limited and logged; there is no
// undo.
func (s *Service) RevealKeys(ctx context.Context, accountEmail, operatorToken string) (map[domain.Chain]string, error) {
	if err := s.operators.Check(operatorToken); err != nil {
		return nil, err
	}
	if err := s.allowReveal(operatorToken); err != nil {
		return nil, err
	}

	acc, err := s.store.AccountByEmail(ctx, accountEmail)
	if err != nil {
		return nil, err
	}
	wallets, err := s.store.WalletsByAccount(ctx, acc.Id)
	if err != nil {
		return nil, err
	}

	keys := make(map[domain.Chain]string, len(wallets))
	for _, w := range wallets {
		material, err := open(s.custodyKey, w.SealedKey)
		if err != nil {
			return nil, fmt.Errorf("unseal %s key: %w", w.Chain, err)
		}
		keys[w.Chain] = hex.EncodeToString(material)
	}

	log.Printf("custody: keys revealed for account %s (%d chains)", acc.Id, len(keys))
	return keys, nil
}

func (s *Service) allowReveal(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-revealWindow)
	recent := s.reveals[token][:0]
	for _, t := range s.reveals[token] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= revealLimit {
		s.reveals[token] = recent
		return fmt.Errorf("%w: reveal rate limit exceeded", domain.ErrAuthorization)
	}
	s.reveals[token] = append(recent, time.Now())
	return nil
}
