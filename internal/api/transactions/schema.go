package transactions

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvalverde/go-custody/internal/domain"
)

// CounterpartySchema is the wire form of the rail tagged union. The rail
// decides which of the optional fields are required.
type CounterpartySchema struct {
	Rail string `json:"rail" validate:"required,oneof=internal domestic_bank international_wire crypto third_party"`

	AccountId *uuid.UUID `json:"account_id,omitempty"`

	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	HolderName    string `json:"holder_name,omitempty"`

	SwiftCode string `json:"swift_code,omitempty"`
	Iban      string `json:"iban,omitempty"`
	Country   string `json:"country,omitempty"`

	Chain   string `json:"chain,omitempty"`
	Address string `json:"address,omitempty"`

	Provider  string `json:"provider,omitempty"`
	Reference string `json:"reference,omitempty"`
}

func (s CounterpartySchema) ToDomain() (domain.Counterparty, error) {
	switch domain.Rail(s.Rail) {
	case domain.RailInternal:
		if s.AccountId == nil {
			return nil, fmt.Errorf("%w: internal rail needs account_id", domain.ErrValidation)
		}
		return domain.InternalAccount{AccountId: *s.AccountId}, nil
	case domain.RailBank:
		if s.BankName == "" || s.AccountNumber == "" {
			return nil, fmt.Errorf("%w: bank rail needs bank_name and account_number", domain.ErrValidation)
		}
		return domain.DomesticBank{
			BankName:      s.BankName,
			AccountNumber: s.AccountNumber,
			HolderName:    s.HolderName,
		}, nil
	case domain.RailWire:
		if s.SwiftCode == "" || s.Iban == "" {
			return nil, fmt.Errorf("%w: wire rail needs swift_code and iban", domain.ErrValidation)
		}
		return domain.InternationalWire{
			SwiftCode:  s.SwiftCode,
			Iban:       s.Iban,
			BankName:   s.BankName,
			Country:    s.Country,
			HolderName: s.HolderName,
		}, nil
	case domain.RailCrypto:
		if s.Chain == "" || s.Address == "" {
			return nil, fmt.Errorf("%w: crypto rail needs chain and address", domain.ErrValidation)
		}
		return domain.CryptoAddress{Chain: domain.Chain(s.Chain), Address: s.Address}, nil
	case domain.RailThirdParty:
		if s.Provider == "" {
			return nil, fmt.Errorf("%w: third-party rail needs provider", domain.ErrValidation)
		}
		return domain.ThirdPartyService{Provider: s.Provider, Reference: s.Reference}, nil
	}
	return nil, fmt.Errorf("%w: unknown rail %q", domain.ErrValidation, s.Rail)
}

type DepositSchema struct {
	Amount decimal.Decimal    `json:"amount" validate:"required"`
	Asset  domain.AssetTag    `json:"asset" validate:"required"`
	Source CounterpartySchema `json:"source" validate:"required"`
}

type OutflowSchema struct {
	Amount       decimal.Decimal    `json:"amount" validate:"required"`
	Asset        domain.AssetTag    `json:"asset" validate:"required"`
	Kind         domain.EntryKind   `json:"kind" validate:"required,oneof=TRANSFER WITHDRAWAL"`
	Counterparty CounterpartySchema `json:"counterparty" validate:"required"`
	Pin          string             `json:"pin" validate:"required"`
}
