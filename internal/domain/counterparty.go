package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type Rail string

const (
	RailInternal   Rail = "internal"
	RailBank       Rail = "domestic_bank"
	RailWire       Rail = "international_wire"
	RailCrypto     Rail = "crypto"
	RailThirdParty Rail = "third_party"
)

// Counterparty identifies the other side of an outflow. One implementation
// per rail; the rail decides whether the entry settles instantly or waits
// for manual settlement.
type Counterparty interface {
	Rail() Rail
	// Instant reports whether outflows on this rail are created APPROVED.
	// Non-instant rails create PENDING entries that an operator settles.
	Instant() bool
	Describe() string
}

type InternalAccount struct {
	AccountId uuid.UUID `json:"account_id"`
}

func (InternalAccount) Rail() Rail    { return RailInternal }
func (InternalAccount) Instant() bool { return true }
func (c InternalAccount) Describe() string {
	return "internal:" + c.AccountId.String()
}

type DomesticBank struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	HolderName    string `json:"holder_name"`
}

func (DomesticBank) Rail() Rail    { return RailBank }
func (DomesticBank) Instant() bool { return false }
func (c DomesticBank) Describe() string {
	return fmt.Sprintf("bank:%s/%s", c.BankName, c.AccountNumber)
}

type InternationalWire struct {
	SwiftCode  string `json:"swift_code"`
	Iban       string `json:"iban"`
	BankName   string `json:"bank_name"`
	Country    string `json:"country"`
	HolderName string `json:"holder_name"`
}

func (InternationalWire) Rail() Rail    { return RailWire }
func (InternationalWire) Instant() bool { return false }
func (c InternationalWire) Describe() string {
	return fmt.Sprintf("wire:%s/%s", c.SwiftCode, c.Iban)
}

type CryptoAddress struct {
	Chain   Chain  `json:"chain"`
	Address string `json:"address"`
}

func (CryptoAddress) Rail() Rail    { return RailCrypto }
func (CryptoAddress) Instant() bool { return true }
func (c CryptoAddress) Describe() string {
	return fmt.Sprintf("crypto:%s/%s", c.Chain, c.Address)
}

type ThirdPartyService struct {
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
}

func (ThirdPartyService) Rail() Rail    { return RailThirdParty }
func (ThirdPartyService) Instant() bool { return true }
func (c ThirdPartyService) Describe() string {
	return fmt.Sprintf("service:%s/%s", c.Provider, c.Reference)
}

// EncodeCounterparty serializes a counterparty for storage. The rail is
// stored alongside the payload so DecodeCounterparty can pick the variant.
func EncodeCounterparty(c Counterparty) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: missing counterparty", ErrValidation)
	}
	return json.Marshal(c)
}

func DecodeCounterparty(rail Rail, payload []byte) (Counterparty, error) {
	var err error
	switch rail {
	case RailInternal:
		var c InternalAccount
		err = json.Unmarshal(payload, &c)
		return c, err
	case RailBank:
		var c DomesticBank
		err = json.Unmarshal(payload, &c)
		return c, err
	case RailWire:
		var c InternationalWire
		err = json.Unmarshal(payload, &c)
		return c, err
	case RailCrypto:
		var c CryptoAddress
		err = json.Unmarshal(payload, &c)
		return c, err
	case RailThirdParty:
		var c ThirdPartyService
		err = json.Unmarshal(payload, &c)
		return c, err
	}
	return nil, fmt.Errorf("%w: unknown rail %q", ErrValidation, rail)
}
