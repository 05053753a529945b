package identity

import "strings"

// CrossReference maps raw instrument identifiers back to the person
// entity that declared them. It is populated only while person tables
// are ingested and read-only afterwards, so folding of bank/phone/crypto
// activity onto persons works only for explicitly declared instruments.
//
// Keys are raw trimmed identifiers, not entity keys, because downstream
// source records reference the raw values.
type CrossReference struct {
	phoneToPerson   map[string]string
	accountToPerson map[string]string
	walletToPerson  map[string]string
}

// NewCrossReference creates an empty cross-reference index.
func NewCrossReference() *CrossReference {
	return &CrossReference{
		phoneToPerson:   make(map[string]string),
		accountToPerson: make(map[string]string),
		walletToPerson:  make(map[string]string),
	}
}

// RegisterPhone links a raw phone number to a person entity key.
func (x *CrossReference) RegisterPhone(raw, personKey string) {
	if raw = strings.TrimSpace(raw); raw != "" {
		x.phoneToPerson[raw] = personKey
	}
}

// RegisterAccount links a raw bank account number to a person entity key.
func (x *CrossReference) RegisterAccount(raw, personKey string) {
	if raw = strings.TrimSpace(raw); raw != "" {
		x.accountToPerson[raw] = personKey
	}
}

// RegisterWallet links a raw wallet address to a person entity key.
func (x *CrossReference) RegisterWallet(raw, personKey string) {
	if raw = strings.TrimSpace(raw); raw != "" {
		x.walletToPerson[raw] = personKey
	}
}

// PersonByPhone resolves a raw phone number to its declaring person key.
func (x *CrossReference) PersonByPhone(raw string) (string, bool) {
	key, ok := x.phoneToPerson[strings.TrimSpace(raw)]
	return key, ok
}

// PersonByAccount resolves a raw account number to its declaring person key.
func (x *CrossReference) PersonByAccount(raw string) (string, bool) {
	key, ok := x.accountToPerson[strings.TrimSpace(raw)]
	return key, ok
}

// PersonByWallet resolves a raw wallet address to its declaring person key.
func (x *CrossReference) PersonByWallet(raw string) (string, bool) {
	key, ok := x.walletToPerson[strings.TrimSpace(raw)]
	return key, ok
}
