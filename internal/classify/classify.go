package classify

import "strings"

// SourceType identifies what kind of investigative records a parsed
// table contains.
type SourceType string

const (
	SourceBank    SourceType = "bank"
	SourcePerson  SourceType = "person"
	SourcePhone   SourceType = "phone"
	SourceCrypto  SourceType = "crypto"
	SourceUnknown SourceType = "unknown"
)

// Order is the fixed ingestion order for relationship building. Person
// tables must be ingested first so the cross-reference index exists
// before money/phone/crypto activity is folded onto persons.
var Order = []SourceType{SourcePerson, SourceBank, SourcePhone, SourceCrypto}

// Classify assigns a source type from a table's normalized (lower-cased,
// trimmed) column headers. Rules are evaluated in priority order because
// header sets can overlap; the first match wins. Unmatched input yields
// SourceUnknown, never an error.
func Classify(headers []string) SourceType {
	set := make(map[string]bool, len(headers))
	for _, h := range headers {
		set[h] = true
	}

	if (set["from_account"] || set["to_account"]) && set["amount"] {
		return SourceBank
	}
	if set["id_card"] || set["first_name"] || set["role"] {
		return SourcePerson
	}
	if set["from_number"] || set["to_number"] {
		return SourcePhone
	}
	if set["tx_hash"] {
		return SourceCrypto
	}
	for _, h := range headers {
		if strings.Contains(h, "wallet") {
			return SourceCrypto
		}
	}

	return SourceUnknown
}
