package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    SourceType
	}{
		{
			name:    "bank transactions",
			headers: []string{"date", "from_account", "to_account", "amount"},
			want:    SourceBank,
		},
		{
			name:    "bank with only destination account",
			headers: []string{"to_account", "amount"},
			want:    SourceBank,
		},
		{
			name:    "account without amount is not bank",
			headers: []string{"from_account", "to_account"},
			want:    SourceUnknown,
		},
		{
			name:    "person registry",
			headers: []string{"id_card", "first_name", "last_name", "role"},
			want:    SourcePerson,
		},
		{
			name:    "person by role alone",
			headers: []string{"role", "phone"},
			want:    SourcePerson,
		},
		{
			name:    "phone log",
			headers: []string{"from_number", "to_number", "duration_sec"},
			want:    SourcePhone,
		},
		{
			name:    "crypto by tx hash",
			headers: []string{"tx_hash", "amount", "currency"},
			want:    SourceCrypto,
		},
		{
			name:    "crypto by wallet columns",
			headers: []string{"from_wallet", "to_wallet", "amount"},
			want:    SourceCrypto,
		},
		{
			name:    "unrecognized layout",
			headers: []string{"foo", "bar"},
			want:    SourceUnknown,
		},
		{
			name:    "empty headers",
			headers: nil,
			want:    SourceUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.headers))
		})
	}
}

// Person files often declare instruments like wallet_address; the
// person rule must win over the wallet substring rule.
func TestClassifyPersonBeatsWallet(t *testing.T) {
	headers := []string{"id_card", "first_name", "wallet_address"}
	assert.Equal(t, SourcePerson, Classify(headers))
}

func TestOrderStartsWithPersons(t *testing.T) {
	assert.Equal(t, SourcePerson, Order[0])
	assert.Len(t, Order, 4)
}
