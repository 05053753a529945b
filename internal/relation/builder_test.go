package relation

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autthapolsaiyat/investigates-sub004/internal/classify"
	"github.com/autthapolsaiyat/investigates-sub004/internal/identity"
	"github.com/autthapolsaiyat/investigates-sub004/internal/tabular"
)

func newTestBuilder(t *testing.T) (*Builder, *identity.Store, *identity.CrossReference) {
	t.Helper()
	store := identity.NewStore()
	xref := identity.NewCrossReference()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBuilder(store, xref, 35.0, logger), store, xref
}

func personsTable(records ...tabular.Record) *tabular.Table {
	return &tabular.Table{FileName: "persons.csv", Records: records}
}

func TestIngestPerson(t *testing.T) {
	builder, store, xref := newTestBuilder(t)

	builder.Ingest(classify.SourcePerson, personsTable(tabular.Record{
		"id_card":        "1234567890123",
		"first_name":     "Somchai",
		"last_name":      "J.",
		"role":           "Suspect",
		"phone":          "0812345678",
		"bank_account":   "ACC1",
		"bank":           "KBank",
		"wallet_address": "0xABC",
	}))

	personKey := identity.Key(identity.EntityPerson, "1234567890123")
	person := store.Get(personKey)
	require.NotNil(t, person)
	assert.Equal(t, "Somchai J.", person.Label)
	assert.Equal(t, "suspect", person.Metadata.Role)

	account := store.Get(identity.Key(identity.EntityAccount, "ACC1"))
	require.NotNil(t, account)
	assert.Equal(t, "ACC1 (KBank)", account.Label)

	edges := builder.Edges()
	require.Len(t, edges, 3)
	for _, edge := range edges {
		assert.Equal(t, EdgeOwnership, edge.Type)
		assert.Equal(t, "owns", edge.Label)
		assert.Equal(t, personKey, edge.Source)
	}
	assert.Equal(t, 1, edges[0].ID)
	assert.Equal(t, 3, edges[2].ID)

	owner, ok := xref.PersonByAccount("ACC1")
	assert.True(t, ok)
	assert.Equal(t, personKey, owner)
}

func TestIngestPersonFallsBackToName(t *testing.T) {
	builder, store, _ := newTestBuilder(t)

	builder.Ingest(classify.SourcePerson, personsTable(
		tabular.Record{"first_name": "Pranee", "last_name": "S.", "role": "Victim"},
		tabular.Record{"role": "Suspect"}, // no identifier at all, skipped
	))

	assert.Equal(t, 1, store.Len())
	person := store.Get(identity.Key(identity.EntityPerson, "Pranee S."))
	require.NotNil(t, person)
	assert.Equal(t, "victim", person.Metadata.Role)
}

func TestIngestBankAccumulatesAndFolds(t *testing.T) {
	builder, store, _ := newTestBuilder(t)

	// Somchai declares ACC1 so bank activity folds onto him.
	builder.Ingest(classify.SourcePerson, personsTable(tabular.Record{
		"id_card":      "1234567890123",
		"first_name":   "Somchai",
		"bank_account": "ACC1",
	}))

	bank := &tabular.Table{FileName: "bank.csv", Records: []tabular.Record{
		{"from_account": "ACC9", "to_account": "ACC1", "amount": "50000", "date": "2024-01-01"},
		{"from_account": "ACC9", "to_account": "ACC1", "amount": "60000", "date": "2024-01-02"},
		{"from_account": "ACC8", "to_account": "ACC1", "amount": "40000", "date": "2024-01-03"},
	}}
	builder.Ingest(classify.SourceBank, bank)

	account := store.Get(identity.Key(identity.EntityAccount, "ACC1"))
	require.NotNil(t, account)
	assert.Equal(t, 150000.0, account.Metadata.TotalReceived)
	assert.Equal(t, 3, account.Metadata.TransactionCount)

	person := store.Get(identity.Key(identity.EntityPerson, "1234567890123"))
	require.NotNil(t, person)
	assert.Equal(t, 150000.0, person.Metadata.TotalReceived)
	assert.Equal(t, 3, person.Metadata.TransactionCount)

	sender := store.Get(identity.Key(identity.EntityAccount, "ACC9"))
	require.NotNil(t, sender)
	assert.Equal(t, 110000.0, sender.Metadata.TotalSent)
	assert.Equal(t, 0.0, sender.Metadata.TotalReceived)

	var transfers []*Edge
	for _, edge := range builder.Edges() {
		if edge.Type == EdgeMoneyTransfer {
			transfers = append(transfers, edge)
		}
	}
	require.Len(t, transfers, 3)
	assert.Equal(t, "฿50,000", transfers[0].Label)
	assert.Equal(t, 50000.0, transfers[0].Amount)
	assert.Equal(t, "2024-01-01", transfers[0].Date)
}

func TestIngestBankExchangeDestination(t *testing.T) {
	builder, store, _ := newTestBuilder(t)

	bank := &tabular.Table{FileName: "bank.csv", Records: []tabular.Record{
		{"from_account": "ACC1", "to_account": "ACC7", "to_name": "Global Exchange Ltd", "amount": "70000"},
	}}
	builder.Ingest(classify.SourceBank, bank)

	receiver := store.Get(identity.Key(identity.EntityAccount, "ACC7"))
	require.NotNil(t, receiver)
	assert.True(t, receiver.Metadata.UsedMixer)
	assert.Equal(t, "Global Exchange Ltd", receiver.Label)

	sender := store.Get(identity.Key(identity.EntityAccount, "ACC1"))
	require.NotNil(t, sender)
	assert.False(t, sender.Metadata.UsedMixer)
}

func TestIngestBankMissingEndpoint(t *testing.T) {
	builder, store, _ := newTestBuilder(t)

	bank := &tabular.Table{FileName: "bank.csv", Records: []tabular.Record{
		{"from_account": "", "to_account": "ACC1", "amount": "50000"},
	}}
	builder.Ingest(classify.SourceBank, bank)

	// The receiving side is still recorded but no edge is emitted.
	assert.Equal(t, 1, store.Len())
	assert.Empty(t, builder.Edges())
}

func TestIngestPhone(t *testing.T) {
	builder, store, _ := newTestBuilder(t)

	builder.Ingest(classify.SourcePerson, personsTable(tabular.Record{
		"id_card":    "1234567890123",
		"first_name": "Somchai",
		"phone":      "0812345678",
	}))

	calls := &tabular.Table{FileName: "calls.csv", Records: []tabular.Record{
		{"from_number": "0812345678", "to_number": "0899999999", "duration_sec": "150", "date": "2024-02-01"},
		{"from_number": "0812345678", "to_number": "0899999999", "duration_sec": "60"},
	}}
	builder.Ingest(classify.SourcePhone, calls)

	caller := store.Get(identity.Key(identity.EntityPhone, "0812345678"))
	require.NotNil(t, caller)
	assert.Equal(t, 2, caller.Metadata.CallCount)
	assert.Equal(t, 210, caller.Metadata.CallDuration)

	// Call volume lands on the caller only.
	callee := store.Get(identity.Key(identity.EntityPhone, "0899999999"))
	require.NotNil(t, callee)
	assert.Equal(t, 0, callee.Metadata.CallCount)

	person := store.Get(identity.Key(identity.EntityPerson, "1234567890123"))
	require.NotNil(t, person)
	assert.Equal(t, 2, person.Metadata.CallCount)

	var callEdges []*Edge
	for _, edge := range builder.Edges() {
		if edge.Type == EdgePhoneCall {
			callEdges = append(callEdges, edge)
		}
	}
	require.Len(t, callEdges, 2)
	assert.Equal(t, "2m30s", callEdges[0].Label)
}

func TestIngestCrypto(t *testing.T) {
	builder, store, _ := newTestBuilder(t)

	builder.Ingest(classify.SourcePerson, personsTable(tabular.Record{
		"id_card":        "1234567890123",
		"first_name":     "Somchai",
		"wallet_address": "0xABC",
	}))

	crypto := &tabular.Table{FileName: "crypto.csv", Records: []tabular.Record{
		{"from_wallet": "0xABC", "to_wallet": "0xMIX", "to_label": "Tornado Mixer", "amount": "2", "currency": "BTC", "date": "2024-03-01"},
	}}
	builder.Ingest(classify.SourceCrypto, crypto)

	wallet := store.Get(identity.Key(identity.EntityWallet, "0xABC"))
	require.NotNil(t, wallet)
	assert.Equal(t, 70.0, wallet.Metadata.TotalSent) // 2 * fallback rate 35
	assert.True(t, wallet.Metadata.UsedMixer)
	assert.False(t, wallet.Metadata.ForeignTransfer)

	person := store.Get(identity.Key(identity.EntityPerson, "1234567890123"))
	require.NotNil(t, person)
	assert.True(t, person.Metadata.UsedMixer)
	assert.Equal(t, 70.0, person.Metadata.TotalSent)

	var transfer *Edge
	for _, edge := range builder.Edges() {
		if edge.Type == EdgeCryptoTransfer {
			transfer = edge
		}
	}
	require.NotNil(t, transfer)
	assert.Equal(t, "2 BTC", transfer.Label)
	assert.Equal(t, 70.0, transfer.Amount)
}

func TestIngestCryptoExplicitBahtAndForeign(t *testing.T) {
	builder, store, _ := newTestBuilder(t)

	crypto := &tabular.Table{FileName: "crypto.csv", Records: []tabular.Record{
		{"from_wallet": "0xAAA", "to_wallet": "0xBBB", "to_label": "Cambodia OTC desk", "amount": "1", "amount_thb": "120000"},
	}}
	builder.Ingest(classify.SourceCrypto, crypto)

	wallet := store.Get(identity.Key(identity.EntityWallet, "0xAAA"))
	require.NotNil(t, wallet)
	// An explicit baht amount wins over the conversion rate.
	assert.Equal(t, 120000.0, wallet.Metadata.TotalSent)
	assert.True(t, wallet.Metadata.ForeignTransfer)
	assert.False(t, wallet.Metadata.UsedMixer)
}

func TestEdgeIDsAreSequential(t *testing.T) {
	builder, _, _ := newTestBuilder(t)

	builder.Ingest(classify.SourcePerson, personsTable(
		tabular.Record{"id_card": "1", "first_name": "A", "phone": "081"},
		tabular.Record{"id_card": "2", "first_name": "B", "phone": "082"},
	))

	edges := builder.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, 1, edges[0].ID)
	assert.Equal(t, 2, edges[1].ID)
}
