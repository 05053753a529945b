package relation

import (
	"log/slog"
	"strings"

	"github.com/autthapolsaiyat/investigates-sub004/internal/classify"
	"github.com/autthapolsaiyat/investigates-sub004/internal/identity"
	"github.com/autthapolsaiyat/investigates-sub004/internal/tabular"
)

// Destination-label substrings that mark risky crypto transfers. The
// flags land on the source wallet: the outgoing party is the one
// considered to have initiated the transfer.
var (
	mixerKeywords   = []string{"mixer", "tumbler", "tornado"}
	foreignKeywords = []string{"overseas", "offshore", "foreign", "cambodia", "myanmar", "laos"}
)

// Builder consumes classified tables in the fixed person -> bank ->
// phone -> crypto order and emits entities through the identity store
// and directed relationship edges. The cross-reference index is
// populated during person ingestion and must exist before the other
// sources are ingested, or folding onto persons silently fails.
type Builder struct {
	store      *identity.Store
	xref       *identity.CrossReference
	cryptoRate float64
	logger     *slog.Logger

	edges      []*Edge
	nextEdgeID int
}

// NewBuilder creates a relationship builder bound to one run's store
// and cross-reference index.
func NewBuilder(store *identity.Store, xref *identity.CrossReference, cryptoRate float64, logger *slog.Logger) *Builder {
	return &Builder{
		store:      store,
		xref:       xref,
		cryptoRate: cryptoRate,
		logger:     logger,
		nextEdgeID: 1,
	}
}

// Edges returns all edges emitted so far, in assignment order.
func (b *Builder) Edges() []*Edge {
	return b.edges
}

// Ingest dispatches a table to its source handler. Unknown tables are
// skipped; they were parsed but carry no recognizable records.
func (b *Builder) Ingest(source classify.SourceType, table *tabular.Table) {
	switch source {
	case classify.SourcePerson:
		b.ingestPerson(table)
	case classify.SourceBank:
		b.ingestBank(table)
	case classify.SourcePhone:
		b.ingestPhone(table)
	case classify.SourceCrypto:
		b.ingestCrypto(table)
	default:
		b.logger.Warn("Skipping unclassified table", "file", table.FileName)
	}
}

// ingestPerson creates person entities, their declared instruments with
// ownership edges, and registers the raw instrument identifiers in the
// cross-reference index.
func (b *Builder) ingestPerson(table *tabular.Table) {
	for _, record := range table.Records {
		fullName := strings.TrimSpace(record.Get("first_name") + " " + record.Get("last_name"))

		rawID := record.Get("id_card")
		if rawID == "" {
			rawID = fullName
		}
		if rawID == "" {
			continue
		}

		display := fullName
		if display == "" {
			display = rawID
		}

		personKey := b.store.GetOrCreate(identity.EntityPerson, rawID, display, table.FileName, &identity.MetadataPatch{
			Role: strings.ToLower(record.Get("role")),
		})

		if phone := record.Get("phone"); phone != "" {
			phoneKey := b.store.GetOrCreate(identity.EntityPhone, phone, phone, table.FileName, nil)
			b.emitEdge(personKey, phoneKey, EdgeOwnership, "owns", 0, "")
			b.xref.RegisterPhone(phone, personKey)
		}

		if account := record.Get("bank_account"); account != "" {
			label := account
			if bank := record.Get("bank"); bank != "" {
				label = account + " (" + bank + ")"
			}
			accountKey := b.store.GetOrCreate(identity.EntityAccount, account, label, table.FileName, nil)
			b.emitEdge(personKey, accountKey, EdgeOwnership, "owns", 0, "")
			b.xref.RegisterAccount(account, personKey)
		}

		if wallet := record.Get("wallet_address"); wallet != "" {
			walletKey := b.store.GetOrCreate(identity.EntityWallet, wallet, wallet, table.FileName, nil)
			b.emitEdge(personKey, walletKey, EdgeOwnership, "owns", 0, "")
			b.xref.RegisterWallet(wallet, personKey)
		}
	}
}

// ingestBank creates account entities for each transaction, accumulates
// sent/received totals, and folds the same accumulation onto linked
// persons so a person's totals reflect all declared accounts.
func (b *Builder) ingestBank(table *tabular.Table) {
	for _, record := range table.Records {
		fromRaw := record.Get("from_account")
		toRaw := record.Get("to_account")
		amount := parseAmount(record.Get("amount"))
		date := record.Get("date")

		var fromKey, toKey string

		if fromRaw != "" {
			fromLabel := record.Get("from_name")
			if fromLabel == "" {
				fromLabel = fromRaw
			}
			fromPatch := &identity.MetadataPatch{TotalSent: amount, TransactionCount: 1}
			fromKey = b.store.GetOrCreate(identity.EntityAccount, fromRaw, fromLabel, table.FileName, fromPatch)
			if personKey, ok := b.xref.PersonByAccount(fromRaw); ok {
				b.store.ApplyMetadataPatch(personKey, fromPatch)
			}
		}

		if toRaw != "" {
			toLabel := record.Get("to_name")
			if toLabel == "" {
				toLabel = toRaw
			}
			toPatch := &identity.MetadataPatch{
				TotalReceived:    amount,
				TransactionCount: 1,
				UsedMixer:        strings.Contains(strings.ToLower(toLabel), "exchange"),
			}
			toKey = b.store.GetOrCreate(identity.EntityAccount, toRaw, toLabel, table.FileName, toPatch)
			if personKey, ok := b.xref.PersonByAccount(toRaw); ok {
				b.store.ApplyMetadataPatch(personKey, toPatch)
			}
		}

		if fromKey != "" && toKey != "" {
			b.emitEdge(fromKey, toKey, EdgeMoneyTransfer, FormatTHB(amount), amount, date)
		}
	}
}

// ingestPhone creates phone entities per call record. Call volume is
// accumulated on the caller only, never the callee.
func (b *Builder) ingestPhone(table *tabular.Table) {
	for _, record := range table.Records {
		fromRaw := record.Get("from_number")
		toRaw := record.Get("to_number")
		duration := parseSeconds(record.Get("duration_sec"))
		date := record.Get("date")

		var fromKey, toKey string

		if fromRaw != "" {
			fromLabel := record.Get("from_name")
			if fromLabel == "" {
				fromLabel = fromRaw
			}
			callerPatch := &identity.MetadataPatch{CallCount: 1, CallDuration: duration}
			fromKey = b.store.GetOrCreate(identity.EntityPhone, fromRaw, fromLabel, table.FileName, callerPatch)
			if personKey, ok := b.xref.PersonByPhone(fromRaw); ok {
				b.store.ApplyMetadataPatch(personKey, callerPatch)
			}
		}

		if toRaw != "" {
			toLabel := record.Get("to_name")
			if toLabel == "" {
				toLabel = toRaw
			}
			toKey = b.store.GetOrCreate(identity.EntityPhone, toRaw, toLabel, table.FileName, nil)
		}

		if fromKey != "" && toKey != "" {
			b.emitEdge(fromKey, toKey, EdgePhoneCall, FormatCallDuration(duration), 0, date)
		}
	}
}

// ingestCrypto creates wallet entities per transfer, converts amounts
// to a baht equivalent, and inspects the destination label for mixer
// and foreign-jurisdiction markers. Flags and sent totals land on the
// source wallet and fold onto its linked person.
func (b *Builder) ingestCrypto(table *tabular.Table) {
	for _, record := range table.Records {
		fromRaw := record.Get("from_wallet")
		toRaw := record.Get("to_wallet")
		date := record.Get("date")

		amountTHB := parseAmount(record.Get("amount_thb"))
		if amountTHB == 0 {
			amountTHB = parseAmount(record.Get("amount")) * b.cryptoRate
		}

		toLabel := record.Get("to_label")
		if toLabel == "" {
			toLabel = toRaw
		}
		lowerTo := strings.ToLower(toLabel)

		var fromKey, toKey string

		if fromRaw != "" {
			fromLabel := record.Get("from_label")
			if fromLabel == "" {
				fromLabel = fromRaw
			}
			fromPatch := &identity.MetadataPatch{
				TotalSent:       amountTHB,
				UsedMixer:       containsAny(lowerTo, mixerKeywords),
				ForeignTransfer: containsAny(lowerTo, foreignKeywords),
			}
			fromKey = b.store.GetOrCreate(identity.EntityWallet, fromRaw, fromLabel, table.FileName, fromPatch)
			if personKey, ok := b.xref.PersonByWallet(fromRaw); ok {
				b.store.ApplyMetadataPatch(personKey, fromPatch)
			}
		}

		if toRaw != "" {
			toKey = b.store.GetOrCreate(identity.EntityWallet, toRaw, toLabel, table.FileName, nil)
		}

		if fromKey != "" && toKey != "" {
			label := FormatTHB(amountTHB)
			if currency := record.Get("currency"); currency != "" && record.Has("amount") {
				label = record.Get("amount") + " " + currency
			}
			b.emitEdge(fromKey, toKey, EdgeCryptoTransfer, label, amountTHB, date)
		}
	}
}

// emitEdge appends a directed edge and updates both endpoints' linked
// ID sets symmetrically.
func (b *Builder) emitEdge(source, target string, edgeType EdgeType, label string, amount float64, date string) {
	b.edges = append(b.edges, &Edge{
		ID:     b.nextEdgeID,
		Source: source,
		Target: target,
		Type:   edgeType,
		Label:  label,
		Amount: amount,
		Date:   date,
	})
	b.nextEdgeID++
	b.store.Link(source, target)
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
