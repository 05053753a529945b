package identity

// MetadataPatch carries observed deltas for one entity. Numeric fields
// are added, boolean fields are ORed, and Role applies only when the
// entity has no role yet.
type MetadataPatch struct {
	TotalReceived    float64
	TotalSent        float64
	TransactionCount int
	CallCount        int
	CallDuration     int
	UsedMixer        bool
	ForeignTransfer  bool
	Role             string
}

// Store owns the key-to-entity map for one pipeline run. All mutation
// is routed through GetOrCreate and ApplyMetadataPatch so accumulation
// semantics are enforced in one place; the underlying map is never
// exposed. A fresh Store is built per run, nothing persists across runs.
type Store struct {
	entities map[string]*Entity
	order    []string
}

// NewStore creates an empty identity store.
func NewStore() *Store {
	return &Store{
		entities: make(map[string]*Entity),
	}
}

// GetOrCreate resolves (type, rawValue) to an entity key, creating the
// entity on first sight. On later calls the source file is added
// idempotently and the patch is merged with accumulation semantics.
// Callers are responsible for filtering blank identifiers; an empty
// rawValue still yields a distinct, valid key.
func (s *Store) GetOrCreate(entityType EntityType, rawValue, label, sourceFile string, patch *MetadataPatch) string {
	key := Key(entityType, rawValue)

	entity, ok := s.entities[key]
	if !ok {
		entity = &Entity{
			Key:       key,
			Type:      entityType,
			Value:     rawValue,
			Label:     label,
			Sources:   make(map[string]bool),
			LinkedIDs: make(map[string]bool),
		}
		s.entities[key] = entity
		s.order = append(s.order, key)
	} else if entity.Label == "" && label != "" {
		entity.Label = label
	}

	if sourceFile != "" {
		entity.Sources[sourceFile] = true
	}

	if patch != nil {
		s.applyPatch(entity, patch)
	}

	return key
}

// ApplyMetadataPatch merges a patch into an existing entity. Unknown
// keys are ignored so folding onto absent persons degrades silently.
func (s *Store) ApplyMetadataPatch(key string, patch *MetadataPatch) {
	entity, ok := s.entities[key]
	if !ok || patch == nil {
		return
	}
	s.applyPatch(entity, patch)
}

func (s *Store) applyPatch(entity *Entity, patch *MetadataPatch) {
	entity.Metadata.TotalReceived += patch.TotalReceived
	entity.Metadata.TotalSent += patch.TotalSent
	entity.Metadata.TransactionCount += patch.TransactionCount
	entity.Metadata.CallCount += patch.CallCount
	entity.Metadata.CallDuration += patch.CallDuration
	entity.Metadata.UsedMixer = entity.Metadata.UsedMixer || patch.UsedMixer
	entity.Metadata.ForeignTransfer = entity.Metadata.ForeignTransfer || patch.ForeignTransfer
	if entity.Metadata.Role == "" && patch.Role != "" {
		entity.Metadata.Role = patch.Role
	}
}

// Link records undirected connectivity between two entity keys. Adding
// an already-present link is a no-op.
func (s *Store) Link(keyA, keyB string) {
	a, okA := s.entities[keyA]
	b, okB := s.entities[keyB]
	if !okA || !okB {
		return
	}
	a.LinkedIDs[keyB] = true
	b.LinkedIDs[keyA] = true
}

// Get returns the entity for a key, or nil when absent.
func (s *Store) Get(key string) *Entity {
	return s.entities[key]
}

// Len returns the number of distinct entities.
func (s *Store) Len() int {
	return len(s.entities)
}

// Entities returns all entities in creation order.
func (s *Store) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.entities[key])
	}
	return out
}
