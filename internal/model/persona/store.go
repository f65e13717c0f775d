package persona

import "strings"

// Store is the read-only persona catalog.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore keeps the catalog in load order with an id index.
type MemoryStore struct {
	items []Persona
	byID  map[string]int
}

// NewMemoryStore indexes items. On duplicate ids the first entry wins.
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{
		items: make([]Persona, 0, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	for _, p := range items {
		key := normalizeID(p.ID)
		if _, dup := s.byID[key]; dup {
			continue
		}
		s.byID[key] = len(s.items)
		s.items = append(s.items, p)
	}
	return s
}

func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID is case-insensitive; an empty id resolves to DefaultID.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	key := normalizeID(id)
	if key == "" {
		key = DefaultID
	}
	i, ok := s.byID[key]
	if !ok {
		return Persona{}, false
	}
	return s.items[i], true
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
