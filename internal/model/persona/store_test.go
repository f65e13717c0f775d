package persona

import "testing"

func TestMemoryStoreLookupIgnoresCase(t *testing.T) {
	store := NewMemoryStore(Seed())
	got, ok := store.FindByID("  Skipper ")
	if !ok || got.ID != "skipper" {
		t.Fatalf("expected skipper, got %q (%v)", got.ID, ok)
	}
}

func TestMemoryStoreFirstDuplicateWins(t *testing.T) {
	store := NewMemoryStore([]Persona{
		{ID: "rico", Name: "Rico"},
		{ID: "RICO", Name: "Impostor"},
		{ID: "private", Name: "Private"},
	})

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 personas, got %d", len(list))
	}
	if list[0].Name != "Rico" || list[1].Name != "Private" {
		t.Fatalf("unexpected order: %+v", list)
	}

	list[0].Name = "mutated"
	if got, _ := store.FindByID("rico"); got.Name != "Rico" {
		t.Fatalf("List must return a copy, got %q", got.Name)
	}
}
