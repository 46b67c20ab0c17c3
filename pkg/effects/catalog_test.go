package effects

import (
	"errors"
	"testing"
)

func TestCatalogOrderAndTitles(t *testing.T) {
	catalog := NewCatalog()

	wantIDs := []string{"robot", "echo", "slow", "fast", "reverse", "autotune"}
	wantTitles := []string{"Робот", "Эхо", "Замедление", "Ускорение", "Обратное воспроизведение", "Автотюн"}

	list := catalog.List()
	if len(list) != len(wantIDs) {
		t.Fatalf("catalog size = %d, want %d", len(list), len(wantIDs))
	}

	for i, effect := range list {
		if effect.ID != wantIDs[i] {
			t.Fatalf("effect[%d].ID = %q, want %q", i, effect.ID, wantIDs[i])
		}
		if effect.DisplayName != wantTitles[i] {
			t.Fatalf("effect[%d].DisplayName = %q, want %q", i, effect.DisplayName, wantTitles[i])
		}
		if len(effect.Chain) == 0 {
			t.Fatalf("effect %q has an empty filter chain", effect.ID)
		}
	}
}

func TestCatalogListReturnsCopy(t *testing.T) {
	catalog := NewCatalog()

	list := catalog.List()
	list[0].ID = "mutated"

	if catalog.List()[0].ID != "robot" {
		t.Fatal("List must return a copy, catalog order was mutated")
	}
}

func TestCatalogLookup(t *testing.T) {
	catalog := NewCatalog()

	effect, err := catalog.Lookup("slow")
	if err != nil {
		t.Fatalf("Lookup(slow) error: %v", err)
	}
	if effect.DisplayName != "Замедление" {
		t.Fatalf("DisplayName = %q, want %q", effect.DisplayName, "Замедление")
	}

	if _, err := catalog.Lookup("wobble"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup(wobble) error = %v, want ErrNotFound", err)
	}
}

func TestFilterGraphRendering(t *testing.T) {
	catalog := NewCatalog()

	graphs := map[string]string{
		"robot":    "asetrate=35280,atempo=1.25,vibrato=f=20:d=0.5",
		"echo":     "aecho=0.8:0.9:1000:0.3",
		"slow":     "atempo=0.5",
		"fast":     "atempo=2.0",
		"reverse":  "areverse",
		"autotune": "asetrate=52920,atempo=0.833333,vibrato=f=5:d=0.8,aecho=0.6:0.3:500:0.2",
	}

	for id, want := range graphs {
		effect, err := catalog.Lookup(id)
		if err != nil {
			t.Fatalf("Lookup(%s) error: %v", id, err)
		}
		if got := effect.Chain.Graph(); got != want {
			t.Fatalf("graph(%s) = %q, want %q", id, got, want)
		}
	}
}

func TestResampleStagesArePaired(t *testing.T) {
	catalog := NewCatalog()

	for _, effect := range catalog.List() {
		for i, stage := range effect.Chain {
			if stage.Name != "asetrate" {
				continue
			}
			if i+1 >= len(effect.Chain) || effect.Chain[i+1].Name != "atempo" {
				t.Fatalf("effect %q: asetrate stage is not followed by atempo compensation", effect.ID)
			}
		}
	}
}
