package effects

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports an effect id that is not part of the catalog.
var ErrNotFound = errors.New("effect not found")

// FilterStage is one named ffmpeg audio filter with its arguments.
type FilterStage struct {
	Name string
	Args []string
}

// FilterChain is an ordered list of filter stages applied in sequence.
type FilterChain []FilterStage

// Effect is one selectable voice transformation.
type Effect struct {
	ID          string
	DisplayName string
	Chain       FilterChain
}

// Catalog is the immutable set of built-in effects. Safe for
// unsynchronized concurrent reads after construction.
type Catalog struct {
	order []Effect
	byID  map[string]Effect
}

// Graph renders the chain as a single ffmpeg filtergraph expression.
func (c FilterChain) Graph() string {
	parts := make([]string, 0, len(c))
	for _, stage := range c {
		if len(stage.Args) == 0 {
			parts = append(parts, stage.Name)
			continue
		}
		parts = append(parts, stage.Name+"="+strings.Join(stage.Args, ":"))
	}

	return strings.Join(parts, ",")
}

// NewCatalog constructs the built-in effect catalog.
//
// Resample stages (asetrate) are always followed by an atempo stage that
// compensates the duration change, so pitch shifts stay duration-neutral.
func NewCatalog() *Catalog {
	order := []Effect{
		{
			ID:          "robot",
			DisplayName: "Робот",
			Chain: FilterChain{
				{Name: "asetrate", Args: []string{"35280"}},
				{Name: "atempo", Args: []string{"1.25"}},
				{Name: "vibrato", Args: []string{"f=20", "d=0.5"}},
			},
		},
		{
			ID:          "echo",
			DisplayName: "Эхо",
			Chain: FilterChain{
				{Name: "aecho", Args: []string{"0.8", "0.9", "1000", "0.3"}},
			},
		},
		{
			ID:          "slow",
			DisplayName: "Замедление",
			Chain: FilterChain{
				{Name: "atempo", Args: []string{"0.5"}},
			},
		},
		{
			ID:          "fast",
			DisplayName: "Ускорение",
			Chain: FilterChain{
				{Name: "atempo", Args: []string{"2.0"}},
			},
		},
		{
			ID:          "reverse",
			DisplayName: "Обратное воспроизведение",
			Chain: FilterChain{
				{Name: "areverse"},
			},
		},
		{
			ID:          "autotune",
			DisplayName: "Автотюн",
			Chain: FilterChain{
				{Name: "asetrate", Args: []string{"52920"}},
				{Name: "atempo", Args: []string{"0.833333"}},
				{Name: "vibrato", Args: []string{"f=5", "d=0.8"}},
				{Name: "aecho", Args: []string{"0.6", "0.3", "500", "0.2"}},
			},
		},
	}

	byID := make(map[string]Effect, len(order))
	for _, effect := range order {
		byID[effect.ID] = effect
	}

	return &Catalog{order: order, byID: byID}
}

// List returns every effect in fixed catalog order.
func (c *Catalog) List() []Effect {
	out := make([]Effect, len(c.order))
	copy(out, c.order)
	return out
}

// Lookup resolves one effect by id.
func (c *Catalog) Lookup(id string) (Effect, error) {
	effect, ok := c.byID[id]
	if !ok {
		return Effect{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	return effect, nil
}

// Len returns the number of effects in the catalog.
func (c *Catalog) Len() int {
	return len(c.order)
}
