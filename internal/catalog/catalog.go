// Package catalog holds the read-only game tables: creatures, items, search
// areas, their spots and the uncle's milestone letters.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"paralleldex/internal/model"
)

//go:embed data/catalog.yaml
var defaultData []byte

var ErrInvalidCatalog = errors.New("invalid catalog")

type placeholderSpec struct {
	From      int    `yaml:"from"`
	To        int    `yaml:"to"`
	Name      string `yaml:"name"`
	LatinName string `yaml:"latinName"`
	ShortDesc string `yaml:"shortDesc"`
	Perk      string `yaml:"perk"`
}

type document struct {
	Creatures     []model.Creature     `yaml:"creatures"`
	Placeholders  *placeholderSpec     `yaml:"placeholders"`
	Items         []model.Item         `yaml:"items"`
	Areas         []model.SearchArea   `yaml:"areas"`
	Spots         []model.Spot         `yaml:"spots"`
	UncleMessages []model.UncleMessage `yaml:"uncleMessages"`
}

type Catalog struct {
	creatures     []model.Creature
	creatureIndex map[string]int
	items         []model.Item
	itemIndex     map[string]int
	areas         []model.SearchArea
	areaIndex     map[string]int
	spots         map[string][]model.Spot
	uncle         []model.UncleMessage
}

// Default returns the embedded catalog. It panics if the embedded data is
// broken, which can only happen at build time.
func Default() *Catalog {
	c, err := Parse(defaultData)
	if err != nil {
		panic(err)
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	creatures := doc.Creatures
	if p := doc.Placeholders; p != nil {
		for i := p.From; i <= p.To; i++ {
			creatures = append(creatures, model.Creature{
				ID:             fmt.Sprintf("uj_%d", i),
				Name:           p.Name,
				LatinName:      p.LatinName,
				Type:           model.CreatureTypeMystery,
				ActiveTime:     []model.TimeOfDay{model.Any},
				DangerLevel:    1,
				ShortDesc:      p.ShortDesc,
				Perk:           p.Perk,
				EvolutionLevel: 1,
				Placeholder:    true,
			})
		}
	}
	return New(creatures, doc.Items, doc.Areas, doc.Spots, doc.UncleMessages)
}

func New(creatures []model.Creature, items []model.Item, areas []model.SearchArea, spots []model.Spot, uncle []model.UncleMessage) (*Catalog, error) {
	c := &Catalog{
		creatures:     make([]model.Creature, 0, len(creatures)),
		creatureIndex: make(map[string]int, len(creatures)),
		items:         make([]model.Item, 0, len(items)),
		itemIndex:     make(map[string]int, len(items)),
		areas:         make([]model.SearchArea, 0, len(areas)),
		areaIndex:     make(map[string]int, len(areas)),
		spots:         make(map[string][]model.Spot),
	}
	for _, cr := range creatures {
		if cr.ID == "" {
			return nil, fmt.Errorf("%w: creature without id", ErrInvalidCatalog)
		}
		if _, dup := c.creatureIndex[cr.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate creature %s", ErrInvalidCatalog, cr.ID)
		}
		if cr.DangerLevel < 1 || cr.DangerLevel > 5 {
			return nil, fmt.Errorf("%w: creature %s danger level %d", ErrInvalidCatalog, cr.ID, cr.DangerLevel)
		}
		if !cr.Type.Valid() {
			return nil, fmt.Errorf("%w: creature %s type %q", ErrInvalidCatalog, cr.ID, cr.Type)
		}
		if cr.EvolutionLevel < 1 {
			cr.EvolutionLevel = 1
		}
		c.creatureIndex[cr.ID] = len(c.creatures)
		c.creatures = append(c.creatures, cr)
	}
	for _, cr := range c.creatures {
		if cr.EvolvesTo == "" {
			continue
		}
		if _, ok := c.creatureIndex[cr.EvolvesTo]; !ok {
			return nil, fmt.Errorf("%w: creature %s evolves to unknown %s", ErrInvalidCatalog, cr.ID, cr.EvolvesTo)
		}
	}

	for _, it := range items {
		if _, dup := c.itemIndex[it.ID]; dup || it.ID == "" {
			return nil, fmt.Errorf("%w: bad item id %q", ErrInvalidCatalog, it.ID)
		}
		c.itemIndex[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}

	for _, a := range areas {
		if _, dup := c.areaIndex[a.ID]; dup || a.ID == "" {
			return nil, fmt.Errorf("%w: bad area id %q", ErrInvalidCatalog, a.ID)
		}
		c.areaIndex[a.ID] = len(c.areas)
		c.areas = append(c.areas, a)
	}

	for _, sp := range spots {
		if _, ok := c.areaIndex[sp.AreaID]; !ok {
			return nil, fmt.Errorf("%w: spot %s in unknown area %s", ErrInvalidCatalog, sp.ID, sp.AreaID)
		}
		if sp.ItemID != "" {
			if _, ok := c.itemIndex[sp.ItemID]; !ok {
				return nil, fmt.Errorf("%w: spot %s yields unknown item %s", ErrInvalidCatalog, sp.ID, sp.ItemID)
			}
			sp.Kind = model.SpotItem
		}
		if sp.Kind == "" {
			sp.Kind = model.SpotCreature
		}
		c.spots[sp.AreaID] = append(c.spots[sp.AreaID], sp)
	}

	c.uncle = append(c.uncle, uncle...)
	sort.Slice(c.uncle, func(i, j int) bool { return c.uncle[i].Milestone < c.uncle[j].Milestone })
	return c, nil
}

// Creatures returns every journal entry, placeholders included.
func (c *Catalog) Creatures() []model.Creature {
	out := make([]model.Creature, len(c.creatures))
	copy(out, c.creatures)
	return out
}

// Observable returns the creatures that can be met in the field.
func (c *Catalog) Observable() []model.Creature {
	out := make([]model.Creature, 0, len(c.creatures))
	for _, cr := range c.creatures {
		if !cr.Placeholder {
			out = append(out, cr)
		}
	}
	return out
}

func (c *Catalog) Creature(id string) (model.Creature, bool) {
	i, ok := c.creatureIndex[id]
	if !ok {
		return model.Creature{}, false
	}
	return c.creatures[i], true
}

// Total is the journal size used as the discovery-rate denominator.
func (c *Catalog) Total() int {
	return len(c.creatures)
}

func (c *Catalog) Items() []model.Item {
	out := make([]model.Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Item(id string) (model.Item, bool) {
	i, ok := c.itemIndex[id]
	if !ok {
		return model.Item{}, false
	}
	return c.items[i], true
}

func (c *Catalog) Areas() []model.SearchArea {
	out := make([]model.SearchArea, len(c.areas))
	copy(out, c.areas)
	return out
}

func (c *Catalog) Area(id string) (model.SearchArea, bool) {
	i, ok := c.areaIndex[id]
	if !ok {
		return model.SearchArea{}, false
	}
	return c.areas[i], true
}

func (c *Catalog) Spots(areaID string) []model.Spot {
	src := c.spots[areaID]
	out := make([]model.Spot, len(src))
	copy(out, src)
	return out
}

func (c *Catalog) Spot(areaID, spotID string) (model.Spot, bool) {
	for _, sp := range c.spots[areaID] {
		if sp.ID == spotID {
			return sp, true
		}
	}
	return model.Spot{}, false
}

// UncleMessages returns the letters ordered by milestone.
func (c *Catalog) UncleMessages() []model.UncleMessage {
	out := make([]model.UncleMessage, len(c.uncle))
	copy(out, c.uncle)
	return out
}
