package model

import "time"

type CreatureType string

const (
	CreatureTypePark    CreatureType = "park"
	CreatureTypeGarden  CreatureType = "garden"
	CreatureTypeWater   CreatureType = "water"
	CreatureTypeHouse   CreatureType = "house"
	CreatureTypeMystery CreatureType = "mystery"
)

func (t CreatureType) Label() string {
	switch t {
	case CreatureTypePark:
		return "公園エリア"
	case CreatureTypeGarden:
		return "庭・路地裏"
	case CreatureTypeWater:
		return "水辺・川"
	case CreatureTypeHouse:
		return "屋内・家"
	case CreatureTypeMystery:
		return "未確認・レア"
	default:
		return string(t)
	}
}

func (t CreatureType) Valid() bool {
	switch t {
	case CreatureTypePark, CreatureTypeGarden, CreatureTypeWater, CreatureTypeHouse, CreatureTypeMystery:
		return true
	}
	return false
}

type TimeOfDay string

const (
	Morning TimeOfDay = "morning"
	Day     TimeOfDay = "day"
	Sunset  TimeOfDay = "sunset"
	Night   TimeOfDay = "night"
	// Any matches every phase. It is a tag, never a phase.
	Any TimeOfDay = "any"
)

func (t TimeOfDay) Label() string {
	switch t {
	case Morning:
		return "早朝"
	case Day:
		return "日中"
	case Sunset:
		return "夕暮れ"
	case Night:
		return "深夜"
	case Any:
		return "常時"
	default:
		return string(t)
	}
}

type Creature struct {
	ID             string       `json:"id" yaml:"id"`
	Name           string       `json:"name" yaml:"name"`
	LatinName      string       `json:"latin_name" yaml:"latinName"`
	Type           CreatureType `json:"type" yaml:"type"`
	ActiveTime     []TimeOfDay  `json:"active_time" yaml:"activeTime"`
	DangerLevel    int          `json:"danger_level" yaml:"dangerLevel"`
	ShortDesc      string       `json:"short_desc" yaml:"shortDesc"`
	Perk           string       `json:"perk" yaml:"perk"`
	Trivia         []string     `json:"trivia,omitempty" yaml:"trivia"`
	SyncRate       int          `json:"sync_rate" yaml:"syncRate"`
	EvolutionLevel int          `json:"evolution_level" yaml:"evolutionLevel"`
	EvolvesTo      string       `json:"evolves_to,omitempty" yaml:"evolvesTo"`
	Placeholder    bool         `json:"placeholder,omitempty" yaml:"placeholder"`
}

type ItemType string

const (
	ItemTypeFood     ItemType = "food"
	ItemTypeMaterial ItemType = "material"
	ItemTypeLore     ItemType = "lore"
)

type Item struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Icon        string   `json:"icon" yaml:"icon"`
	Description string   `json:"description" yaml:"description"`
	Type        ItemType `json:"type" yaml:"type"`
	EffectValue int      `json:"effect_value" yaml:"effectValue"`
}

type SearchArea struct {
	ID          string       `json:"id" yaml:"id"`
	Label       string       `json:"label" yaml:"label"`
	Type        CreatureType `json:"type" yaml:"type"`
	Description string       `json:"description" yaml:"description"`
	BgImage     string       `json:"bg_image,omitempty" yaml:"bgImage"`
	MapImage    string       `json:"map_image,omitempty" yaml:"mapImage"`
}

type SpotKind string

const (
	SpotCreature SpotKind = "creature"
	SpotItem     SpotKind = "item"
)

// Spot is a point of interest inside an area. X and Y are percentages of the
// area map, origin top-left.
type Spot struct {
	ID          string      `json:"id" yaml:"id"`
	AreaID      string      `json:"area_id" yaml:"areaId"`
	Label       string      `json:"label" yaml:"label"`
	X           float64     `json:"x" yaml:"x"`
	Y           float64     `json:"y" yaml:"y"`
	ActiveTimes []TimeOfDay `json:"active_times" yaml:"activeTimes"`
	Kind        SpotKind    `json:"kind,omitempty" yaml:"type"`
	ItemID      string      `json:"item_id,omitempty" yaml:"itemId"`
}

type UncleMessage struct {
	Milestone int    `json:"milestone" yaml:"milestone"`
	Subject   string `json:"subject" yaml:"subject"`
	Body      string `json:"body" yaml:"body"`
}

type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Discovery struct {
	PlayerID     string    `json:"player_id"`
	CreatureID   string    `json:"creature_id"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// InventoryEntry is one owned item instance. Seq orders entries by acquisition.
type InventoryEntry struct {
	Seq        int64     `json:"seq"`
	PlayerID   string    `json:"player_id"`
	ItemID     string    `json:"item_id"`
	AcquiredAt time.Time `json:"acquired_at"`
}

const RoleBuddy = "buddy"

// Companion is a copy of a creature bound to a player as buddy.
type Companion struct {
	PlayerID       string    `json:"player_id"`
	Creature       Creature  `json:"creature"`
	Role           string    `json:"role"`
	SyncRate       int       `json:"sync_rate"`
	EvolutionLevel int       `json:"evolution_level"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type NewsType string

const (
	NewsForecast NewsType = "forecast"
	NewsTrivia   NewsType = "trivia"
	NewsAdvice   NewsType = "advice"
	NewsLucky    NewsType = "lucky"
)

type NewsData struct {
	Date        string   `json:"date"`
	Type        NewsType `json:"type"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	LuckyItemID string   `json:"lucky_item_id,omitempty"`
	BonusAreaID string   `json:"bonus_area_id,omitempty"`
}

type JournalEntry struct {
	Creature   Creature `json:"creature"`
	Discovered bool     `json:"discovered"`
	Favorite   bool     `json:"favorite"`
}

// Badge lights up once every observable creature of a habitat is discovered.
type Badge struct {
	ID          string       `json:"id"`
	Type        CreatureType `json:"type"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Progress    int          `json:"progress"`
	Target      int          `json:"target"`
	Unlocked    bool         `json:"unlocked"`
}
