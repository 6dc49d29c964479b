package model

type RewardKind string

const (
	RewardCreature RewardKind = "creature"
	RewardItem     RewardKind = "item"
	RewardEmpty    RewardKind = "empty"
)

// Reward is the outcome of a mini-game slot. Exactly one of Creature and Item
// is set for the creature and item kinds; both are nil for empty.
type Reward struct {
	Kind     RewardKind `json:"kind"`
	Creature *Creature  `json:"creature,omitempty"`
	Item     *Item      `json:"item,omitempty"`
}

func CreatureReward(c Creature) Reward {
	return Reward{Kind: RewardCreature, Creature: &c}
}

func ItemReward(it Item) Reward {
	return Reward{Kind: RewardItem, Item: &it}
}

func EmptyReward() Reward {
	return Reward{Kind: RewardEmpty}
}

func (r Reward) IsEmpty() bool {
	return r.Kind == RewardEmpty || r.Kind == ""
}
