package battlenet

import "encoding/json"

// Hero is the subset of the D3 hero payload the profiler reads.
type Hero struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	Class        string             `json:"class"`
	Hardcore     bool               `json:"hardcore"`
	Level        int                `json:"level"`
	ParagonLevel int                `json:"paragonLevel"`
	Skills       Skills             `json:"skills"`
	Items        map[string]ItemRef `json:"items"`
	Stats        map[string]float64 `json:"stats"`

	// Filled in by the client, not the API.
	Profile string `json:"-"`
	Region  string `json:"-"`
}

// Skills lists the hero's active and passive skill slots. Empty slots decode
// as entries with a nil Skill.
type Skills struct {
	Active  []SkillSlot `json:"active"`
	Passive []SkillSlot `json:"passive"`
}

type SkillSlot struct {
	Skill *Skill `json:"skill"`
	Rune  *Rune  `json:"rune"`
}

type Skill struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	TooltipURL string `json:"tooltipUrl"`
}

type Rune struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// ItemRef is an equipped item as listed on a hero.
type ItemRef struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TooltipParams string `json:"tooltipParams"`
}

// Item is the detailed item payload.
type Item struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	TypeName      string            `json:"typeName"`
	TooltipParams string            `json:"tooltipParams"`
	Attributes    ItemAttributes    `json:"attributes"`
	AttributesRaw map[string]MinMax `json:"attributesRaw"`
	Gems          []Gem             `json:"gems"`
	CraftedBy     []json.RawMessage `json:"craftedBy"`
}

type ItemAttributes struct {
	Passive []AttributeText `json:"passive"`
}

type AttributeText struct {
	Text string `json:"text"`
}

type MinMax struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Gem struct {
	AttributesRaw map[string]MinMax `json:"attributesRaw"`
}

// Crafted reports whether the item was made by an artisan.
func (i *Item) Crafted() bool { return len(i.CraftedBy) > 0 }

type profileSummary struct {
	BattleTag string        `json:"battleTag"`
	Heroes    []heroSummary `json:"heroes"`
}

type heroSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
	LastUpdated int64  `json:"last-updated"`
}

// apiError is the body the API returns instead of data on failure.
type apiError struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}
