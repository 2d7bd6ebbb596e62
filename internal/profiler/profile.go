// Package profiler turns raw hero and item payloads into the values a reply
// shows: multiplied stats, item links, skill links.
package profiler

// Profile is everything the formatter needs for one hero.
type Profile struct {
	Intro     Intro
	Gear      map[string]*GearItem // keyed by slot
	Stats     map[string]float64
	GearStats map[string]float64
	Skills    Skills
}

type Intro struct {
	Name         string
	URL          string
	Class        string
	Hardcore     bool
	Level        int
	ParagonLevel int
}

type GearItem struct {
	Name     string
	Type     string
	URL      string // empty unless legendary or set
	Passives []string
	Stats    []StatValue
	Gems     []GemValue
}

// StatValue is an item attribute after its multiplier was applied.
type StatValue struct {
	Name string
	Min  float64
	Max  float64
}

type GemValue struct {
	Attr  string
	Value float64
}

type Skills struct {
	Active  []ActiveSkill
	Passive []PassiveSkill
}

// ActiveSkill is one action bar slot. Empty slots have no Name.
type ActiveSkill struct {
	Name string
	Rune string
	URL  string
}

type PassiveSkill struct {
	Name string
	URL  string
}
