package profiler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ignite/profilebot/internal/battlenet"
	"github.com/ignite/profilebot/internal/lookup"
	"github.com/ignite/profilebot/internal/pkg/logger"
)

// Items loads item details.
type Items interface {
	Item(ctx context.Context, tooltipParams, region string) (*battlenet.Item, error)
	ItemByID(ctx context.Context, id, region string) (*battlenet.Item, error)
}

// Multipliers gives the multiplier for item attributes and hero stats.
type Multipliers interface {
	Attribute(ctx context.Context, name string) (lookup.Row, error)
	Stat(ctx context.Context, name string) (lookup.Row, error)
}

// Config holds the public site paths and the stats summed from gear.
type Config struct {
	ProfileURL      string // "{region}" is replaced
	ItemPath        string
	CraftedItemPath string
	GearStats       []string
}

// Profiler builds a Profile from a hero.
type Profiler struct {
	cfg   Config
	items Items
	mult  Multipliers
	log   *logger.Logger
}

func New(cfg Config, items Items, mult Multipliers) *Profiler {
	return &Profiler{
		cfg:   cfg,
		items: items,
		mult:  mult,
		log:   logger.With("component", "profiler"),
	}
}

// Build gathers every section. Any failed item or lookup fails the whole
// profile.
func (p *Profiler) Build(ctx context.Context, hero *battlenet.Hero) (*Profile, error) {
	gear, err := p.Gear(ctx, hero)
	if err != nil {
		return nil, err
	}
	stats, err := p.Stats(ctx, hero)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Intro:     p.Intro(hero),
		Gear:      gear,
		Stats:     stats,
		GearStats: p.GearStats(gear),
		Skills:    p.Skills(hero),
	}, nil
}

func (p *Profiler) base(region string) string {
	return strings.ReplaceAll(p.cfg.ProfileURL, "{region}", region)
}

// Intro returns the heading values.
func (p *Profiler) Intro(hero *battlenet.Hero) Intro {
	return Intro{
		Name:         hero.Name,
		URL:          fmt.Sprintf("%sprofile/%s/hero/%d", p.base(hero.Region), hero.Profile, hero.ID),
		Class:        className(hero.Class),
		Hardcore:     hero.Hardcore,
		Level:        hero.Level,
		ParagonLevel: hero.ParagonLevel,
	}
}

// className turns "demon-hunter" into "Demon Hunter".
func className(class string) string {
	words := strings.Fields(strings.ReplaceAll(class, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// Gear loads every equipped item.
func (p *Profiler) Gear(ctx context.Context, hero *battlenet.Hero) (map[string]*GearItem, error) {
	slots := sortedKeys(hero.Items)
	gear := make(map[string]*GearItem, len(slots))
	for _, slot := range slots {
		ref := hero.Items[slot]
		item, err := p.items.Item(ctx, ref.TooltipParams, hero.Region)
		if err != nil {
			p.log.Error("unable to load item", "slot", slot, "item", ref.TooltipParams, "error", err)
			return nil, fmt.Errorf("profiler: %s: %w", slot, err)
		}
		g, err := p.gearItem(ctx, item, hero.Region)
		if err != nil {
			return nil, fmt.Errorf("profiler: %s: %w", slot, err)
		}
		gear[slot] = g
	}
	return gear, nil
}

func (p *Profiler) gearItem(ctx context.Context, item *battlenet.Item, region string) (*GearItem, error) {
	g := &GearItem{
		Name: strings.ReplaceAll(item.Name, "’", "'"),
		Type: item.TypeName,
	}

	if strings.Contains(g.Type, "Legendary") || strings.Contains(g.Type, "Set") {
		u, err := p.itemURL(ctx, item, region)
		if err != nil {
			return nil, err
		}
		g.URL = u
	}

	for _, passive := range item.Attributes.Passive {
		g.Passives = append(g.Passives, strings.Join(strings.Fields(passive.Text), " "))
	}

	for _, name := range sortedKeys(item.AttributesRaw) {
		sv, err := p.statValue(ctx, item, name)
		if err != nil {
			return nil, err
		}
		g.Stats = append(g.Stats, sv)
	}

	// Gems have no range, so only the max is kept.
	for _, gem := range item.Gems {
		for _, name := range sortedKeys(gem.AttributesRaw) {
			row, err := p.mult.Attribute(ctx, name)
			if err != nil {
				return nil, err
			}
			g.Gems = append(g.Gems, GemValue{Attr: name, Value: gem.AttributesRaw[name].Max * row.Multiplier})
		}
	}
	return g, nil
}

const bleedChance = "Weapon_On_Hit_Percent_Bleed_Proc_Chance"
const bleedDamage = "Weapon_On_Hit_Percent_Bleed_Proc_Damage"

// statValue applies the multiplier. Weapon damage mins carry min+delta as
// their max, and bleed chance carries the bleed damage as its max.
func (p *Profiler) statValue(ctx context.Context, item *battlenet.Item, name string) (StatValue, error) {
	row, err := p.mult.Attribute(ctx, name)
	if err != nil {
		return StatValue{}, err
	}
	raw := item.AttributesRaw[name]
	sv := StatValue{Name: name, Min: raw.Min * row.Multiplier, Max: raw.Max * row.Multiplier}

	switch {
	case isDamageMin(name):
		delta := item.AttributesRaw[strings.Replace(name, "Min", "Delta", 1)]
		sv.Max = delta.Max*row.Multiplier + sv.Min
	case name == bleedChance:
		sv.Max = 0
		if dmg, ok := item.AttributesRaw[bleedDamage]; ok {
			dmgRow, err := p.mult.Attribute(ctx, bleedDamage)
			if err != nil {
				return StatValue{}, err
			}
			sv.Max = dmg.Min * dmgRow.Multiplier
		}
	}
	return sv, nil
}

func isDamageMin(name string) bool {
	return strings.Contains(name, "Damage_Weapon_Min") ||
		strings.Contains(name, "_Weapon_Bonus_Min") ||
		name == "Damage_Min"
}

// itemURL links to the public item page, which is keyed by the base item's
// tooltip params rather than the rolled instance.
func (p *Profiler) itemURL(ctx context.Context, item *battlenet.Item, region string) (string, error) {
	baseItem, err := p.items.ItemByID(ctx, item.ID, region)
	if err != nil {
		return "", err
	}
	slug := strings.TrimPrefix(strings.TrimPrefix(baseItem.TooltipParams, "item/"), "recipe/")
	path := p.cfg.ItemPath
	if item.Crafted() {
		path = p.cfg.CraftedItemPath
	}
	return p.base(region) + path + slug, nil
}

// Stats multiplies the hero's sheet stats.
func (p *Profiler) Stats(ctx context.Context, hero *battlenet.Hero) (map[string]float64, error) {
	stats := make(map[string]float64, len(hero.Stats))
	for _, name := range sortedKeys(hero.Stats) {
		row, err := p.mult.Stat(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("profiler: stat %s: %w", name, err)
		}
		stats[name] = hero.Stats[name] * row.Multiplier
	}
	return stats, nil
}

// GearStats sums the min values of the configured attributes across gear.
func (p *Profiler) GearStats(gear map[string]*GearItem) map[string]float64 {
	out := make(map[string]float64, len(p.cfg.GearStats))
	for _, name := range p.cfg.GearStats {
		out[name] = 0
	}
	for _, g := range gear {
		for _, sv := range g.Stats {
			if _, ok := out[sv.Name]; ok {
				out[sv.Name] += sv.Min
			}
		}
	}
	return out
}

// Skills lists active and passive skills with links.
func (p *Profiler) Skills(hero *battlenet.Hero) Skills {
	var s Skills
	for _, slot := range hero.Skills.Active {
		var a ActiveSkill
		if slot.Skill != nil {
			a.Name = slot.Skill.Name
			a.URL = p.skillURL(slot.Skill, "active", hero.Region)
			if slot.Rune != nil {
				a.Rune = slot.Rune.Name
			}
		}
		s.Active = append(s.Active, a)
	}
	for _, slot := range hero.Skills.Passive {
		var ps PassiveSkill
		if slot.Skill != nil {
			ps.Name = slot.Skill.Name
			ps.URL = p.skillURL(slot.Skill, "passive", hero.Region)
		}
		s.Passive = append(s.Passive, ps)
	}
	return s
}

// skillURL maps a tooltip url ("skill/wizard/magic-missile") to the public
// class page.
func (p *Profiler) skillURL(skill *battlenet.Skill, kind, region string) string {
	parts := strings.Split(skill.TooltipURL, "/")
	if len(parts) < 3 {
		return ""
	}
	return fmt.Sprintf("%sclass/%s/%s/%s", p.base(region), parts[1], kind, parts[2])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
