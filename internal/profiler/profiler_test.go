package profiler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/profilebot/internal/battlenet"
	"github.com/ignite/profilebot/internal/domain"
	"github.com/ignite/profilebot/internal/lookup"
)

type fakeItems struct {
	byTooltip map[string]*battlenet.Item
	byID      map[string]*battlenet.Item
}

func (f *fakeItems) Item(_ context.Context, tooltip, _ string) (*battlenet.Item, error) {
	if it, ok := f.byTooltip[tooltip]; ok {
		return it, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeItems) ItemByID(_ context.Context, id, _ string) (*battlenet.Item, error) {
	if it, ok := f.byID[id]; ok {
		return it, nil
	}
	return nil, domain.ErrNotFound
}

type fakeMultipliers map[string]float64

func (f fakeMultipliers) Attribute(_ context.Context, name string) (lookup.Row, error) {
	m, ok := f[name]
	if !ok {
		m = 1
	}
	return lookup.Row{Name: name, Multiplier: m}, nil
}

func (f fakeMultipliers) Stat(ctx context.Context, name string) (lookup.Row, error) {
	return f.Attribute(ctx, name)
}

func testConfig() Config {
	return Config{
		ProfileURL:      "http://{region}.battle.net/d3/en/",
		ItemPath:        "item/",
		CraftedItemPath: "artisan/blacksmith/recipe/",
		GearStats:       []string{"Crit_Percent_Bonus_Capped", "Crit_Damage_Percent"},
	}
}

func testHero() *battlenet.Hero {
	return &battlenet.Hero{
		ID:           42,
		Name:         "Zap",
		Class:        "demon-hunter",
		Hardcore:     true,
		Level:        70,
		ParagonLevel: 300,
		Profile:      "Kripp-1234",
		Region:       "eu",
		Items: map[string]battlenet.ItemRef{
			"head":     {TooltipParams: "item/helm"},
			"mainHand": {TooltipParams: "item/bow"},
		},
		Stats: map[string]float64{"life": 1000, "critChance": 0.1},
		Skills: battlenet.Skills{
			Active: []battlenet.SkillSlot{
				{Skill: &battlenet.Skill{Name: "Hungering Arrow", TooltipURL: "skill/demon-hunter/hungering-arrow"}, Rune: &battlenet.Rune{Name: "Puncturing Arrow"}},
				{},
			},
			Passive: []battlenet.SkillSlot{
				{Skill: &battlenet.Skill{Name: "Archery", TooltipURL: "skill/demon-hunter/archery"}},
			},
		},
	}
}

func testItems() *fakeItems {
	return &fakeItems{
		byTooltip: map[string]*battlenet.Item{
			"item/helm": {
				ID:       "Unique_Helm_001",
				Name:     "Andariel’s Visage",
				TypeName: "Legendary Helm",
				Attributes: battlenet.ItemAttributes{Passive: []battlenet.AttributeText{
					{Text: "Attacks release\n  a poison  nova."},
				}},
				AttributesRaw: map[string]battlenet.MinMax{
					"Crit_Percent_Bonus_Capped": {Min: 0.05, Max: 0.05},
					"Dexterity_Item":            {Min: 500, Max: 500},
				},
				Gems: []battlenet.Gem{
					{AttributesRaw: map[string]battlenet.MinMax{"Dexterity_Item": {Min: 0, Max: 280}}},
				},
			},
			"item/bow": {
				ID:       "Crafted_Bow",
				Name:     "Plain Bow",
				TypeName: "Rare Bow",
				AttributesRaw: map[string]battlenet.MinMax{
					"Damage_Weapon_Min#Physical":              {Min: 100, Max: 100},
					"Damage_Weapon_Delta#Physical":            {Min: 50, Max: 50},
					"Weapon_On_Hit_Percent_Bleed_Proc_Chance": {Min: 0.1, Max: 0.1},
					"Weapon_On_Hit_Percent_Bleed_Proc_Damage": {Min: 2, Max: 2},
					"Crit_Percent_Bonus_Capped":               {Min: 0.03, Max: 0.03},
				},
			},
		},
		byID: map[string]*battlenet.Item{
			"Unique_Helm_001": {TooltipParams: "item/andariels-visage"},
		},
	}
}

func TestIntro(t *testing.T) {
	p := New(testConfig(), testItems(), fakeMultipliers{})
	intro := p.Intro(testHero())

	assert.Equal(t, "Demon Hunter", intro.Class)
	assert.Equal(t, "http://eu.battle.net/d3/en/profile/Kripp-1234/hero/42", intro.URL)
	assert.True(t, intro.Hardcore)
	assert.Equal(t, 300, intro.ParagonLevel)
}

func TestGear(t *testing.T) {
	mult := fakeMultipliers{
		"Crit_Percent_Bonus_Capped":               100,
		"Weapon_On_Hit_Percent_Bleed_Proc_Chance": 100,
		"Weapon_On_Hit_Percent_Bleed_Proc_Damage": 100,
	}
	p := New(testConfig(), testItems(), mult)

	gear, err := p.Gear(context.Background(), testHero())
	require.NoError(t, err)
	require.Len(t, gear, 2)

	helm := gear["head"]
	assert.Equal(t, "Andariel's Visage", helm.Name)
	assert.Equal(t, "http://eu.battle.net/d3/en/item/andariels-visage", helm.URL)
	assert.Equal(t, []string{"Attacks release a poison nova."}, helm.Passives)
	assert.Equal(t, []GemValue{{Attr: "Dexterity_Item", Value: 280}}, helm.Gems)

	bow := gear["mainHand"]
	assert.Empty(t, bow.URL)
	byName := map[string]StatValue{}
	for _, sv := range bow.Stats {
		byName[sv.Name] = sv
	}
	assert.Equal(t, 150.0, byName["Damage_Weapon_Min#Physical"].Max)
	assert.InDelta(t, 10.0, byName[bleedChance].Min, 1e-9)
	assert.InDelta(t, 200.0, byName[bleedChance].Max, 1e-9)
}

func TestCraftedItemURL(t *testing.T) {
	items := testItems()
	items.byTooltip["item/helm"].CraftedBy = []json.RawMessage{json.RawMessage(`{}`)}
	items.byID["Unique_Helm_001"].TooltipParams = "recipe/helm-of-command"
	p := New(testConfig(), items, fakeMultipliers{})

	gear, err := p.Gear(context.Background(), testHero())
	require.NoError(t, err)
	assert.Equal(t, "http://eu.battle.net/d3/en/artisan/blacksmith/recipe/helm-of-command", gear["head"].URL)
}

func TestGearFailsOnMissingItem(t *testing.T) {
	hero := testHero()
	hero.Items["feet"] = battlenet.ItemRef{TooltipParams: "item/gone"}
	p := New(testConfig(), testItems(), fakeMultipliers{})

	_, err := p.Gear(context.Background(), hero)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGearStatsSumsMins(t *testing.T) {
	p := New(testConfig(), testItems(), fakeMultipliers{"Crit_Percent_Bonus_Capped": 100})
	gear, err := p.Gear(context.Background(), testHero())
	require.NoError(t, err)

	gs := p.GearStats(gear)
	assert.InDelta(t, 8.0, gs["Crit_Percent_Bonus_Capped"], 1e-9)
	assert.Equal(t, 0.0, gs["Crit_Damage_Percent"])
	assert.Len(t, gs, 2)
}

func TestStatsAndSkills(t *testing.T) {
	p := New(testConfig(), testItems(), fakeMultipliers{"critChance": 100})
	hero := testHero()

	stats, err := p.Stats(context.Background(), hero)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, stats["critChance"], 1e-9)
	assert.Equal(t, 1000.0, stats["life"])

	skills := p.Skills(hero)
	require.Len(t, skills.Active, 2)
	assert.Equal(t, "Puncturing Arrow", skills.Active[0].Rune)
	assert.Equal(t, "http://eu.battle.net/d3/en/class/demon-hunter/active/hungering-arrow", skills.Active[0].URL)
	assert.Equal(t, ActiveSkill{}, skills.Active[1])
	assert.Equal(t, "http://eu.battle.net/d3/en/class/demon-hunter/passive/archery", skills.Passive[0].URL)
}

func TestBuild(t *testing.T) {
	p := New(testConfig(), testItems(), fakeMultipliers{})
	prof, err := p.Build(context.Background(), testHero())
	require.NoError(t, err)
	assert.Equal(t, "Zap", prof.Intro.Name)
	assert.Len(t, prof.Gear, 2)
	assert.Len(t, prof.Skills.Passive, 1)
}
