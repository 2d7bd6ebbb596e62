package formatter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/profilebot/internal/lookup"
	"github.com/ignite/profilebot/internal/profiler"
)

type fakeDisplays struct {
	attrs map[string]lookup.Row
	stats map[string]lookup.Row
	err   error
}

func (f *fakeDisplays) Attribute(_ context.Context, name string) (lookup.Row, error) {
	if f.err != nil {
		return lookup.Row{}, f.err
	}
	return f.attrs[name], nil
}

func (f *fakeDisplays) Stat(_ context.Context, name string) (lookup.Row, error) {
	if f.err != nil {
		return lookup.Row{}, f.err
	}
	return f.stats[name], nil
}

func testDisplays() *fakeDisplays {
	return &fakeDisplays{
		attrs: map[string]lookup.Row{
			"Dexterity_Item":             {Display: "+{{ min | num }} Dexterity", DispOrder: 11},
			"Crit_Percent_Bonus_Capped":  {Display: "+{{ min | num: 1 }}% Crit Chance", DispOrder: 20},
			"Damage_Weapon_Min#Physical": {Display: "{{ min | num }}-{{ max | num }} Damage", DispOrder: 1},
			"Durability_Cur":             {DispOrder: 1000},
			"Secondary_Thing":            {Display: "hidden", DispOrder: 150},
		},
		stats: map[string]lookup.Row{
			"life":                      {Display: "{{ value | num | delimit }}", DispName: "Life", DispOrder: 4},
			"dexterity":                 {Display: "{{ value | num | delimit }}", DispName: "Dexterity", DispOrder: 11, PrimaryStat: true},
			"strength":                  {Display: "{{ value | num | delimit }}", DispName: "Strength", DispOrder: 10, PrimaryStat: true},
			"armor":                     {Display: "{{ value | num }}", DispName: "Armor", DispOrder: 20},
			"Crit_Percent_Bonus_Capped": {Display: "{{ value | num: 1 }}%", DispName: "Crit Chance", DispOrder: 30},
		},
	}
}

func testRenderer(d Displays) *Renderer {
	return NewRenderer(Config{
		SlotOrder:    []string{"head", "mainHand"},
		MaxOrder:     100,
		MessageMeURL: "http://www.reddit.com/message/compose/?to=d3profilebot",
	}, d)
}

func TestIntro(t *testing.T) {
	r := testRenderer(testDisplays())
	out, err := r.Intro(profiler.Intro{
		Name: "Zap", URL: "http://eu.battle.net/d3/en/profile/K-1/hero/42",
		Class: "Demon Hunter", Hardcore: true, Level: 70, ParagonLevel: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, "### **Text Profile for [Zap](http://eu.battle.net/d3/en/profile/K-1/hero/42)** - 70 (PL 300) Hardcore Demon Hunter", out)
}

func TestGearOrdersSlotsAndStats(t *testing.T) {
	r := testRenderer(testDisplays())
	gear := map[string]*profiler.GearItem{
		"mainHand": {
			Name: "Plain Bow", Type: "Rare Bow",
			Stats: []profiler.StatValue{
				{Name: "Dexterity_Item", Min: 400, Max: 400},
				{Name: "Damage_Weapon_Min#Physical", Min: 100, Max: 150},
				{Name: "Durability_Cur", Min: 30, Max: 30},
				{Name: "Secondary_Thing", Min: 1, Max: 1},
			},
		},
		"head": {
			Name: "Andariel's Visage", Type: "Legendary Helm", URL: "http://x/item/av",
			Stats:    []profiler.StatValue{{Name: "Crit_Percent_Bonus_Capped", Min: 5, Max: 5}},
			Passives: []string{"Poison nova."},
			Gems: []profiler.GemValue{
				{Attr: "Dexterity_Item", Value: 280},
				{Attr: "Dexterity_Item", Value: 280},
			},
		},
		"feet": {Name: "Ignored", Type: "Boots"},
	}

	out, err := r.Gear(context.Background(), gear)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "\n\n######&nbsp;\n\n****\n**Equipped Gear:**\n\n"))
	assert.NotContains(t, out, "Ignored")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "> **[Andariel's Visage](http://x/item/av) (Legendary Helm)**    \n> +5.0% Crit Chance | +560 Dexterity (gems)    \n> *^Poison ^nova.*")
	assert.Contains(t, out, "> **Plain Bow (Rare Bow)**    \n> 100-150 Damage | +400 Dexterity    \n")
	assert.Less(t, strings.Index(out, "Andariel"), strings.Index(out, "Plain Bow"))
}

func TestStatsAlignedAndFiltered(t *testing.T) {
	r := testRenderer(testDisplays())
	out, err := r.Stats(context.Background(),
		map[string]float64{"life": 412345, "dexterity": 9000, "strength": 77, "armor": 0},
		map[string]float64{"Crit_Percent_Bonus_Capped": 38.5},
	)
	require.NoError(t, err)

	assert.Contains(t, out, "**Character Stats:**\n\n")
	assert.Contains(t, out, "             Life  412,345  \n")
	assert.Contains(t, out, "        Dexterity  9,000  \n")
	assert.Contains(t, out, "      Crit Chance  43.5%  \n")
	assert.NotContains(t, out, "Strength")
	assert.NotContains(t, out, "Armor")
	assert.Less(t, strings.Index(out, "Life"), strings.Index(out, "Dexterity"))
}

func TestSkills(t *testing.T) {
	r := testRenderer(testDisplays())
	out := r.Skills(profiler.Skills{
		Active: []profiler.ActiveSkill{
			{Name: "Hungering Arrow", Rune: "Puncturing Arrow", URL: "http://x/ha"},
			{},
		},
		Passive: []profiler.PassiveSkill{{Name: "Archery", URL: "http://x/a"}},
	})

	assert.Contains(t, out, "> |[Hungering Arrow](http://x/ha)||\n> |Puncturing Arrow||")
	assert.Contains(t, out, "> |[Archery](http://x/a)|")
}

func TestOutro(t *testing.T) {
	r := testRenderer(testDisplays())
	out, err := r.Outro()
	require.NoError(t, err)
	assert.Contains(t, out, "^bot ^is ^a ^work ^in ^progress ^|")
	assert.Contains(t, out, "[^message ^me](http://www.reddit.com/message/compose/?to=d3profilebot)")
	assert.True(t, strings.HasSuffix(out, "^this ^post ^will ^remove ^itself ^at ^negative ^karma"))
}

func TestRender(t *testing.T) {
	r := testRenderer(testDisplays())
	out, err := r.Render(context.Background(), &profiler.Profile{
		Intro:  profiler.Intro{Name: "Zap", Class: "Wizard", Level: 70},
		Gear:   map[string]*profiler.GearItem{},
		Stats:  map[string]float64{"life": 100},
		Skills: profiler.Skills{},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "### **Text Profile for Zap**"))
	assert.Contains(t, out, "**Character Skills:**")
	assert.Contains(t, out, "negative ^karma")
}

func TestRenderPropagatesLookupErrors(t *testing.T) {
	d := testDisplays()
	d.err = errors.New("db down")
	r := testRenderer(d)

	_, err := r.Render(context.Background(), &profiler.Profile{
		Gear: map[string]*profiler.GearItem{"head": {Stats: []profiler.StatValue{{Name: "Dexterity_Item"}}}},
	})
	assert.EqualError(t, err, "formatter: head: db down")
}

func TestNumAndDelimitFilters(t *testing.T) {
	e := newEngine()
	out, err := e.render("{{ v | num }} {{ v | num: 2 }} {{ big | num | delimit }} {{ neg | num | delimit }}",
		map[string]interface{}{"v": 3.14159, "big": 1234567.8, "neg": -1000.0})
	require.NoError(t, err)
	assert.Equal(t, "3 3.14 1,234,568 -1,000", out)
}
