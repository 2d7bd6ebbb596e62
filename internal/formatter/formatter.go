// Package formatter renders a hero profile as a reddit markdown reply.
package formatter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ignite/profilebot/internal/lookup"
	"github.com/ignite/profilebot/internal/profiler"
)

// Displays supplies the display rules for attributes and stats.
type Displays interface {
	Attribute(ctx context.Context, name string) (lookup.Row, error)
	Stat(ctx context.Context, name string) (lookup.Row, error)
}

type Config struct {
	SlotOrder    []string
	MaxOrder     int
	MessageMeURL string
}

const sectionBreak = "\n\n######&nbsp;\n\n****\n"

const introTemplate = `### **Text Profile for {{ name | link: url }}** - {{ level }} (PL {{ paragon }}) {{ hardcore }} {{ class }}`

const outroTemplate = "\n\n#&nbsp;\n" +
	`{{ "bot is a work in progress | " | superscript }} {{ "^message ^me" | link: message_me }} ^with ^suggestions ` +
	"    \n" +
	`{{ "this post will remove itself at negative karma" | superscript }}`

// Renderer builds reply bodies.
type Renderer struct {
	cfg      Config
	displays Displays
	engine   *engine
}

func NewRenderer(cfg Config, displays Displays) *Renderer {
	return &Renderer{cfg: cfg, displays: displays, engine: newEngine()}
}

// Render returns the full reply: intro, gear, stats, skills, footer.
func (r *Renderer) Render(ctx context.Context, p *profiler.Profile) (string, error) {
	intro, err := r.Intro(p.Intro)
	if err != nil {
		return "", err
	}
	gear, err := r.Gear(ctx, p.Gear)
	if err != nil {
		return "", err
	}
	stats, err := r.Stats(ctx, p.Stats, p.GearStats)
	if err != nil {
		return "", err
	}
	outro, err := r.Outro()
	if err != nil {
		return "", err
	}
	return intro + gear + stats + r.Skills(p.Skills) + outro, nil
}

func (r *Renderer) Intro(in profiler.Intro) (string, error) {
	hc := ""
	if in.Hardcore {
		hc = "Hardcore"
	}
	return r.engine.render(introTemplate, map[string]interface{}{
		"name":     in.Name,
		"url":      in.URL,
		"level":    in.Level,
		"paragon":  in.ParagonLevel,
		"hardcore": hc,
		"class":    in.Class,
	})
}

func (r *Renderer) Outro() (string, error) {
	return r.engine.render(outroTemplate, map[string]interface{}{
		"message_me": r.cfg.MessageMeURL,
	})
}

type orderedLine struct {
	order int
	text  string
}

// Gear lists items in slot order. Stats are ordered by display order; gem
// totals follow the regular stats.
func (r *Renderer) Gear(ctx context.Context, gear map[string]*profiler.GearItem) (string, error) {
	var blocks []string
	for _, slot := range r.cfg.SlotOrder {
		g, ok := gear[slot]
		if !ok {
			continue
		}
		block, err := r.gearBlock(ctx, g)
		if err != nil {
			return "", fmt.Errorf("formatter: %s: %w", slot, err)
		}
		blocks = append(blocks, block)
	}
	return sectionBreak + "**Equipped Gear:**\n\n" + strings.Join(blocks, "\n\n"), nil
}

func (r *Renderer) gearBlock(ctx context.Context, g *profiler.GearItem) (string, error) {
	head := fmt.Sprintf("> **%s (%s)**", link(g.Name, g.URL), g.Type)

	var lines []orderedLine
	for _, sv := range g.Stats {
		row, err := r.displays.Attribute(ctx, sv.Name)
		if err != nil {
			return "", err
		}
		if !row.Shown(r.cfg.MaxOrder) {
			continue
		}
		text, err := r.engine.render(row.Display, map[string]interface{}{"min": sv.Min, "max": sv.Max})
		if err != nil {
			return "", err
		}
		lines = append(lines, orderedLine{order: row.DispOrder, text: text})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].order < lines[j].order })

	gems, err := r.gemLines(ctx, g.Gems)
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(lines)+len(gems))
	for _, l := range lines {
		texts = append(texts, l.text)
	}
	texts = append(texts, gems...)

	passives := ""
	if len(g.Passives) > 0 {
		passives = "> " + italicSuperscript(strings.Join(g.Passives, " | "))
	}
	return strings.Join([]string{head, "> " + strings.Join(texts, " | "), passives}, "    \n"), nil
}

// gemLines sums gems by attribute, in first-seen order.
func (r *Renderer) gemLines(ctx context.Context, gems []profiler.GemValue) ([]string, error) {
	var order []string
	totals := make(map[string]float64)
	for _, gem := range gems {
		if _, ok := totals[gem.Attr]; !ok {
			order = append(order, gem.Attr)
		}
		totals[gem.Attr] += gem.Value
	}

	var out []string
	for _, attr := range order {
		row, err := r.displays.Attribute(ctx, attr)
		if err != nil {
			return nil, err
		}
		if row.Display == "" {
			continue
		}
		text, err := r.engine.render(row.Display, map[string]interface{}{"min": totals[attr], "max": totals[attr]})
		if err != nil {
			return nil, err
		}
		out = append(out, text+" (gems)")
	}
	return out, nil
}

// critBase is added to the crit chance summed from gear.
const critBase = 5

// Stats renders an aligned block of character stats. Zero values and
// primary stats under 100 are hidden. Gear stats share the ordering and
// replace a sheet stat with the same display order.
func (r *Renderer) Stats(ctx context.Context, stats, gearStats map[string]float64) (string, error) {
	byOrder := make(map[int][2]string)
	add := func(row lookup.Row, val float64) error {
		if row.Display == "" || row.DispName == "" {
			return nil
		}
		if val == 0 || (row.PrimaryStat && val < 100) {
			return nil
		}
		text, err := r.engine.render(row.Display, map[string]interface{}{"value": val})
		if err != nil {
			return err
		}
		byOrder[row.DispOrder] = [2]string{row.DispName, text}
		return nil
	}

	for _, name := range sortedKeys(stats) {
		row, err := r.displays.Stat(ctx, name)
		if err != nil {
			return "", err
		}
		if err := add(row, stats[name]); err != nil {
			return "", err
		}
	}
	for _, name := range sortedKeys(gearStats) {
		row, err := r.displays.Stat(ctx, name)
		if err != nil {
			return "", err
		}
		val := gearStats[name]
		if name == "Crit_Percent_Bonus_Capped" {
			val += critBase
		}
		if err := add(row, val); err != nil {
			return "", err
		}
	}

	orders := make([]int, 0, len(byOrder))
	nameWidth := 0
	for o, entry := range byOrder {
		orders = append(orders, o)
		if len(entry[0]) > nameWidth {
			nameWidth = len(entry[0])
		}
	}
	sort.Ints(orders)

	var b strings.Builder
	b.WriteString(sectionBreak + "**Character Stats:**\n\n")
	for _, o := range orders {
		name, val := byOrder[o][0], byOrder[o][1]
		pad := strings.Repeat(" ", nameWidth-len(name))
		b.WriteString(strings.Join([]string{"  ", pad, name, val, "\n"}, "  "))
	}
	return b.String(), nil
}

// Skills renders the active and passive tables.
func (r *Renderer) Skills(s profiler.Skills) string {
	lines := []string{
		sectionBreak + "**Character Skills:**\n",
		"> **Active:**\n",
		"> | | | | | | |",
		"> |:-:|:-:|:-:|:-:|:-:|:-:|",
	}
	active, runes := "> |", "> |"
	for _, a := range s.Active {
		active += link(a.Name, a.URL) + "|"
		runes += a.Rune + "|"
	}
	lines = append(lines, active, runes,
		"\n> **Passive:**\n",
		"> | | | | |",
		"> |:-:|:-:|:-:|:-:|",
	)
	passive := "> |"
	for _, p := range s.Passive {
		passive += link(p.Name, p.URL) + "|"
	}
	lines = append(lines, passive)
	return strings.Join(lines, "\n")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
