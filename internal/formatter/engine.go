package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// engine renders liquid snippets with the reply filters registered and
// keeps parsed templates keyed by their source.
type engine struct {
	liquid *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

func newEngine() *engine {
	e := &engine{liquid: liquid.NewEngine()}
	e.registerFilters()
	return e
}

func (e *engine) registerFilters() {
	// {{ min | num }} or {{ min | num: 1 }}
	e.liquid.RegisterFilter("num", func(value interface{}, places func(int) int) string {
		f, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("%v", value)
		}
		p := places(0)
		scale := math.Pow(10, float64(p))
		return strconv.FormatFloat(math.Round(f*scale)/scale, 'f', p, 64)
	})

	// {{ value | num | delimit }} -> 1,234,567
	e.liquid.RegisterFilter("delimit", func(value interface{}) string {
		s := fmt.Sprintf("%v", value)
		intPart, frac, _ := strings.Cut(s, ".")
		neg := strings.HasPrefix(intPart, "-")
		intPart = strings.TrimPrefix(intPart, "-")

		var b strings.Builder
		if neg {
			b.WriteByte('-')
		}
		for i, c := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				b.WriteByte(',')
			}
			b.WriteRune(c)
		}
		if frac != "" {
			b.WriteByte('.')
			b.WriteString(frac)
		}
		return b.String()
	})

	e.liquid.RegisterFilter("superscript", superscript)
	e.liquid.RegisterFilter("italic_superscript", italicSuperscript)
	e.liquid.RegisterFilter("link", link)
}

// render parses src once and renders it with bindings.
func (e *engine) render(src string, bindings map[string]interface{}) (string, error) {
	if cached, ok := e.cache.Load(src); ok {
		return cached.(*liquid.Template).RenderString(bindings)
	}
	tpl, err := e.liquid.ParseString(src)
	if err != nil {
		return "", fmt.Errorf("formatter: parse %q: %w", src, err)
	}
	e.cache.Store(src, tpl)
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("formatter: render %q: %w", src, err)
	}
	return out, nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// superscript prefixes every word with reddit's ^.
func superscript(text string) string {
	return "^" + strings.Join(strings.Fields(text), " ^")
}

func italicSuperscript(text string) string {
	return "*" + superscript(text) + "*"
}

// link renders a markdown link, or the bare text without a url.
func link(text, url string) string {
	if url == "" {
		return text
	}
	return "[" + text + "](" + url + ")"
}
