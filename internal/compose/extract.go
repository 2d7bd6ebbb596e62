// Package compose turns matched item text into a finished reply: it finds
// the profile link, resolves the hero and renders it.
package compose

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ignite/profilebot/internal/domain"
)

// ErrNoProfileLink means the text had no usable profile link.
var ErrNoProfileLink = errors.New("compose: no profile link")

// Extractor finds profile links for a fixed set of regions.
type Extractor struct {
	re *regexp.Regexp
}

// NewExtractor matches <region>.battle.net/d3/<lang>/profile/<tag>[/hero/<id>]
// for the given regions, in any site language.
func NewExtractor(regions []string) (*Extractor, error) {
	if len(regions) == 0 {
		return nil, errors.New("compose: no regions configured")
	}
	quoted := make([]string, len(regions))
	for i, r := range regions {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(r))
	}
	pattern := fmt.Sprintf(`(?i)\b(%s)\.battle\.net/d3/[a-z]{2}/profile/([^/\s?#)\]]+)(?:/hero/(\d+))?`,
		strings.Join(quoted, "|"))
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Extractor{re: re}, nil
}

// Extract returns the first profile link in text. A link without a hero
// segment yields an empty HeroID.
func (e *Extractor) Extract(text string) (domain.ProfileKey, error) {
	m := e.re.FindStringSubmatch(text)
	if m == nil {
		return domain.ProfileKey{}, ErrNoProfileLink
	}
	return domain.ProfileKey{
		Region:  strings.ToLower(m[1]),
		Profile: m[2],
		HeroID:  m[3],
	}, nil
}
