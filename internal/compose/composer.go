package compose

import (
	"context"
	"fmt"

	"github.com/ignite/profilebot/internal/battlenet"
	"github.com/ignite/profilebot/internal/domain"
	"github.com/ignite/profilebot/internal/profiler"
)

// Resolver loads the hero a profile key points at.
type Resolver interface {
	Hero(ctx context.Context, profile, heroID, region string) (*battlenet.Hero, error)
}

// Builder turns a hero into a profile.
type Builder interface {
	Build(ctx context.Context, hero *battlenet.Hero) (*profiler.Profile, error)
}

// Renderer writes a profile as the reply body.
type Renderer interface {
	Render(ctx context.Context, p *profiler.Profile) (string, error)
}

// Composer runs the extract, resolve, build and render steps.
type Composer struct {
	extractor *Extractor
	resolver  Resolver
	builder   Builder
	renderer  Renderer
}

// NewComposer wires the four steps together.
func NewComposer(ex *Extractor, res Resolver, b Builder, r Renderer) *Composer {
	return &Composer{extractor: ex, resolver: res, builder: b, renderer: r}
}

// Key extracts the profile key from item text.
func (c *Composer) Key(text string) (domain.ProfileKey, error) {
	return c.extractor.Extract(text)
}

// Compose resolves key and returns the reply body.
func (c *Composer) Compose(ctx context.Context, key domain.ProfileKey) (string, error) {
	hero, err := c.resolver.Hero(ctx, key.Profile, key.HeroID, key.Region)
	if err != nil {
		return "", fmt.Errorf("compose %s: %w", key, err)
	}
	prof, err := c.builder.Build(ctx, hero)
	if err != nil {
		return "", fmt.Errorf("compose %s: %w", key, err)
	}
	body, err := c.renderer.Render(ctx, prof)
	if err != nil {
		return "", fmt.Errorf("compose %s: %w", key, err)
	}
	return body, nil
}
