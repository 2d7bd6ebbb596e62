// Package battlenet resolves Diablo III heroes and items through the
// Battle.net community API.
package battlenet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/ignite/profilebot/internal/domain"
	"github.com/ignite/profilebot/internal/pkg/httpretry"
	"github.com/ignite/profilebot/internal/pkg/logger"
)

// Config holds API settings.
type Config struct {
	BaseURL      string // "{region}" is replaced with the hero's region
	TokenURL     string
	ClientID     string
	ClientSecret string
	Locale       string
	CacheTTL     time.Duration
	Timeout      time.Duration
	MaxRetries   int
}

// Client fetches hero and item data.
type Client struct {
	cfg   Config
	doer  httpretry.HTTPDoer
	cache Cache
	log   *logger.Logger
}

// NewClient builds a client. With credentials configured, requests carry a
// client-credentials bearer token. A nil cache disables caching.
func NewClient(cfg Config, cache Cache) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cache == nil {
		cache = NopCache{}
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.ClientID != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = cfg.Timeout
	}

	return &Client{
		cfg:   cfg,
		doer:  httpretry.NewRetryClient(httpClient, cfg.MaxRetries),
		cache: cache,
		log:   logger.With("component", "battlenet"),
	}
}

// Hero loads a hero by id. An empty heroID selects the profile's default
// hero: the highest level, most recently played one.
func (c *Client) Hero(ctx context.Context, profile, heroID, region string) (*Hero, error) {
	if heroID == "" {
		id, err := c.defaultHeroID(ctx, profile, region)
		if err != nil {
			return nil, err
		}
		heroID = id
	}

	var hero Hero
	if err := c.get(ctx, region, "profile/"+url.PathEscape(profile)+"/hero/"+url.PathEscape(heroID), &hero); err != nil {
		return nil, fmt.Errorf("battlenet: hero %s/%s@%s: %w", profile, heroID, region, err)
	}
	hero.Profile = profile
	hero.Region = region
	return &hero, nil
}

// HeroByName loads the most recently played hero called name among the
// profile's highest level heroes with that name.
func (c *Client) HeroByName(ctx context.Context, profile, name, region string) (*Hero, error) {
	summary, err := c.profile(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	id, ok := pickByName(summary.Heroes, name)
	if !ok {
		return nil, fmt.Errorf("battlenet: no hero %q on %s@%s: %w", name, profile, region, domain.ErrNotFound)
	}
	return c.Hero(ctx, profile, id, region)
}

// Item loads item details from tooltip params ("item/Cr0BCL...").
func (c *Client) Item(ctx context.Context, tooltipParams, region string) (*Item, error) {
	var item Item
	if err := c.get(ctx, region, "data/"+strings.TrimPrefix(tooltipParams, "/"), &item); err != nil {
		return nil, fmt.Errorf("battlenet: item %s: %w", tooltipParams, err)
	}
	return &item, nil
}

// ItemByID loads the base item definition ("Unique_Helm_001_x1").
func (c *Client) ItemByID(ctx context.Context, id, region string) (*Item, error) {
	return c.Item(ctx, "item/"+id, region)
}

// ItemByName converts a display name ("Mempo's Twilight") into its API slug
// and loads it.
func (c *Client) ItemByName(ctx context.Context, name, region string) (*Item, error) {
	return c.Item(ctx, "item/"+ItemSlug(name), region)
}

// ItemSlug lowercases name, drops hyphens and apostrophes, and joins words
// with hyphens.
func ItemSlug(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "-")
	return strings.ReplaceAll(s, "'", "")
}

func (c *Client) defaultHeroID(ctx context.Context, profile, region string) (string, error) {
	summary, err := c.profile(ctx, profile, region)
	if err != nil {
		return "", err
	}
	if len(summary.Heroes) == 0 {
		return "", fmt.Errorf("battlenet: %s@%s has no heroes: %w", profile, region, domain.ErrNotFound)
	}
	// The API lists heroes by level, then last played.
	return strconv.FormatInt(summary.Heroes[0].ID, 10), nil
}

func (c *Client) profile(ctx context.Context, profile, region string) (*profileSummary, error) {
	var summary profileSummary
	if err := c.get(ctx, region, "profile/"+url.PathEscape(profile)+"/", &summary); err != nil {
		return nil, fmt.Errorf("battlenet: profile %s@%s: %w", profile, region, err)
	}
	return &summary, nil
}

func pickByName(heroes []heroSummary, name string) (string, bool) {
	var matches []heroSummary
	for _, h := range heroes {
		if strings.EqualFold(h.Name, name) {
			matches = append(matches, h)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Level != matches[j].Level {
			return matches[i].Level > matches[j].Level
		}
		return matches[i].LastUpdated > matches[j].LastUpdated
	})
	return strconv.FormatInt(matches[0].ID, 10), true
}

func (c *Client) endpoint(region, path string) string {
	base := strings.ReplaceAll(c.cfg.BaseURL, "{region}", region)
	u := base + path
	if c.cfg.Locale != "" {
		u += "?" + url.Values{"locale": {c.cfg.Locale}}.Encode()
	}
	return u
}

// get fetches path in region and decodes it into out, consulting the cache
// first. API error bodies are reported as domain.ErrNotFound.
func (c *Client) get(ctx context.Context, region, path string, out interface{}) error {
	u := c.endpoint(region, path)
	key := "bnet:" + u

	body, hit, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed", "key", key, "error", err)
	}
	if !hit {
		body, err = c.fetch(ctx, u)
		if err != nil {
			return err
		}
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		c.log.Warn("api error", "url", u, "code", apiErr.Code, "reason", apiErr.Reason)
		return fmt.Errorf("%s: %s: %w", apiErr.Code, apiErr.Reason, domain.ErrNotFound)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	if !hit && c.cfg.CacheTTL > 0 {
		if err := c.cache.Set(ctx, key, body, c.cfg.CacheTTL); err != nil {
			c.log.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.log.Debug("loading", "url", u)
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return body, nil
}
