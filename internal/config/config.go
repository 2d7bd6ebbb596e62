package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the bot
type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Reddit    RedditConfig    `yaml:"reddit"`
	BattleNet BattleNetConfig `yaml:"battlenet"`
	Lookup    LookupConfig    `yaml:"lookup"`
	Redis     RedisConfig     `yaml:"redis"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BotConfig holds the lifecycle policy knobs
type BotConfig struct {
	Username                 string `yaml:"username"`     // bot's own identity
	SearchTerms              string `yaml:"search_terms"` // comma-separated substrings
	MaxTimeframeSeconds      int    `yaml:"max_timeframe_seconds"`
	SubmissionLimit          int    `yaml:"submission_limit"`
	CommentLimit             int    `yaml:"comment_limit"`
	PollIntervalSeconds      int    `yaml:"poll_interval_seconds"`
	FaultRetrySeconds        int    `yaml:"fault_retry_seconds"`
	FailsAllowed             int    `yaml:"fails_allowed"`
	SelfPostRetentionSeconds int    `yaml:"self_post_retention_seconds"`
	OwnHistoryLimit          int    `yaml:"own_history_limit"`
	DryRun                   bool   `yaml:"dry_run"`
}

// Terms splits SearchTerms on commas. Leading and trailing spaces around each
// term are trimmed and blank terms dropped; inner whitespace is kept since
// matching is an exact substring test.
func (c BotConfig) Terms() []string {
	var terms []string
	for _, t := range strings.Split(c.SearchTerms, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// MaxAge returns the maximum age of an item worth evaluating.
func (c BotConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxTimeframeSeconds) * time.Second
}

// PollInterval returns the sleep between successful cycles.
func (c BotConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// FaultRetry returns the sleep after a failed cycle, before reconnecting.
func (c BotConfig) FaultRetry() time.Duration {
	return time.Duration(c.FaultRetrySeconds) * time.Second
}

// SelfPostRetention returns how long own replies are watched.
func (c BotConfig) SelfPostRetention() time.Duration {
	return time.Duration(c.SelfPostRetentionSeconds) * time.Second
}

// RedditConfig holds Reddit API credentials and endpoints
type RedditConfig struct {
	Subreddit         string `yaml:"subreddit"`
	UserAgent         string `yaml:"user_agent"`
	ClientID          string `yaml:"client_id"`
	ClientSecret      string `yaml:"client_secret"`
	Password          string `yaml:"password"`
	Source            string `yaml:"source"` // "api" or "feed"
	BaseURL           string `yaml:"base_url"`
	AuthURL           string `yaml:"auth_url"`
	FeedBaseURL       string `yaml:"feed_base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	MaxRetries        int    `yaml:"max_retries"`
}

// Timeout returns the per-request timeout.
func (c RedditConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BattleNetConfig holds D3 community API settings
type BattleNetConfig struct {
	BaseURL         string   `yaml:"base_url"`    // API root, "{region}" is substituted
	ProfileURL      string   `yaml:"profile_url"` // public profile site root, "{region}" is substituted
	ItemPath        string   `yaml:"item_path"`
	CraftedItemPath string   `yaml:"crafted_item_path"`
	TokenURL        string   `yaml:"token_url"`
	ClientID        string   `yaml:"client_id"`
	ClientSecret    string   `yaml:"client_secret"`
	Regions         []string `yaml:"regions"`
	Locale          string   `yaml:"locale"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
	MaxRetries      int      `yaml:"max_retries"`
}

// CacheTTL returns how long API responses stay cached.
func (c BattleNetConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Timeout returns the per-request timeout.
func (c BattleNetConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LookupConfig holds the display lookup database settings
type LookupConfig struct {
	DatabaseURL      string `yaml:"database_url"`
	ItemTable        string `yaml:"item_table"`
	StatsTable       string `yaml:"stats_table"`
	GearStats        string `yaml:"gear_stats"`
	ItemDisplayOrder string `yaml:"item_display_order"`
	MaxOrder         int    `yaml:"max_order"`
	MessageMeURL     string `yaml:"message_me_url"`
}

// GearStatNames returns the stats summed from gear.
func (c LookupConfig) GearStatNames() []string { return splitList(c.GearStats) }

// SlotOrder returns the gear slots in display order.
func (c LookupConfig) SlotOrder() []string { return splitList(c.ItemDisplayOrder) }

// RedisConfig holds the optional Redis connection
type RedisConfig struct {
	URL string `yaml:"url"`
}

// Enabled reports whether Redis-backed features should be used.
func (c RedisConfig) Enabled() bool { return c.URL != "" }

// ServerConfig holds the status HTTP server configuration
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Host    string `yaml:"host"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.MaxTimeframeSeconds == 0 {
		cfg.Bot.MaxTimeframeSeconds = 3600
	}
	if cfg.Bot.SubmissionLimit == 0 {
		cfg.Bot.SubmissionLimit = 50
	}
	if cfg.Bot.CommentLimit == 0 {
		cfg.Bot.CommentLimit = 200
	}
	if cfg.Bot.PollIntervalSeconds == 0 {
		cfg.Bot.PollIntervalSeconds = 10
	}
	if cfg.Bot.FaultRetrySeconds == 0 {
		cfg.Bot.FaultRetrySeconds = 30
	}
	if cfg.Bot.FailsAllowed == 0 {
		cfg.Bot.FailsAllowed = 3
	}
	if cfg.Bot.SelfPostRetentionSeconds == 0 {
		cfg.Bot.SelfPostRetentionSeconds = 48 * 60 * 60
	}
	if cfg.Bot.OwnHistoryLimit == 0 {
		cfg.Bot.OwnHistoryLimit = 200
	}

	if cfg.Reddit.UserAgent == "" {
		cfg.Reddit.UserAgent = "linux:profilebot:v1.0"
	}
	if cfg.Reddit.Source == "" {
		cfg.Reddit.Source = "api"
	}
	if cfg.Reddit.BaseURL == "" {
		cfg.Reddit.BaseURL = "https://oauth.reddit.com"
	}
	if cfg.Reddit.AuthURL == "" {
		cfg.Reddit.AuthURL = "https://www.reddit.com/api/v1/access_token"
	}
	if cfg.Reddit.FeedBaseURL == "" {
		cfg.Reddit.FeedBaseURL = "https://www.reddit.com"
	}
	if cfg.Reddit.RequestsPerMinute == 0 {
		cfg.Reddit.RequestsPerMinute = 60
	}
	if cfg.Reddit.TimeoutSeconds == 0 {
		cfg.Reddit.TimeoutSeconds = 30
	}
	if cfg.Reddit.MaxRetries == 0 {
		cfg.Reddit.MaxRetries = 3
	}

	if cfg.BattleNet.BaseURL == "" {
		cfg.BattleNet.BaseURL = "https://{region}.api.blizzard.com/d3/"
	}
	if cfg.BattleNet.ProfileURL == "" {
		cfg.BattleNet.ProfileURL = "http://{region}.battle.net/d3/en/"
	}
	if cfg.BattleNet.ItemPath == "" {
		cfg.BattleNet.ItemPath = "item/"
	}
	if cfg.BattleNet.CraftedItemPath == "" {
		cfg.BattleNet.CraftedItemPath = "artisan/blacksmith/recipe/"
	}
	if cfg.BattleNet.TokenURL == "" {
		cfg.BattleNet.TokenURL = "https://oauth.battle.net/token"
	}
	if len(cfg.BattleNet.Regions) == 0 {
		cfg.BattleNet.Regions = []string{"us", "eu"}
	}
	if cfg.BattleNet.Locale == "" {
		cfg.BattleNet.Locale = "en_US"
	}
	if cfg.BattleNet.CacheTTLSeconds == 0 {
		cfg.BattleNet.CacheTTLSeconds = 600
	}
	if cfg.BattleNet.TimeoutSeconds == 0 {
		cfg.BattleNet.TimeoutSeconds = 20
	}
	if cfg.BattleNet.MaxRetries == 0 {
		cfg.BattleNet.MaxRetries = 2
	}

	if cfg.Lookup.ItemTable == "" {
		cfg.Lookup.ItemTable = "item_attributes"
	}
	if cfg.Lookup.StatsTable == "" {
		cfg.Lookup.StatsTable = "hero_stats"
	}
	if cfg.Lookup.GearStats == "" {
		cfg.Lookup.GearStats = "Crit_Percent_Bonus_Capped,Crit_Damage_Percent,Attacks_Per_Second_Percent"
	}
	if cfg.Lookup.ItemDisplayOrder == "" {
		cfg.Lookup.ItemDisplayOrder = "head,shoulders,torso,hands,bracers,waist,legs,feet,neck,leftFinger,rightFinger,mainHand,offHand"
	}
	if cfg.Lookup.MaxOrder == 0 {
		cfg.Lookup.MaxOrder = 100
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so credentials can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("REDDIT_USERNAME"); v != "" {
		cfg.Bot.Username = v
	}
	if v := os.Getenv("REDDIT_PASSWORD"); v != "" {
		cfg.Reddit.Password = v
	}
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		cfg.Reddit.ClientID = v
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		cfg.Reddit.ClientSecret = v
	}
	if v := os.Getenv("BNET_CLIENT_ID"); v != "" {
		cfg.BattleNet.ClientID = v
	}
	if v := os.Getenv("BNET_CLIENT_SECRET"); v != "" {
		cfg.BattleNet.ClientSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Lookup.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BOT_DRY_RUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Bot.DryRun = b
		}
	}

	return cfg, nil
}

// Validate checks the settings the lifecycle engine cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Bot.Username == "" {
		errs = append(errs, errors.New("bot.username is required"))
	}
	if len(c.Bot.Terms()) == 0 {
		errs = append(errs, errors.New("bot.search_terms must name at least one term"))
	}
	if c.Bot.FailsAllowed < 1 {
		errs = append(errs, fmt.Errorf("bot.fails_allowed must be >= 1, got %d", c.Bot.FailsAllowed))
	}
	if c.Reddit.Subreddit == "" {
		errs = append(errs, errors.New("reddit.subreddit is required"))
	}
	switch c.Reddit.Source {
	case "api":
		if c.Reddit.ClientID == "" || c.Reddit.Password == "" {
			errs = append(errs, errors.New("reddit.client_id and reddit.password are required for the api source"))
		}
	case "feed":
		if !c.Bot.DryRun {
			errs = append(errs, errors.New("reddit.source=feed is read-only and requires bot.dry_run"))
		}
	default:
		errs = append(errs, fmt.Errorf("reddit.source must be api or feed, got %q", c.Reddit.Source))
	}
	if c.Lookup.DatabaseURL == "" {
		errs = append(errs, errors.New("lookup.database_url is required"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
