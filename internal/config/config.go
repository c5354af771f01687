package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/pauljones0/discogs-deals/internal/condition"
)

const (
	BackendFile      = "file"
	BackendBadger    = "badger"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendRedis     = "redis"

	FormatAtom = "atom"
	FormatRSS  = "rss"
)

type Config struct {
	DiscogsUser            string        `env:"DISCOGS_USER"`
	DiscogsToken           string        `env:"DISCOGS_TOKEN"`
	DiscogsAPIURL          string        `env:"DISCOGS_API_URL" envDefault:"https://api.discogs.com"`
	DiscogsWebURL          string        `env:"DISCOGS_WEB_URL" envDefault:"https://www.discogs.com"`
	DiscogsGraphQLURL      string        `env:"DISCOGS_GRAPHQL_URL" envDefault:"https://www.discogs.com/service/catalog/api/graphql"`
	StatsQueryHash         string        `env:"DISCOGS_STATS_QUERY_HASH"`
	Currency               string        `env:"CURRENCY" envDefault:"USD"`
	RequestTimeout         time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	RequestsPerSecond      float64       `env:"REQUESTS_PER_SECOND" envDefault:"1"`
	MaxRetries             int           `env:"MAX_RETRIES" envDefault:"2"`
	ListingMaxAge          time.Duration `env:"LISTING_MAX_AGE" envDefault:"24h"`
	ReleaseCacheTTL        time.Duration `env:"RELEASE_CACHE_TTL" envDefault:"6h"`
	MinConditionExpr       string        `env:"MIN_CONDITION" envDefault:"all"`
	ConditionScopeName     string        `env:"CONDITION_SCOPE" envDefault:"both"`
	MinDiscount            int           `env:"MIN_DISCOUNT" envDefault:"25"`
	RequireReference       bool          `env:"REQUIRE_REFERENCE_PRICE" envDefault:"false"`
	SkipNeverSold          bool          `env:"SKIP_NEVER_SOLD" envDefault:"false"`
	HighDemandRatio        float64       `env:"HIGH_DEMAND_RATIO" envDefault:"0"`
	HighDemandDiscount     int           `env:"HIGH_DEMAND_MIN_DISCOUNT" envDefault:"5"`
	StandardShipping       float64       `env:"STANDARD_SHIPPING" envDefault:"0"`
	AllowVGMinAge          int           `env:"ALLOW_VG_MIN_AGE" envDefault:"0"`
	AllowVGMinSellerRating float64       `env:"ALLOW_VG_MIN_SELLER_RATING" envDefault:"0"`
	BlockedSellers         []string      `env:"BLOCKED_SELLERS" envSeparator:","`
	RunMinutes             int           `env:"RUN_MINUTES" envDefault:"0"`
	QueryConcurrency       int           `env:"QUERY_CONCURRENCY" envDefault:"2"`
	LedgerHorizon          time.Duration `env:"LEDGER_HORIZON" envDefault:"720h"`

	FeedPath          string `env:"FEED_PATH" envDefault:"deals.atom"`
	FeedFormat        string `env:"FEED_FORMAT" envDefault:"atom"`
	FeedTitle         string `env:"FEED_TITLE" envDefault:"Discogs Deals"`
	FeedURL           string `env:"FEED_URL"`
	FeedAuthorName    string `env:"FEED_AUTHOR_NAME"`
	FeedAuthorEmail   string `env:"FEED_AUTHOR_EMAIL"`
	FeedMaxEntries    int    `env:"FEED_MAX_ENTRIES" envDefault:"50"`
	FeedEntryIDPrefix string `env:"FEED_ENTRY_ID_PREFIX" envDefault:"https://www.discogs.com/sell/item/"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`
	StorePath    string `env:"STORE_PATH" envDefault:"state"`
	ProjectID    string `env:"GOOGLE_CLOUD_PROJECT"`
	PostgresDSN  string `env:"POSTGRES_DSN"`
	RedisURL     string `env:"REDIS_URL"`
	SearchesPath string `env:"SEARCHES_PATH" envDefault:"searches.yaml"`

	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`
	Port              string `env:"PORT" envDefault:"8080"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`

	// Parsed from MinConditionExpr and ConditionScopeName by Load.
	MinCondition   condition.Threshold
	ConditionScope condition.Scope
}

// Load reads the configuration from the environment, after loading a .env file
// when one is present. Any invalid value is a configuration error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.DiscordWebhookURL == "" {
		slog.Debug("DISCORD_WEBHOOK_URL not set, Discord notifications will be skipped")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	th, err := condition.ParseThreshold(c.MinConditionExpr)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid MIN_CONDITION: %w", err))
	}
	c.MinCondition = th

	scope, err := condition.ParseScope(c.ConditionScopeName)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid CONDITION_SCOPE: %w", err))
	}
	c.ConditionScope = scope

	if c.FeedURL == "" {
		errs = append(errs, errors.New("FEED_URL environment variable is required but not set"))
	}
	if c.FeedAuthorName == "" {
		errs = append(errs, errors.New("FEED_AUTHOR_NAME environment variable is required but not set"))
	}
	if strings.TrimSpace(c.FeedTitle) == "" {
		errs = append(errs, errors.New("FEED_TITLE must not be empty"))
	}
	if c.FeedMaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("invalid FEED_MAX_ENTRIES %d: must be positive", c.FeedMaxEntries))
	}

	c.FeedFormat = strings.ToLower(c.FeedFormat)
	if c.FeedFormat != FormatAtom && c.FeedFormat != FormatRSS {
		errs = append(errs, fmt.Errorf("invalid FEED_FORMAT %q: want atom or rss", c.FeedFormat))
	}

	switch c.StoreBackend {
	case BackendFile, BackendBadger, BackendFirestore, BackendPostgres, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend))
	}

	if c.MinDiscount < -100 || c.MinDiscount > 100 {
		errs = append(errs, fmt.Errorf("invalid MIN_DISCOUNT %d", c.MinDiscount))
	}
	if c.AllowVGMinAge < 0 {
		errs = append(errs, fmt.Errorf("invalid ALLOW_VG_MIN_AGE %d", c.AllowVGMinAge))
	}
	if c.AllowVGMinSellerRating < 0 || c.AllowVGMinSellerRating > 100 {
		errs = append(errs, fmt.Errorf("invalid ALLOW_VG_MIN_SELLER_RATING %v", c.AllowVGMinSellerRating))
	}
	if c.RunMinutes < 0 {
		errs = append(errs, fmt.Errorf("invalid RUN_MINUTES %d", c.RunMinutes))
	}
	if c.QueryConcurrency < 1 {
		c.QueryConcurrency = 1
	}
	if c.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("invalid REQUESTS_PER_SECOND %v", c.RequestsPerSecond))
	}

	return errors.Join(errs...)
}

// RunBudget is the wall-clock limit of one run; zero means unlimited.
func (c *Config) RunBudget() time.Duration {
	return time.Duration(c.RunMinutes) * time.Minute
}

// SlogLevel maps LOG_LEVEL onto slog.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
