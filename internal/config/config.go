package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"InfluenceRanker/internal/domain"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "INFLUENCE_RANKER_CONFIG"
	databasePathEnv = "DATABASE_PATH"
	redisAddrEnv    = "REDIS_ADDR"
	logLevelEnv     = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Platforms PlatformsConfig `yaml:"platforms"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Ranking   RankingConfig   `yaml:"ranking"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls the slog level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RedisConfig enables the cross-process rate-limit window. When Addr is
// empty each adapter falls back to its in-process sliding window.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SchedulerConfig defines how often the daemon mode runs scrape and
// ranking cycles.
type SchedulerConfig struct {
	ScrapeInterval  string         `yaml:"scrapeInterval"`
	RankingInterval string         `yaml:"rankingInterval"`
	Timezone        string         `yaml:"timezone"`
	location        *time.Location `yaml:"-"`
}

// ParseScrapeInterval returns the scrape interval as a duration.
func (s SchedulerConfig) ParseScrapeInterval() time.Duration {
	d, err := time.ParseDuration(s.ScrapeInterval)
	if err != nil {
		return time.Hour
	}
	return d
}

// ParseRankingInterval returns the ranking interval as a duration.
func (s SchedulerConfig) ParseRankingInterval() time.Duration {
	d, err := time.ParseDuration(s.RankingInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PlatformsConfig groups per-platform scraping settings.
type PlatformsConfig struct {
	Qiita  PlatformConfig `yaml:"qiita"`
	Zenn   PlatformConfig `yaml:"zenn"`
	Hatena PlatformConfig `yaml:"hatena"`
}

// For returns the settings of a single platform.
func (p PlatformsConfig) For(platform domain.Platform) PlatformConfig {
	switch platform {
	case domain.PlatformQiita:
		return p.Qiita
	case domain.PlatformZenn:
		return p.Zenn
	case domain.PlatformHatena:
		return p.Hatena
	}
	return PlatformConfig{}
}

// PlatformConfig describes one adapter's fetch policy.
type PlatformConfig struct {
	Enabled           bool              `yaml:"enabled"`
	RequestsPerMinute int               `yaml:"requestsPerMinute"`
	TimeoutSeconds    int               `yaml:"timeoutSeconds"`
	MaxRetryCount     int               `yaml:"maxRetryCount"`
	RetryDelaySeconds int               `yaml:"retryDelaySeconds"`
	MaxItems          int               `yaml:"maxItems"`
	Headers           map[string]string `yaml:"headers"`
	FeedURL           string            `yaml:"feedUrl"`
}

// ScoringConfig carries the influence-score weighting constants.
type ScoringConfig struct {
	BasePoints            float64            `yaml:"basePoints"`
	BookmarkFactor        float64            `yaml:"bookmarkFactor"`
	LikesFactor           float64            `yaml:"likesFactor"`
	DecayFloor            float64            `yaml:"decayFloor"`
	FallbackTimeWeight    float64            `yaml:"fallbackTimeWeight"`
	UnknownPlatformWeight float64            `yaml:"unknownPlatformWeight"`
	PlatformWeights       map[string]float64 `yaml:"platformWeights"`
}

// PlatformWeight resolves the weight for a platform tag.
func (s ScoringConfig) PlatformWeight(platform domain.Platform) float64 {
	if w, ok := s.PlatformWeights[string(platform)]; ok {
		return w
	}
	return s.UnknownPlatformWeight
}

// RankingConfig defines period windows and history retention.
type RankingConfig struct {
	PeriodDays           map[string]int `yaml:"periodDays"`
	AllTimeEpochYear     int            `yaml:"allTimeEpochYear"`
	HistoryRetentionDays int            `yaml:"historyRetentionDays"`
}

// DaysFor returns the day-count of a period type, zero for the all-time
// period (which is anchored to the epoch year instead).
func (r RankingConfig) DaysFor(periodType domain.PeriodType) int {
	return r.PeriodDays[string(periodType)]
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Logging.Level != "" || override.Logging.Format != "" {
		base.Logging = override.Logging
	}

	if override.Redis.Addr != "" {
		base.Redis = override.Redis
	}

	if override.Scheduler.ScrapeInterval != "" {
		base.Scheduler.ScrapeInterval = override.Scheduler.ScrapeInterval
	}
	if override.Scheduler.RankingInterval != "" {
		base.Scheduler.RankingInterval = override.Scheduler.RankingInterval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	base.Platforms.Qiita = mergePlatform(base.Platforms.Qiita, override.Platforms.Qiita)
	base.Platforms.Zenn = mergePlatform(base.Platforms.Zenn, override.Platforms.Zenn)
	base.Platforms.Hatena = mergePlatform(base.Platforms.Hatena, override.Platforms.Hatena)

	if override.Scoring.BasePoints != 0 {
		base.Scoring.BasePoints = override.Scoring.BasePoints
	}
	if override.Scoring.BookmarkFactor != 0 {
		base.Scoring.BookmarkFactor = override.Scoring.BookmarkFactor
	}
	if override.Scoring.LikesFactor != 0 {
		base.Scoring.LikesFactor = override.Scoring.LikesFactor
	}
	if override.Scoring.DecayFloor != 0 {
		base.Scoring.DecayFloor = override.Scoring.DecayFloor
	}
	if override.Scoring.FallbackTimeWeight != 0 {
		base.Scoring.FallbackTimeWeight = override.Scoring.FallbackTimeWeight
	}
	if override.Scoring.UnknownPlatformWeight != 0 {
		base.Scoring.UnknownPlatformWeight = override.Scoring.UnknownPlatformWeight
	}
	if len(override.Scoring.PlatformWeights) > 0 {
		base.Scoring.PlatformWeights = override.Scoring.PlatformWeights
	}

	if len(override.Ranking.PeriodDays) > 0 {
		base.Ranking.PeriodDays = override.Ranking.PeriodDays
	}
	if override.Ranking.AllTimeEpochYear != 0 {
		base.Ranking.AllTimeEpochYear = override.Ranking.AllTimeEpochYear
	}
	if override.Ranking.HistoryRetentionDays != 0 {
		base.Ranking.HistoryRetentionDays = override.Ranking.HistoryRetentionDays
	}

	return base
}

func mergePlatform(base, override PlatformConfig) PlatformConfig {
	if override.RequestsPerMinute != 0 {
		base.RequestsPerMinute = override.RequestsPerMinute
	}
	if override.TimeoutSeconds != 0 {
		base.TimeoutSeconds = override.TimeoutSeconds
	}
	if override.MaxRetryCount != 0 {
		base.MaxRetryCount = override.MaxRetryCount
	}
	if override.RetryDelaySeconds != 0 {
		base.RetryDelaySeconds = override.RetryDelaySeconds
	}
	if override.MaxItems != 0 {
		base.MaxItems = override.MaxItems
	}
	if len(override.Headers) > 0 {
		base.Headers = override.Headers
	}
	if override.FeedURL != "" {
		base.FeedURL = override.FeedURL
	}
	base.Enabled = base.Enabled || override.Enabled
	return base
}

func defaultPlatform() PlatformConfig {
	return PlatformConfig{
		Enabled:           true,
		RequestsPerMinute: 30,
		TimeoutSeconds:    20,
		MaxRetryCount:     3,
		RetryDelaySeconds: 2,
		MaxItems:          16,
	}
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	hatena := defaultPlatform()
	hatena.FeedURL = "https://b.hatena.ne.jp/hotentry/it.rss"
	return Config{
		Database: DatabaseConfig{Path: "./influenceranker.db"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{
			ScrapeInterval:  "1h",
			RankingInterval: "24h",
			Timezone:        defaultTimezone,
			location:        tz,
		},
		Platforms: PlatformsConfig{
			Qiita:  defaultPlatform(),
			Zenn:   defaultPlatform(),
			Hatena: hatena,
		},
		Scoring: ScoringConfig{
			BasePoints:            1.0,
			BookmarkFactor:        0.1,
			LikesFactor:           0.05,
			DecayFloor:            0.1,
			FallbackTimeWeight:    0.5,
			UnknownPlatformWeight: 0.5,
			PlatformWeights: map[string]float64{
				"qiita":  1.0,
				"zenn":   1.0,
				"hatena": 0.8,
			},
		},
		Ranking: RankingConfig{
			PeriodDays: map[string]int{
				"1w": 7,
				"1m": 30,
				"3m": 90,
				"6m": 180,
				"1y": 365,
				"3y": 1095,
			},
			AllTimeEpochYear:     2020,
			HistoryRetentionDays: 365,
		},
	}
}
