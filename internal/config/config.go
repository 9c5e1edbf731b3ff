package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobmatch/internal/ratelimit"
	"github.com/amishk599/jobmatch/internal/source"
)

// Config is the root configuration for jobmatch.
type Config struct {
	Search       SearchConfig
	Sources      []SourceConfig // run order is also the cross-source dedup order
	Client       ClientConfig
	Enrich       EnrichConfig
	Filters      FilterConfig
	AI           AIConfig
	Rating       RatingConfig
	History      HistoryConfig
	Notification NotificationConfig
	Schedule     ScheduleConfig
}

// SearchConfig describes what to fetch and where results go.
type SearchConfig struct {
	Keywords []string
	Location string
	Limit    int // per source, zero means unlimited
	Days     int // recency window
	Output   string
	Resume   string
	Top      int // rows in the printed summary table
}

// SourceConfig enables one listing source and optionally overrides its pacing.
type SourceConfig struct {
	Name    string
	Enabled bool
	Proxies []string
	Pacing  *source.Pacing // nil keeps the source's default pacing
}

// ClientConfig tunes the anti-detection request client.
type ClientConfig struct {
	Timeout       time.Duration
	MaxAttempts   int
	RotateMin     int
	RotateMax     int
	RateLimitWait ratelimit.Range
	BlockWait     ratelimit.Range
	NetworkWait   ratelimit.Range
	BlockMarkers  []string
	UserAgents    []string
	HostRPS       float64 // ceiling per host, zero disables
	HostBurst     int
}

// EnrichConfig controls the rating and match passes.
type EnrichConfig struct {
	Workers         int
	RatingThreshold float64 // keep rating 0 or >= threshold
	MatchThreshold  int     // keep score > threshold
}

// FilterConfig lists exclusions applied before enrichment.
type FilterConfig struct {
	ExcludeTitleKeywords   []string
	ExcludeCompanies       []string
	ExcludeEmploymentTypes []string
}

// AIConfig controls the resume-match collaborator.
type AIConfig struct {
	Enabled bool
	BaseURL string
	Model   string
	APIKey  string // expanded from env var by Load, keyring fallback applied by the caller
	Timeout time.Duration
}

// RatingConfig controls the company-rating collaborator.
type RatingConfig struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	CX       string
	Timeout  time.Duration
	CacheTTL time.Duration // zero caches forever
}

// HistoryConfig controls the SQLite store for seen jobs and cached ratings.
type HistoryConfig struct {
	Path      string // empty disables persistence
	SkipSeen  bool   // skip jobs already scored by an earlier run
	Retention time.Duration
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log", "slack" or "none"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// ScheduleConfig controls the start command.
type ScheduleConfig struct {
	Interval time.Duration
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultCSEEndpoint   = "https://www.googleapis.com/customsearch/v1"
	slackHookPrefix      = "https://hooks.slack.com/"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Search       rawSearchConfig    `yaml:"search"`
	Sources      []rawSourceConfig  `yaml:"sources"`
	Client       rawClientConfig    `yaml:"client"`
	Enrich       rawEnrichConfig    `yaml:"enrich"`
	Filters      rawFilterConfig    `yaml:"filters"`
	AI           rawAIConfig        `yaml:"ai"`
	Rating       rawRatingConfig    `yaml:"rating"`
	History      rawHistoryConfig   `yaml:"history"`
	Notification NotificationConfig `yaml:"notification"`
	Schedule     rawScheduleConfig  `yaml:"schedule"`
}

type rawSearchConfig struct {
	Keywords []string `yaml:"keywords"`
	Location string   `yaml:"location"`
	Limit    *int     `yaml:"limit"`
	Days     *int     `yaml:"days"`
	Output   string   `yaml:"output"`
	Resume   string   `yaml:"resume"`
	Top      *int     `yaml:"top"`
}

type rawSourceConfig struct {
	Name    string           `yaml:"name"`
	Enabled *bool            `yaml:"enabled"`
	Proxies []string         `yaml:"proxies"`
	Pacing  *rawPacingConfig `yaml:"pacing"`
}

// Ranges are written as [min, max] in seconds.
type rawPacingConfig struct {
	Detail  []float64 `yaml:"detail"`
	Page    []float64 `yaml:"page"`
	Keyword []float64 `yaml:"keyword"`
}

type rawClientConfig struct {
	Timeout       string    `yaml:"timeout"`
	MaxAttempts   int       `yaml:"max_attempts"`
	Rotate        []int     `yaml:"rotate_after"`
	RateLimitWait []float64 `yaml:"rate_limit_wait"`
	BlockWait     []float64 `yaml:"block_wait"`
	NetworkWait   []float64 `yaml:"network_wait"`
	BlockMarkers  []string  `yaml:"block_markers"`
	UserAgents    []string  `yaml:"user_agents"`
	HostRPS       *float64  `yaml:"host_rps"`
	HostBurst     int       `yaml:"host_burst"`
}

type rawEnrichConfig struct {
	Workers         int      `yaml:"workers"`
	RatingThreshold *float64 `yaml:"rating_threshold"`
	MatchThreshold  *int     `yaml:"match_threshold"`
}

type rawFilterConfig struct {
	ExcludeTitleKeywords   []string `yaml:"exclude_title_keywords"`
	ExcludeCompanies       []string `yaml:"exclude_companies"`
	ExcludeEmploymentTypes []string `yaml:"exclude_employment_types"`
}

type rawAIConfig struct {
	Enabled *bool  `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

type rawRatingConfig struct {
	Enabled  *bool  `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	CX       string `yaml:"cx"`
	Timeout  string `yaml:"timeout"`
	CacheTTL string `yaml:"cache_ttl"`
}

type rawHistoryConfig struct {
	Path      *string `yaml:"path"`
	SkipSeen  *bool   `yaml:"skip_seen"`
	Retention string  `yaml:"retention"`
}

type rawScheduleConfig struct {
	Interval string `yaml:"interval"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := build(rawConfig{})
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return build(raw)
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

func build(raw rawConfig) (*Config, error) {
	cfg := &Config{
		Search: SearchConfig{
			Keywords: trimmed(raw.Search.Keywords),
			Location: strings.TrimSpace(raw.Search.Location),
			Limit:    intOr(raw.Search.Limit, 50),
			Days:     intOr(raw.Search.Days, 3),
			Output:   stringOr(raw.Search.Output, "matched_jobs.csv"),
			Resume:   raw.Search.Resume,
			Top:      intOr(raw.Search.Top, 10),
		},
		Enrich: EnrichConfig{
			Workers:         raw.Enrich.Workers,
			RatingThreshold: 3.9,
			MatchThreshold:  70,
		},
		Filters: FilterConfig(raw.Filters),
		Notification: NotificationConfig{
			Type:       stringOr(raw.Notification.Type, "log"),
			WebhookURL: raw.Notification.WebhookURL,
		},
	}
	if cfg.Enrich.Workers <= 0 {
		cfg.Enrich.Workers = 5
	}
	if raw.Enrich.RatingThreshold != nil {
		cfg.Enrich.RatingThreshold = *raw.Enrich.RatingThreshold
	}
	if raw.Enrich.MatchThreshold != nil {
		cfg.Enrich.MatchThreshold = *raw.Enrich.MatchThreshold
	}

	var err error
	if cfg.Sources, err = buildSources(raw.Sources); err != nil {
		return nil, err
	}
	if cfg.Client, err = buildClient(raw.Client); err != nil {
		return nil, err
	}

	cfg.AI = AIConfig{
		Enabled: boolOr(raw.AI.Enabled, true),
		BaseURL: stringOr(raw.AI.BaseURL, defaultOpenAIBaseURL),
		Model:   stringOr(raw.AI.Model, defaultOpenAIModel),
		APIKey:  raw.AI.APIKey,
	}
	if cfg.AI.Timeout, err = duration("ai.timeout", raw.AI.Timeout, 60*time.Second); err != nil {
		return nil, err
	}

	cfg.Rating = RatingConfig{
		Enabled:  boolOr(raw.Rating.Enabled, true),
		Endpoint: stringOr(raw.Rating.Endpoint, defaultCSEEndpoint),
		APIKey:   raw.Rating.APIKey,
		CX:       raw.Rating.CX,
	}
	if cfg.Rating.Timeout, err = duration("rating.timeout", raw.Rating.Timeout, 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Rating.CacheTTL, err = duration("rating.cache_ttl", raw.Rating.CacheTTL, 30*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.History = HistoryConfig{
		Path:     "jobmatch.db",
		SkipSeen: boolOr(raw.History.SkipSeen, true),
	}
	if raw.History.Path != nil {
		cfg.History.Path = *raw.History.Path
	}
	if cfg.History.Retention, err = duration("history.retention", raw.History.Retention, 90*24*time.Hour); err != nil {
		return nil, err
	}

	if cfg.Schedule.Interval, err = duration("schedule.interval", raw.Schedule.Interval, 24*time.Hour); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildSources(raw []rawSourceConfig) ([]SourceConfig, error) {
	if len(raw) == 0 {
		return []SourceConfig{
			{Name: string(source.LinkedIn().Source), Enabled: true},
			{Name: string(source.Seek().Source), Enabled: true},
		}, nil
	}

	seen := make(map[string]bool, len(raw))
	out := make([]SourceConfig, 0, len(raw))
	for i, r := range raw {
		name := strings.ToLower(strings.TrimSpace(r.Name))
		if _, ok := source.Lookup(name); !ok {
			return nil, fmt.Errorf("sources[%d]: unknown source %q", i, r.Name)
		}
		if seen[name] {
			return nil, fmt.Errorf("sources[%d]: duplicate source %q", i, name)
		}
		seen[name] = true

		sc := SourceConfig{Name: name, Enabled: boolOr(r.Enabled, true), Proxies: trimmed(r.Proxies)}
		if r.Pacing != nil {
			spec, _ := source.Lookup(name)
			p := spec.Pacing
			var err error
			if p.Detail, err = rangeOr(fmt.Sprintf("sources[%d].pacing.detail", i), r.Pacing.Detail, p.Detail); err != nil {
				return nil, err
			}
			if p.Page, err = rangeOr(fmt.Sprintf("sources[%d].pacing.page", i), r.Pacing.Page, p.Page); err != nil {
				return nil, err
			}
			if p.Keyword, err = rangeOr(fmt.Sprintf("sources[%d].pacing.keyword", i), r.Pacing.Keyword, p.Keyword); err != nil {
				return nil, err
			}
			sc.Pacing = &p
		}
		out = append(out, sc)
	}
	return out, nil
}

func buildClient(raw rawClientConfig) (ClientConfig, error) {
	cc := ClientConfig{
		MaxAttempts:  raw.MaxAttempts,
		BlockMarkers: trimmed(raw.BlockMarkers),
		UserAgents:   trimmed(raw.UserAgents),
		HostRPS:      1,
		HostBurst:    raw.HostBurst,
	}
	if raw.HostRPS != nil {
		cc.HostRPS = *raw.HostRPS
	}
	if cc.MaxAttempts <= 0 {
		cc.MaxAttempts = 3
	}
	if cc.HostBurst <= 0 {
		cc.HostBurst = 2
	}

	var err error
	if cc.Timeout, err = duration("client.timeout", raw.Timeout, 15*time.Second); err != nil {
		return cc, err
	}

	cc.RotateMin, cc.RotateMax = 3, 7
	switch len(raw.Rotate) {
	case 0:
	case 2:
		cc.RotateMin, cc.RotateMax = raw.Rotate[0], raw.Rotate[1]
	default:
		return cc, fmt.Errorf("client.rotate_after must be [min, max], got %v", raw.Rotate)
	}

	if cc.RateLimitWait, err = rangeOr("client.rate_limit_wait", raw.RateLimitWait, ratelimit.Between(30, 60)); err != nil {
		return cc, err
	}
	if cc.BlockWait, err = rangeOr("client.block_wait", raw.BlockWait, ratelimit.Between(10, 20)); err != nil {
		return cc, err
	}
	if cc.NetworkWait, err = rangeOr("client.network_wait", raw.NetworkWait, ratelimit.Between(2, 5)); err != nil {
		return cc, err
	}
	return cc, nil
}

func validate(cfg *Config) error {
	if cfg.Search.Limit < 0 {
		return fmt.Errorf("search.limit must not be negative, got %d", cfg.Search.Limit)
	}
	if cfg.Search.Days < 0 {
		return fmt.Errorf("search.days must not be negative, got %d", cfg.Search.Days)
	}
	if cfg.Search.Output == "" {
		return fmt.Errorf("search.output must not be empty")
	}

	if cfg.Enrich.RatingThreshold < 0 || cfg.Enrich.RatingThreshold > 5 {
		return fmt.Errorf("enrich.rating_threshold must be between 0 and 5, got %v", cfg.Enrich.RatingThreshold)
	}
	if cfg.Enrich.MatchThreshold < 0 || cfg.Enrich.MatchThreshold > 100 {
		return fmt.Errorf("enrich.match_threshold must be between 0 and 100, got %d", cfg.Enrich.MatchThreshold)
	}

	if cfg.Client.RotateMin <= 0 || cfg.Client.RotateMax < cfg.Client.RotateMin {
		return fmt.Errorf("client.rotate_after must satisfy 0 < min <= max, got [%d, %d]",
			cfg.Client.RotateMin, cfg.Client.RotateMax)
	}
	if cfg.Client.HostRPS < 0 {
		return fmt.Errorf("client.host_rps must not be negative, got %v", cfg.Client.HostRPS)
	}

	if cfg.Schedule.Interval <= 0 {
		return fmt.Errorf("schedule.interval must be positive, got %v", cfg.Schedule.Interval)
	}

	switch cfg.Notification.Type {
	case "log", "none":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackHookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackHookPrefix)
		}
	default:
		return fmt.Errorf("notification.type must be log, slack or none, got %q", cfg.Notification.Type)
	}

	if cfg.AI.Enabled && cfg.AI.Model == "" {
		return fmt.Errorf("ai.model is required when ai.enabled is true")
	}
	return nil
}

// EnabledSources returns the enabled sources in configured order.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func duration(field, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %v", field, d)
	}
	return d, nil
}

func rangeOr(field string, raw []float64, def ratelimit.Range) (ratelimit.Range, error) {
	switch len(raw) {
	case 0:
		return def, nil
	case 2:
		if raw[0] < 0 || raw[1] < raw[0] {
			return def, fmt.Errorf("%s must satisfy 0 <= min <= max, got %v", field, raw)
		}
		return ratelimit.Between(raw[0], raw[1]), nil
	default:
		return def, fmt.Errorf("%s must be [min, max] seconds, got %v", field, raw)
	}
}

func trimmed(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
