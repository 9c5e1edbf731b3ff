package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobmatch/internal/ai"
	"github.com/amishk599/jobmatch/internal/config"
	"github.com/amishk599/jobmatch/internal/fetch"
	"github.com/amishk599/jobmatch/internal/filter"
	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/notifier"
	"github.com/amishk599/jobmatch/internal/pipeline"
	"github.com/amishk599/jobmatch/internal/ratelimit"
	"github.com/amishk599/jobmatch/internal/rating"
	"github.com/amishk599/jobmatch/internal/secrets"
	"github.com/amishk599/jobmatch/internal/source"
	"github.com/amishk599/jobmatch/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobmatch",
	Short: "Fetch, score and rank job listings against your resume",
	Long: "jobmatch searches LinkedIn and SEEK, rates each company, scores every job " +
		"against your resume and merges the best matches into a CSV you can annotate.",
	SilenceUsage: true,
	// Default to `run` so that `jobmatch` with no args does a single pass.
	RunE: runRun,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBMATCH_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	addRunFlags(rootCmd)
}

// resolveConfigPath applies the priority: explicit path > JOBMATCH_CONFIG > "./config.yaml".
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("JOBMATCH_CONFIG"); env != "" {
		return env
	}
	return "config.yaml"
}

// loadConfig parses the resolved config file. A missing file is only
// tolerated when no path was given explicitly.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	resolved := resolveConfigPath(path)
	if path != "" {
		return config.Load(resolved)
	}
	cfg, found, err := config.LoadOrDefault(resolved)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.Info("no config file found, using defaults", "path", resolved)
	}
	return cfg, nil
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// jobStore is the persistence the pipeline and the rating cache share.
type jobStore interface {
	pipeline.History
	rating.Cache
	Cleanup(olderThan time.Duration) error
	Close() error
}

var (
	_ jobStore = (*store.SQLiteStore)(nil)
	_ jobStore = (*store.NopStore)(nil)
)

func openStore(cfg *config.Config, logger *slog.Logger) (jobStore, error) {
	if cfg.History.Path == "" {
		logger.Info("history disabled, every job will be scored")
		return store.NewNopStore(), nil
	}
	s, err := store.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return nil, err
	}
	if err := s.Cleanup(cfg.History.Retention); err != nil {
		logger.Warn("history cleanup failed", "error", err)
	}
	return s, nil
}

func setupNotifier(cfg *config.Config, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, &http.Client{Timeout: 30 * time.Second}, logger)
	case "none":
		return nil
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// setupMatcher returns the LLM matcher, or a NopMatcher when AI is disabled
// or no key is configured in the config, the environment, or the keychain.
func setupMatcher(cfg *config.Config, logger *slog.Logger) model.Matcher {
	if !cfg.AI.Enabled {
		logger.Info("ai matching disabled")
		return ai.NewNopMatcher()
	}
	key, err := secrets.Resolve(cfg.AI.APIKey, secrets.AccountOpenAI)
	if err != nil {
		logger.Warn("keychain lookup failed", "account", secrets.AccountOpenAI, "error", err)
	}
	if key == "" {
		logger.Warn("ai.api_key not configured, every job will score 0")
		return ai.NewNopMatcher()
	}

	provider := ai.NewOpenAIProvider(cfg.AI.BaseURL, key, cfg.AI.Model, &http.Client{Timeout: cfg.AI.Timeout}).WithLogger(logger)
	logger.Info("ai matching enabled", "model", cfg.AI.Model)
	return ai.NewLLMMatcher(provider, ai.JobMatchTemplate, ai.DefaultMatchPolicy(), logger)
}

// setupRater returns the cached search rater, or a NopRater when rating is
// disabled or credentials are missing.
func setupRater(cfg *config.Config, cache rating.Cache, logger *slog.Logger) model.Rater {
	if !cfg.Rating.Enabled {
		logger.Info("company rating disabled")
		return rating.NewNopRater()
	}
	key, err := secrets.Resolve(cfg.Rating.APIKey, secrets.AccountSearch)
	if err != nil {
		logger.Warn("keychain lookup failed", "account", secrets.AccountSearch, "error", err)
	}
	if key == "" || cfg.Rating.CX == "" {
		logger.Warn("rating.api_key or rating.cx not configured, companies stay unrated")
		return rating.NewNopRater()
	}

	cse := rating.NewCSERater(cfg.Rating.Endpoint, key, cfg.Rating.CX, &http.Client{Timeout: cfg.Rating.Timeout}, logger)
	return rating.NewCachedRater(cse, cache, cfg.Rating.CacheTTL, logger)
}

// buildSources creates one fetcher per enabled source. Every fetcher gets
// its own identity pool; the host limiter and the fetch limit are shared.
func buildSources(cfg *config.Config, logger *slog.Logger) ([]pipeline.JobSource, error) {
	var limiter *ratelimit.HostLimiter
	if cfg.Client.HostRPS > 0 {
		limiter = ratelimit.NewHostLimiter(cfg.Client.HostRPS, cfg.Client.HostBurst)
	}
	collector := source.NewCollector(cfg.Search.Limit)

	var sources []pipeline.JobSource
	for _, sc := range cfg.EnabledSources() {
		spec, ok := source.Lookup(sc.Name)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", sc.Name)
		}
		if sc.Pacing != nil {
			spec.Pacing = *sc.Pacing
		}

		client, err := fetch.New(fetch.Options{
			UserAgents:    cfg.Client.UserAgents,
			Proxies:       sc.Proxies,
			Timeout:       cfg.Client.Timeout,
			MaxAttempts:   cfg.Client.MaxAttempts,
			RotateMin:     cfg.Client.RotateMin,
			RotateMax:     cfg.Client.RotateMax,
			RateLimitWait: cfg.Client.RateLimitWait,
			BlockWait:     cfg.Client.BlockWait,
			NetworkWait:   cfg.Client.NetworkWait,
			BlockMarkers:  cfg.Client.BlockMarkers,
			Limiter:       limiter,
			Logger:        logger.With("source", sc.Name),
		})
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.Name, err)
		}

		f, err := source.NewFetcher(spec, client, collector, logger)
		if err != nil {
			return nil, err
		}
		sources = append(sources, f)
		logger.Info("registered source", "name", sc.Name, "proxies", len(sc.Proxies), "pacing_page", spec.Pacing.Page.String())
	}
	return sources, nil
}

func buildFilters(cfg *config.Config) []model.JobFilter {
	f := cfg.Filters
	if len(f.ExcludeTitleKeywords) == 0 && len(f.ExcludeCompanies) == 0 && len(f.ExcludeEmploymentTypes) == 0 {
		return nil
	}
	return []model.JobFilter{filter.NewExcludeFilter(f.ExcludeTitleKeywords, f.ExcludeCompanies, f.ExcludeEmploymentTypes)}
}
