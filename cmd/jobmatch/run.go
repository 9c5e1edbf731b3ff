package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobmatch/internal/config"
	"github.com/amishk599/jobmatch/internal/enrich"
	"github.com/amishk599/jobmatch/internal/pipeline"
	"github.com/amishk599/jobmatch/internal/rank"
	"github.com/amishk599/jobmatch/internal/resume"
	"github.com/amishk599/jobmatch/internal/source"
)

var runFlags struct {
	resume   string
	keywords []string
	location string
	limit    int
	output   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, score and rank once, then exit",
	Long: "One pass over every enabled source: fetch, dedupe, filter, rate, match, " +
		"then merge the ranked matches into the output CSV.",
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&runFlags.resume, "resume", "r", "", "resume file (.pdf, .txt, .md)")
	cmd.Flags().StringSliceVarP(&runFlags.keywords, "keywords", "k", nil, "comma-separated search keywords")
	cmd.Flags().StringVarP(&runFlags.location, "location", "l", "", "search location")
	cmd.Flags().IntVar(&runFlags.limit, "limit", 0, "max jobs per source (0 = unlimited)")
	cmd.Flags().StringVarP(&runFlags.output, "output", "o", "", "results CSV path")
}

// applyRunFlags overrides config values with flags the user set explicitly.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("resume") {
		cfg.Search.Resume = runFlags.resume
	}
	if flags.Changed("keywords") {
		var kws []string
		for _, k := range runFlags.keywords {
			if k = strings.TrimSpace(k); k != "" {
				kws = append(kws, k)
			}
		}
		cfg.Search.Keywords = kws
	}
	if flags.Changed("location") {
		cfg.Search.Location = strings.TrimSpace(runFlags.location)
	}
	if flags.Changed("limit") {
		if runFlags.limit < 0 {
			return fmt.Errorf("--limit must not be negative, got %d", runFlags.limit)
		}
		cfg.Search.Limit = runFlags.limit
	}
	if flags.Changed("output") {
		if strings.TrimSpace(runFlags.output) == "" {
			return errors.New("--output must not be empty")
		}
		cfg.Search.Output = runFlags.output
	}
	if len(cfg.Search.Keywords) == 0 {
		return errors.New("no search keywords: set search.keywords or pass --keywords")
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		logger.Error("invalid arguments", "error", err)
		os.Exit(1)
	}

	r, err := newRunner(cfg, logger)
	if err != nil {
		logger.Error("setup failed", "error", err)
		os.Exit(1)
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return r.runOnce(ctx)
}

// runner holds everything one or more pipeline passes share.
type runner struct {
	cfg       *config.Config
	store     jobStore
	pipeline  *pipeline.Pipeline
	extractor *resume.Extractor
	logger    *slog.Logger
}

func newRunner(cfg *config.Config, logger *slog.Logger) (*runner, error) {
	logger.Info("config loaded",
		"keywords", cfg.Search.Keywords,
		"location", cfg.Search.Location,
		"limit", cfg.Search.Limit,
		"days", cfg.Search.Days,
		"output", cfg.Search.Output,
	)

	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	sources, err := buildSources(cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	if len(sources) == 0 {
		st.Close()
		return nil, errors.New("no enabled sources")
	}

	p := pipeline.New(pipeline.Deps{
		Sources:  sources,
		Filters:  buildFilters(cfg),
		History:  st,
		Enricher: enrich.New(cfg.Enrich.Workers, logger),
		Rater:    setupRater(cfg, st, logger),
		Matcher:  setupMatcher(cfg, logger),
		Writer:   rank.NewCSVWriter(cfg.Search.Output),
		Notifier: setupNotifier(cfg, logger),
		Out:      os.Stdout,
		Logger:   logger,
	}, pipeline.Options{
		Query: source.Query{
			Keywords: cfg.Search.Keywords,
			Location: cfg.Search.Location,
			Days:     cfg.Search.Days,
		},
		RatingThreshold: cfg.Enrich.RatingThreshold,
		MatchThreshold:  cfg.Enrich.MatchThreshold,
		SkipSeen:        cfg.History.SkipSeen,
		Top:             cfg.Search.Top,
	})

	return &runner{
		cfg:       cfg,
		store:     st,
		pipeline:  p,
		extractor: resume.NewExtractor(logger),
		logger:    logger,
	}, nil
}

// runOnce reads the resume and executes one pass. The resume is re-read on
// every pass so edits are picked up by the scheduler.
func (r *runner) runOnce(ctx context.Context) error {
	resumeText := r.extractor.Extract(ctx, r.cfg.Search.Resume)

	sum, err := r.pipeline.Run(ctx, resumeText)
	for src, srcErr := range sum.SourceErrors {
		r.logger.Warn("source incomplete", "source", src, "fetched", sum.Fetched[src], "error", srcErr)
	}
	switch {
	case errors.Is(err, pipeline.ErrNoJobs):
		r.logger.Warn("no jobs found", "run_id", sum.RunID)
		return nil
	case errors.Is(err, context.Canceled):
		r.logger.Info("run cancelled", "run_id", sum.RunID)
		return nil
	case err != nil:
		r.logger.Error("run failed", "run_id", sum.RunID, "error", err)
		return err
	}

	r.logger.Info("run complete",
		"run_id", sum.RunID,
		"unique", sum.Unique,
		"matched", sum.Matched,
		"added", len(sum.Merge.Added),
		"output", sum.Merge.Path,
	)
	return nil
}

func (r *runner) Close() error {
	return r.store.Close()
}
