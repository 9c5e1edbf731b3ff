package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobmatch/internal/config"
	"github.com/amishk599/jobmatch/internal/model"
	"github.com/amishk599/jobmatch/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	runFlags.resume, runFlags.keywords, runFlags.location, runFlags.limit, runFlags.output = "", nil, "", 0, ""
	cmd := &cobra.Command{Use: "test"}
	addRunFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func TestApplyRunFlags_Overrides(t *testing.T) {
	cfg := config.Default()
	cfg.Search.Keywords = []string{"from config"}

	cmd := newFlagCmd(t, "--keywords", "Data Engineer, Platform Engineer,", "--location", " Sydney ",
		"--limit", "3", "--output", "out.csv", "--resume", "cv.pdf")
	if err := applyRunFlags(cmd, cfg); err != nil {
		t.Fatalf("applyRunFlags: %v", err)
	}

	if got := strings.Join(cfg.Search.Keywords, "|"); got != "Data Engineer|Platform Engineer" {
		t.Errorf("Keywords = %q", got)
	}
	if cfg.Search.Location != "Sydney" || cfg.Search.Limit != 3 || cfg.Search.Output != "out.csv" || cfg.Search.Resume != "cv.pdf" {
		t.Errorf("Search = %+v", cfg.Search)
	}
}

func TestApplyRunFlags_UnsetFlagsKeepConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Search.Keywords = []string{"golang"}

	if err := applyRunFlags(newFlagCmd(t), cfg); err != nil {
		t.Fatalf("applyRunFlags: %v", err)
	}
	if cfg.Search.Limit != 50 || cfg.Search.Output != "matched_jobs.csv" || cfg.Search.Keywords[0] != "golang" {
		t.Errorf("Search = %+v", cfg.Search)
	}
}

func TestApplyRunFlags_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no keywords", nil, "no search keywords"},
		{"negative limit", []string{"-k", "go", "--limit=-1"}, "--limit"},
		{"empty output", []string{"-k", "go", "--output", " "}, "--output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := applyRunFlags(newFlagCmd(t, tt.args...), config.Default())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("JOBMATCH_CONFIG", "")
	if got := resolveConfigPath(""); got != "config.yaml" {
		t.Errorf("default = %q", got)
	}
	t.Setenv("JOBMATCH_CONFIG", "/etc/jobmatch.yaml")
	if got := resolveConfigPath(""); got != "/etc/jobmatch.yaml" {
		t.Errorf("env = %q", got)
	}
	if got := resolveConfigPath("mine.yaml"); got != "mine.yaml" {
		t.Errorf("explicit = %q", got)
	}
}

func TestLoadConfig_MissingExplicitPathFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := loadConfig(missing, discardLogger()); err == nil {
		t.Error("expected error for a missing explicit config")
	}

	t.Setenv("JOBMATCH_CONFIG", missing)
	cfg, err := loadConfig("", discardLogger())
	if err != nil || cfg == nil {
		t.Fatalf("implicit missing config should fall back to defaults, err = %v", err)
	}
}

func TestBuildSources(t *testing.T) {
	cfg := config.Default()
	sources, err := buildSources(cfg, discardLogger())
	if err != nil {
		t.Fatalf("buildSources: %v", err)
	}
	if len(sources) != 2 || sources[0].Source() != model.SourceLinkedIn || sources[1].Source() != model.SourceSeek {
		t.Fatalf("sources = %v", sources)
	}

	cfg.Sources[1].Proxies = []string{"::not a proxy"}
	if _, err := buildSources(cfg, discardLogger()); err == nil {
		t.Error("expected error for a malformed proxy")
	}
}

func TestSetupCollaborators_DisabledWithoutCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.AI.Enabled = false
	cfg.Rating.Enabled = false
	cfg.Notification.Type = "none"

	m := setupMatcher(cfg, discardLogger())
	res, err := m.Match(t.Context(), model.Job{Title: "x"}, "resume")
	if err != nil || res.Score != 0 {
		t.Errorf("disabled matcher = %+v, %v", res, err)
	}

	r := setupRater(cfg, store.NewNopStore(), discardLogger())
	if rating, err := r.Rate(t.Context(), "Acme", ""); err != nil || rating != 0 {
		t.Errorf("disabled rater = %v, %v", rating, err)
	}
	if n := setupNotifier(cfg, discardLogger()); n != nil {
		t.Errorf("notifier = %T, want nil", n)
	}
}

func TestBuildFilters(t *testing.T) {
	cfg := config.Default()
	if f := buildFilters(cfg); f != nil {
		t.Errorf("expected no filters by default, got %d", len(f))
	}
	cfg.Filters.ExcludeCompanies = []string{"hays"}
	f := buildFilters(cfg)
	if len(f) != 1 || f[0].Match(model.Job{Title: "Engineer", Company: "Hays Recruitment"}) {
		t.Error("expected the company exclusion to apply")
	}
}
