package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobmatch/internal/browse"
	"github.com/amishk599/jobmatch/internal/rank"
	"github.com/amishk599/jobmatch/internal/resume"
)

var browseResume string

var browseCmd = &cobra.Command{
	Use:   "browse [results.csv | dir]...",
	Short: "Browse ranked results interactively (TUI)",
	Long: "Opens the split-pane results view over one or more results files. " +
		"With several files a picker is shown first. Defaults to search.output.",
	RunE: runBrowseCmd,
}

func init() {
	browseCmd.Flags().StringVarP(&browseResume, "resume", "r", "", "resume file for on-demand re-scoring (default: search.resume)")
	rootCmd.AddCommand(browseCmd)
}

func runBrowseCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{cfg.Search.Output}
	}
	files, err := browse.Discover(paths)
	if err != nil {
		logger.Error("no results to browse", "error", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("No results files found.")
		return nil
	}

	resumePath := cfg.Search.Resume
	if cmd.Flags().Changed("resume") {
		resumePath = browseResume
	}

	// Log output before the alt-screen starts corrupts the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	matcher := setupMatcher(cfg, silentLogger)

	var resumeText string
	if resumePath != "" {
		err := browse.RunLoader("Reading resume", func(ctx context.Context) error {
			resumeText = resume.NewExtractor(silentLogger).Extract(ctx, resumePath)
			return nil
		})
		if err != nil {
			return nil
		}
	}

	for {
		choice := 0
		if len(files) > 1 {
			choice, err = browse.RunPicker(files)
			if err != nil {
				fmt.Printf("Picker error: %v\n", err)
				return nil
			}
			if choice < 0 {
				return nil
			}
		}

		entries, err := rank.Load(files[choice].Path)
		if err != nil {
			fmt.Printf("Error loading %s: %v\n", files[choice].Path, err)
			if len(files) == 1 {
				return nil
			}
			continue
		}

		wantQuit, err := browse.Run(entries, matcher, resumeText)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit || len(files) == 1 {
			return nil
		}
		// else: loop → back to picker
	}
}
