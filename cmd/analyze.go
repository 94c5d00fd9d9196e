package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tracelens/trace-console/internal/bus"
	"github.com/tracelens/trace-console/internal/session"
	"github.com/tracelens/trace-console/internal/timeline"
)

var (
	analyzeJSON   bool
	analyzeOutDir string
)

// analyzeCmd runs one offline correlation and timeline pass and prints the
// results, without starting the server or dashboard.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a one-shot correlation and timeline analysis",
	Long: `Load artifacts once, correlate them by normalized phone number, aggregate
the timeline, and print both result documents to stdout.

Examples:
  # Analyze a dump folder
  trace-console analyze --artifact-dir ./data/artifacts

  # Emit JSON instead of the print layout
  trace-console analyze --json

  # Also write the documents to files
  trace-console analyze --out ./exports`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Emit JSON instead of the print layout")
	analyzeCmd.Flags().StringVar(&analyzeOutDir, "out", "", "Directory to write exported documents into (optional)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()
	logger := log.New(cmd.ErrOrStderr(), "[analyze] ", log.LstdFlags)

	g := timeline.ParseGranularity(config.Timeline.Granularity)

	source, _, err := newSource(config, logger)
	if err != nil {
		return err
	}

	sess := session.New(source, bus.NewNullBus(log.New(io.Discard, "", 0)), g, logger)
	if err := sess.Load(ctx); err != nil {
		return fmt.Errorf("failed to load artifacts: %w", err)
	}

	st, err := sess.Store()
	if err != nil {
		return err
	}
	summary := st.Summary
	logger.Printf("Loaded %d messages, %d calls, %d contacts (%d dropped, %d invalid timestamps)",
		len(st.Messages), len(st.Calls), len(st.Contacts), summary.Dropped(), summary.InvalidTimestamps)

	if analyzeJSON {
		records, err := sess.Correlation()
		if err != nil {
			return err
		}
		tl, err := sess.Timeline()
		if err != nil {
			return err
		}
		out := map[string]interface{}{
			"correlation": records,
			"timeline":    tl,
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	corrDoc, err := sess.ExportCorrelation()
	if err != nil {
		return err
	}
	tlDoc, err := sess.ExportTimeline()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(corrDoc))
	fmt.Fprintln(cmd.OutOrStdout(), string(tlDoc))

	if analyzeOutDir != "" {
		if err := os.MkdirAll(analyzeOutDir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
		corrPath := filepath.Join(analyzeOutDir, "data-correlation.txt")
		if err := os.WriteFile(corrPath, corrDoc, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", corrPath, err)
		}
		tlPath := filepath.Join(analyzeOutDir, "timeline-analysis.txt")
		if err := os.WriteFile(tlPath, tlDoc, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", tlPath, err)
		}
		logger.Printf("Wrote %s and %s", corrPath, tlPath)
	}

	return nil
}
