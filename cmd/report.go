package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/tracelens/trace-console/internal/bus"
	"github.com/tracelens/trace-console/internal/report"
	"github.com/tracelens/trace-console/internal/session"
	"github.com/tracelens/trace-console/internal/store"
	"github.com/tracelens/trace-console/internal/timeline"
	"github.com/tracelens/trace-console/internal/view"
)

var (
	reportCase         string
	reportInvestigator string
	reportRemark       string
	reportJSON         bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Create, find, and list case report snapshots",
}

var reportCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a report snapshot for the current artifacts",
	Long: `Load artifacts, compute the aggregate statistics, and save a report
snapshot under the given case number. Each case number can hold at most one
report; a second create for the same case number fails.

Examples:
  trace-console report create --case CASE-2024-001 --investigator "J. Doe" --remark "Initial triage"`,
	RunE: runReportCreate,
}

var reportFindCmd = &cobra.Command{
	Use:   "find <case-number>",
	Short: "Find the report snapshot for a case number",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportFind,
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved report snapshots, newest first",
	RunE:  runReportList,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportCreateCmd)
	reportCmd.AddCommand(reportFindCmd)
	reportCmd.AddCommand(reportListCmd)

	reportCreateCmd.Flags().StringVar(&reportCase, "case", "", "Case number (required, unique)")
	reportCreateCmd.Flags().StringVar(&reportInvestigator, "investigator", "", "Investigator name")
	reportCreateCmd.Flags().StringVar(&reportRemark, "remark", "", "Report remark (required)")
	reportCreateCmd.MarkFlagRequired("case")
	reportCreateCmd.MarkFlagRequired("remark")

	reportCmd.PersistentFlags().BoolVar(&reportJSON, "json", false, "Emit JSON instead of the print layout")
}

func runReportCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()
	logger := log.New(cmd.ErrOrStderr(), "[report] ", log.LstdFlags)

	st, err := store.NewStore(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	eventBus := bus.NewBus(config.Redis.URL, logger)
	defer eventBus.Close()

	g := timeline.ParseGranularity(config.Timeline.Granularity)

	source, _, err := newSource(config, logger)
	if err != nil {
		return err
	}
	sess := session.New(source, eventBus, g, logger)
	if err := sess.Load(ctx); err != nil {
		return fmt.Errorf("failed to load artifacts: %w", err)
	}
	artifacts, err := sess.Store()
	if err != nil {
		return err
	}

	synth := report.NewSynthesizer(st, eventBus, logger)
	meta := report.Meta{
		CaseNumber:   reportCase,
		Investigator: reportInvestigator,
		Remark:       reportRemark,
	}
	snap, err := synth.CreateSnapshot(ctx, meta, artifacts)
	if err != nil {
		if errors.Is(err, report.ErrDuplicateCase) {
			return fmt.Errorf("case %s already has a report; each case number holds exactly one", reportCase)
		}
		return fmt.Errorf("failed to create report: %w", err)
	}

	logger.Printf("Report saved for case %s (snapshot %s)", snap.CaseNumber, snap.ID)
	return printSnapshot(cmd, snap)
}

func runReportFind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()
	logger := log.New(io.Discard, "", 0)

	st, err := store.NewStore(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	synth := report.NewSynthesizer(st, bus.NewNullBus(logger), logger)
	snap, err := synth.FindSnapshot(ctx, args[0])
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			return fmt.Errorf("no report found for case %s", args[0])
		}
		return fmt.Errorf("lookup failed: %w", err)
	}
	return printSnapshot(cmd, snap)
}

func runReportList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()
	logger := log.New(io.Discard, "", 0)

	st, err := store.NewStore(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	synth := report.NewSynthesizer(st, bus.NewNullBus(logger), logger)
	snaps, err := synth.ListSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if reportJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snaps)
	}

	if len(snaps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No reports saved.")
		return nil
	}
	for _, snap := range snaps {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n",
			snap.CaseNumber,
			snap.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			snap.Investigator,
			snap.Remark)
	}
	return nil
}

func printSnapshot(cmd *cobra.Command, snap *report.Snapshot) error {
	if reportJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	_, err := cmd.OutOrStdout().Write(view.RenderSnapshot(snap))
	return err
}
