package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deusflow/curator/internal/app"
	"github.com/deusflow/curator/internal/archive"
	"github.com/deusflow/curator/internal/issues"
	"github.com/deusflow/curator/internal/report"
)

var (
	bold   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, deduplicate, enrich, archive and open issues",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMonitor(cmd.Context(), func(ctx context.Context) error {
				a, closeFn, err := app.Build(ctx, cfg, app.ModeRun, logr, stats)
				if err != nil {
					return err
				}
				defer closeFn()
				rep, err := a.Run(ctx)
				printPipeline(rep)
				return err
			})
		},
	}
	cmd.Flags().String("report", "", "write the run summary markdown to this file")
	_ = v.BindPFlag("paths.report", cmd.Flags().Lookup("report"))
	return cmd
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Rank current articles and write the monthly situational analysis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, closeFn, err := app.Build(cmd.Context(), cfg, app.ModeAnalyze, logr, stats)
			if err != nil {
				return err
			}
			defer closeFn()
			res, err := a.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("\n%s\n", bold("=== Situational Analysis ==="))
			fmt.Printf("  Ranked items: %d\n", len(res.Ranked))
			fmt.Printf("  Analysis:     %s\n", green(res.AnalysisPath))
			fmt.Printf("  Summary:      %s\n\n", green(res.SummaryPath))
			return nil
		},
	}
}

func issuesCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Open issues for an archived month",
		Long:  "Open grouped issues for the high-priority items of an archived month. Defaults to the previous month.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if month == "" {
				month = archive.PreviousMonth(time.Now())
			}
			return withMonitor(cmd.Context(), func(ctx context.Context) error {
				a, closeFn, err := app.Build(ctx, cfg, app.ModeIssues, logr, stats)
				if err != nil {
					return err
				}
				defer closeFn()
				rep, err := a.IssuesFromArchive(ctx, month)
				printIssues(month, rep)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "archive month to read (YYYY-MM)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "curator %s\n", version)
		},
	}
}

func printPipeline(rep report.Pipeline) {
	fmt.Printf("\n%s\n", bold("=== Pipeline Summary ==="))
	fmt.Printf("  Run:        %s (%s)\n", rep.RunID, rep.Duration.Round(time.Millisecond))
	fmt.Printf("  Fetched:    %d\n", rep.Fetched)
	fmt.Printf("  Processed:  %d\n", rep.Processed)
	fmt.Printf("  Duplicates: %s\n", yellow(rep.Duplicates))
	fmt.Printf("  Groups:     %d\n", rep.Groups)
	fmt.Printf("  Created:    %s\n", green(rep.Created))
	fmt.Printf("  Covered:    %d\n", rep.Skipped)
	errs := fmt.Sprint(rep.Errors)
	if rep.Errors > 0 {
		errs = red(errs)
	}
	fmt.Printf("  Errors:     %s\n\n", errs)
}

func printIssues(month string, rep issues.Report) {
	fmt.Printf("\n%s\n", bold("=== Issues for "+month+" ==="))
	fmt.Printf("  Candidates: %d\n", rep.Candidates)
	fmt.Printf("  Groups:     %d\n", rep.Groups)
	fmt.Printf("  Created:    %s\n", green(rep.Created))
	fmt.Printf("  Covered:    %d\n", rep.Skipped)
	if rep.Failed > 0 {
		fmt.Printf("  Failed:     %s\n", red(rep.Failed))
	}
	fmt.Println()
}
