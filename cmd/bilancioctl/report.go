package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bilancio/internal/charts"
)

func reportCmd(opts *rootOptions) *cobra.Command {
	var chartPath string

	cmd := &cobra.Command{
		Use:   "report <year> <month>",
		Short: "Print the report of a month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}
			month, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid month %q", args[1])
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			report, err := a.reports.MonthReport(cmd.Context(), year, month)
			if err != nil {
				return fmt.Errorf("build report: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Report %s\n\n", report.Key())
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tDESCRIPTION\tCATEGORY\tAMOUNT")
			for _, e := range report.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%s / %s\t%s\n", e.Date, e.Description, e.Primary, e.Secondary, e.Amount)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nExpenses %s  Revenues %s  Balance %s\n", report.Expenses, report.Revenues, report.Balance)

			if chartPath == "" {
				return nil
			}
			png, err := charts.MonthBarChart(report)
			if errors.Is(err, charts.ErrNoData) {
				fmt.Fprintln(out, "nothing to chart")
				return nil
			}
			if err != nil {
				return fmt.Errorf("render chart: %w", err)
			}
			if err := os.WriteFile(chartPath, png, 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintf(out, "chart written to %s\n", chartPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&chartPath, "chart", "", "write a PNG bar chart to this path")
	return cmd
}
