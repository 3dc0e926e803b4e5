package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"smartfarm-dataset/internal/export"
)

// newRootCmd builds the command tree. open is called once, before the
// subcommand runs; the returned cleanup releases whatever it opened.
func newRootCmd(open func(ctx context.Context) (*app, error)) (*cobra.Command, func()) {
	var a *app

	root := &cobra.Command{
		Use:          "dataset",
		Short:        "Browse and export smart-farm capture datasets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = open(cmd.Context())
			return err
		},
	}
	cleanup := func() {
		if a != nil && a.close != nil {
			a.close()
		}
	}

	current := func() *app { return a }
	root.AddCommand(
		newDatesCmd(current),
		newSummariesCmd(current),
		newSampleCmd(current),
		newTrendsCmd(current),
		newExportCmd(current),
	)
	return root, cleanup
}

func newDatesCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "List capture dates found under snapshots/ or sensor_logs/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := current().datasets.ListDates(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range dates {
				fmt.Fprintln(out, d)
			}
			return nil
		},
	}
}

func newSummariesCmd(current func() *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "summaries",
		Short: "List capture summaries, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := current().datasets.ListSummaries(cmd.Context(), date)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIMESTAMP\tCAMERAS\tSENSORS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp, strings.Join(e.Cameras, ","), yesNo(e.HasSensorData))
			}
			fmt.Fprintf(tw, "\n%s captures\n", humanize.Comma(int64(len(entries))))
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "only captures on this day (YYYY-MM-DD)")
	return cmd
}

func newSampleCmd(current func() *app) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Show one assembled sample; index 0 is the newest capture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := current().datasets.GetSample(cmd.Context(), index)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "timestamp: %s\n", sample.Timestamp)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CAMERA\tFRAME")
			for _, camera := range sample.Cameras {
				img := sample.Image(camera)
				if img == nil {
					fmt.Fprintf(tw, "%s\tmissing\n", camera)
					continue
				}
				b := img.Image.Bounds()
				fmt.Fprintf(tw, "%s\t%dx%d %s\n", camera, b.Dx(), b.Dy(), img.Format)
			}
			if sample.SensorData != nil {
				fmt.Fprintln(tw, "\nCHANNEL\tVALUE")
				for _, ch := range sample.SensorData.Devices.Channels() {
					fmt.Fprintf(tw, "%s\t%s\n", ch.Column(), strings.TrimSpace(ch.Reading.Cell()+" "+ch.Reading.Unit))
				}
			} else {
				fmt.Fprintln(tw, "\nno sensor data")
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "sample index, newest first")
	return cmd
}

func newTrendsCmd(current func() *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Per-channel statistics for one day of sensor logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			trends, err := current().datasets.DailyTrends(cmd.Context(), date)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "%s: %s rows\n\n", trends.Date, humanize.Comma(int64(trends.Rows)))
			fmt.Fprintln(tw, "CHANNEL\tCOUNT\tMIN\tMAX\tMEAN")
			for _, ch := range trends.Channels {
				if ch.Count == 0 {
					fmt.Fprintf(tw, "%s\t0\t-\t-\t-\n", ch.Column)
					continue
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", ch.Column, ch.Count,
					formatFloat(ch.Min), formatFloat(ch.Max), formatFloat(ch.Mean))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to analyze (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newExportCmd(current func() *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every capture as images plus metadata.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := current().exports.Run(cmd.Context(), out)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "run %s %s\n", run.ID, run.Status)
			fmt.Fprintf(w, "output: %s\n", run.OutputDir)
			fmt.Fprintf(w, "samples: %s\n", humanize.Comma(int64(run.Samples)))
			fmt.Fprintf(w, "images: %d copied, %d missing, %d failed\n", run.ImagesCopied, run.ImagesMissing, run.ImagesFailed)
			fmt.Fprintf(w, "written: %s", humanize.Bytes(uint64(run.BytesWritten)))
			if run.FinishedAt != nil {
				fmt.Fprintf(w, " in %s", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
			}
			fmt.Fprintln(w)
			return printDescriptor(w, run.OutputDir)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output directory (default EXPORT_DIR/<run id>)")
	return cmd
}

// printDescriptor lists per-camera coverage from the run's dataset.yaml.
// Runs that wrote no descriptor print nothing.
func printDescriptor(w io.Writer, outputDir string) error {
	f, err := os.Open(filepath.Join(outputDir, export.DescriptorFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open descriptor: %w", err)
	}
	defer f.Close()

	desc, err := export.ReadDescriptor(f)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\n%d columns, %d sensor channels, jpeg quality %d\n\n", len(desc.Columns), len(desc.Sensors), desc.Options.JPEGQuality)
	fmt.Fprintln(tw, "CAMERA\tEXPORTED\tMISSING\tCOVERAGE")
	for _, c := range desc.Cameras {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s%%\n", c.Name, c.Exported, c.Missing, humanize.FtoaWithDigits(c.Coverage(), 1))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
