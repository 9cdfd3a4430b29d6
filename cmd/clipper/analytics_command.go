package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"clipper/internal/analytics"
	"clipper/internal/api"
)

func newAnalyticsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analytics <video-id>",
		Short: "Show views, completion and milestone reach for a clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			_, client, err := ctx.configAndClient()
			if err != nil {
				return err
			}
			stats, err := client.Analytics(cmd.Context(), id)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			lastViewed := ""
			if stats.LastViewed != nil {
				lastViewed = *stats.LastViewed
			}
			fmt.Fprintf(out, "Video %d\n", stats.VideoID)
			fmt.Fprintf(out, "  Views:          %d\n", stats.Views)
			fmt.Fprintf(out, "  Watch events:   %d\n", len(stats.WatchEvents))
			fmt.Fprintf(out, "  Avg completion: %.2f%%\n", stats.AvgCompletion)
			fmt.Fprintf(out, "  Last viewed:    %s\n", formatTimestamp(lastViewed))
			if rows := milestoneRows(stats); len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Milestone", "Events"}, rows, 1, 2))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print analytics as JSON")
	return cmd
}

// milestoneRows counts watch events per 10% milestone, lowest first.
func milestoneRows(stats *api.Analytics) [][]string {
	counts := make(map[int]int)
	for _, ev := range stats.WatchEvents {
		counts[analytics.Milestone(ev.Percentage)]++
	}
	milestones := make([]int, 0, len(counts))
	for m := range counts {
		milestones = append(milestones, m)
	}
	sort.Ints(milestones)
	rows := make([][]string, 0, len(milestones))
	for _, m := range milestones {
		rows = append(rows, []string{strconv.Itoa(m) + "%", strconv.Itoa(counts[m])})
	}
	return rows
}
