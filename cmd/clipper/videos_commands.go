package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipper/internal/api"
	"clipper/internal/capture"
)

func newVideosCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List uploaded clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := ctx.configAndClient()
			if err != nil {
				return err
			}
			videos, err := client.Videos(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.VideoList{Videos: videos})
			}
			out := cmd.OutOrStdout()
			if len(videos) == 0 {
				fmt.Fprintln(out, "No clips uploaded yet")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Duration", "Size", "Uploaded", "Share link"},
				videoRows(videos),
				1, 3, 4,
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print clips as JSON")

	cmd.AddCommand(newVideoShowCommand(ctx))
	cmd.AddCommand(newVideoDeleteCommand(ctx))
	return cmd
}

func videoRows(videos []api.Video) [][]string {
	rows := make([][]string, 0, len(videos))
	for _, v := range videos {
		rows = append(rows, []string{
			strconv.FormatInt(v.ID, 10),
			v.Title,
			videoDuration(v),
			formatBytes(v.Size),
			formatTimestamp(v.CreatedAt),
			v.ShareURL,
		})
	}
	return rows
}

func videoDuration(v api.Video) string {
	if v.Duration == nil {
		return "-"
	}
	return capture.FormatDuration(*v.Duration)
}

func newVideoShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <share-token>",
		Short: "Show one clip by share token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := ctx.configAndClient()
			if err != nil {
				return err
			}
			video, err := client.VideoByToken(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, video)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (video %d)\n", video.Title, video.ID)
			fmt.Fprintf(out, "  File:       %s\n", video.Filename)
			fmt.Fprintf(out, "  Original:   %s\n", video.OriginalFilename)
			fmt.Fprintf(out, "  Type:       %s\n", video.MIMEType)
			fmt.Fprintf(out, "  Duration:   %s\n", videoDuration(*video))
			fmt.Fprintf(out, "  Size:       %s\n", formatBytes(video.Size))
			fmt.Fprintf(out, "  Uploaded:   %s\n", formatTimestamp(video.CreatedAt))
			fmt.Fprintf(out, "  Share link: %s\n", video.ShareURL)
			if video.VideoURL != "" {
				fmt.Fprintf(out, "  Stream:     %s\n", video.VideoURL)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the clip as JSON")
	return cmd
}

func newVideoDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <video-id>",
		Short: "Delete a clip, its stored file and its analytics",
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
			if err := client.DeleteVideo(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted video %d\n", id)
			return nil
		},
	}
}

func parseVideoID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid video id %q", value)
	}
	return id, nil
}
