package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var duration float64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "upload <clip>",
		Short: "Upload a clip to clipperd and print its share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := ctx.configAndClient()
			if err != nil {
				return err
			}
			path := args[0]
			if duration <= 0 {
				clip, err := readClip(cmd.Context(), cfg.Transcode.FFprobeBinary, path, ctx.loggerFor(cfg))
				if err != nil {
					return err
				}
				duration = clip.Duration
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read clip: %w", err)
			}

			resp, err := client.Upload(cmd.Context(), filepath.Base(path), mimeTypeForPath(path), data, duration)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploaded %s as video %d\n", filepath.Base(path), resp.VideoID)
			fmt.Fprintf(out, "Share link: %s\n", resp.ShareURL)
			return nil
		},
	}

	cmd.Flags().Float64Var(&duration, "duration", 0, "Clip duration in seconds (default: probed with ffprobe)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the upload response as JSON")
	return cmd
}
