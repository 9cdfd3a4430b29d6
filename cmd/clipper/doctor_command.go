package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"clipper/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var checkDaemon bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, ffmpeg and (optionally) clipperd",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if ctx.serverFlag != nil && *ctx.serverFlag != "" {
				cfg.Analytics.Endpoint = ctx.serverURL(cfg)
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Daemon: checkDaemon})

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, r := range results {
				kind := statusOK
				switch {
				case !r.Passed && r.Optional:
					kind = statusWarn
				case !r.Passed:
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if preflight.Failed(results) {
				return errors.New("one or more required checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkDaemon, "daemon", false, "Also check that clipperd is reachable")
	return cmd
}
