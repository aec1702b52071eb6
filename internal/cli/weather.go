// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/agrichat/internal/weather"
)

// probeTimeout bounds each status probe.
const probeTimeout = 5 * time.Second

func (c *command) newWeatherCommand() *cobra.Command {
	var lat, lon float64
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Show the current weather",
		Long: "Show the current weather for the granted location. Without a " +
			"granted location the configured fallback coordinates are used, or " +
			"--lat and --lon when given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			useLat, useLon, _ := c.app.Coordinates()
			if cmd.Flags().Changed("lat") {
				useLat = lat
			}
			if cmd.Flags().Changed("lon") {
				useLon = lon
			}

			cur, err := c.app.Weather.Current(cmd.Context(), useLat, useLon)
			if err != nil {
				return NewCommandError("weather", "fetch", "weather unavailable", err)
			}
			return c.emit(cmd, cur, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%.4f, %.4f)\n", cur.String(), cur.Latitude, cur.Longitude)
			})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	return cmd
}

// =============================================================================
// STATUS
// =============================================================================

type probe struct {
	Name    string `json:"name"`
	Target  string `json:"target"`
	OK      bool   `json:"ok"`
	Latency string `json:"latency"`
	Detail  string `json:"detail,omitempty"`
}

type statusReport struct {
	Version  string  `json:"version"`
	SignedIn bool    `json:"signed_in"`
	Storage  string  `json:"storage"`
	Faults   int64   `json:"storage_faults"`
	Chats    int     `json:"conversations"`
	Probes   []probe `json:"probes"`
}

func (c *command) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the backend and the weather service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := statusReport{
				Version:  Version,
				SignedIn: c.app.Session.SignedIn(),
				Storage:  c.app.Config.Storage.Backend,
				Faults:   c.app.StorageFaults(),
				Chats:    len(c.app.Store.Summaries()),
				Probes:   c.runProbes(cmd.Context()),
			}
			return c.emit(cmd, report, func(w io.Writer) {
				fmt.Fprintln(w, TitleStyle.Render("agrichat "+report.Version))
				fmt.Fprintln(w, RenderLabel("Signed in")+ValueStyle.Render(fmt.Sprint(report.SignedIn)))
				backend := ValueStyle.Render(report.Storage)
				if report.Faults > 0 {
					backend += "  " + WarningStyle.Render(fmt.Sprintf("%d faults, see log", report.Faults))
				}
				fmt.Fprintln(w, RenderLabel("Storage")+backend)
				fmt.Fprintln(w, RenderLabel("Conversations")+ValueStyle.Render(fmt.Sprint(report.Chats)))
				fmt.Fprintln(w, RenderSeparator(60))
				for _, p := range report.Probes {
					status := "ok"
					if !p.OK {
						status = "fail"
					}
					line := fmt.Sprintf("%s %s  %s  %s", RenderStatus(status), RenderLabel(p.Name), p.Target, DimStyle.Render(p.Latency))
					if p.Detail != "" {
						line += "  " + DimStyle.Render(p.Detail)
					}
					fmt.Fprintln(w, line)
				}
			})
		},
	}
}

// runProbes checks the backend and the weather service concurrently. A
// failing probe is reported, never returned as an error.
func (c *command) runProbes(ctx context.Context) []probe {
	probes := make([]probe, 2)
	lat, lon, _ := c.app.Coordinates()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		probes[0] = timeProbe(ctx, "Backend", c.app.Gateway.BaseURL(), c.app.Gateway.Ping)
		return nil
	})
	g.Go(func() error {
		probes[1] = timeProbe(ctx, "Weather", c.app.Config.Weather.BaseURL, func(ctx context.Context) error {
			_, err := c.app.Weather.Current(ctx, lat, lon)
			return err
		})
		return nil
	})
	_ = g.Wait()
	return probes
}

func timeProbe(ctx context.Context, name, target string, check func(context.Context) error) probe {
	if target == "" {
		target = weather.DefaultBaseURL
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)
	p := probe{
		Name:    name,
		Target:  target,
		OK:      err == nil,
		Latency: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		p.Detail = err.Error()
	}
	return p
}
