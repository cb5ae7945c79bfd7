package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/aelexs/timetuner/internal/auth"
	"github.com/aelexs/timetuner/internal/domain"
	"github.com/aelexs/timetuner/internal/errmap"
	"github.com/aelexs/timetuner/pkg/protocol"
)

type rootFlags struct {
	server  string
	token   string
	lang    string
	timeout time.Duration
	json    bool
}

func (f *rootFlags) client() *client {
	return newClient(f.server, f.token, f.lang, f.timeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	var f rootFlags

	root := &cobra.Command{
		Use:           "timetunerctl",
		Short:         "Operate a timetuner service",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&f.server, "server", envOr("TIMETUNER_SERVER", "http://localhost:8080"), "Admin API base URL")
	root.PersistentFlags().StringVar(&f.token, "token", os.Getenv("TIMETUNER_TOKEN"), "Operator bearer token")
	root.PersistentFlags().StringVar(&f.lang, "lang", os.Getenv("TIMETUNER_LANG"), "Preferred message language (e.g. fr)")
	root.PersistentFlags().DurationVar(&f.timeout, "timeout", 10*time.Second, "Request timeout")
	root.PersistentFlags().BoolVar(&f.json, "json", false, "Print raw JSON responses")

	root.AddCommand(
		statusCmd(&f),
		zonesCmd(&f),
		commandCmd(&f, "pause", "Pause time in a zone, or all zones", "pause"),
		commandCmd(&f, "resume", "Resume time in a zone, or all zones", "resume"),
		commandCmd(&f, "skip", "Skip to day in a zone, or all zones", "skip"),
		speedCmd(&f),
		zoneSpeedCmd(&f),
		reloadCmd(&f),
		tokenCmd(),
		healthCmd(&f),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printZones(w io.Writer, zones []protocol.ZoneStatus) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tPHASE\tTIME\tDAY\tNIGHT\tSLEEPING")
	for _, z := range zones {
		day, night := formatSpeed(z.DaySpeed), formatSpeed(z.NightSpeed)
		if z.Override {
			day, night = day+"*", night+"*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%d/%d\n",
			z.Name, z.State, z.Phase, z.RawTime, day, night, z.Votes, z.Eligible)
	}
	return tw.Flush()
}

func formatSpeed(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func statusCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show global settings and every managed zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st protocol.Status
			if err := f.client().do(cmd.Context(), http.MethodGet, "/v1/status", nil, &st); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if f.json {
				return printJSON(out, st)
			}
			fmt.Fprintf(out, "speeds: day %s, night %s\n", formatSpeed(st.DaySpeed), formatSpeed(st.NightSpeed))
			fmt.Fprintf(out, "sleep skip: %t, tick frequency: %d, auto-pause empty: %t\n\n",
				st.AllowSleepSkip, st.TickFrequency, st.AutoPauseEmpty)
			return printZones(out, st.Zones)
		},
	}
}

func zonesCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "zones [zone]",
		Aliases: []string{"worlds", "ls"},
		Short:   "List managed zones, or show one",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			c := f.client()
			if len(args) == 1 {
				var z protocol.ZoneStatus
				if err := c.do(cmd.Context(), http.MethodGet, "/v1/zones/"+url.PathEscape(args[0]), nil, &z); err != nil {
					return err
				}
				if f.json {
					return printJSON(out, z)
				}
				return printZones(out, []protocol.ZoneStatus{z})
			}
			var list protocol.ZoneList
			if err := c.do(cmd.Context(), http.MethodGet, "/v1/zones", nil, &list); err != nil {
				return err
			}
			if f.json {
				return printJSON(out, list)
			}
			return printZones(out, list.Zones)
		},
	}
}

// commandCmd builds pause, resume and skip. The zone defaults to all.
func commandCmd(f *rootFlags, use, short, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [zone|all]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zone := protocol.AllZones
			if len(args) == 1 {
				zone = args[0]
			}
			var resp protocol.CommandResponse
			path := "/v1/zones/" + url.PathEscape(zone) + "/" + action
			if err := f.client().do(cmd.Context(), http.MethodPost, path, nil, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if f.json {
				return printJSON(out, resp)
			}
			fmt.Fprintln(out, resp.Message)
			for _, r := range resp.Results {
				mark := "unchanged"
				if r.Changed {
					mark = "ok"
				}
				fmt.Fprintf(out, "  %s: %s\n", r.Name, mark)
			}
			return nil
		},
	}
}

func parseSpeeds(dayArg, nightArg string) (protocol.SpeedRequest, error) {
	day, err := strconv.ParseFloat(dayArg, 64)
	if err != nil {
		return protocol.SpeedRequest{}, fmt.Errorf("day speed %q: %w", dayArg, domain.ErrInvalidInput)
	}
	night, err := strconv.ParseFloat(nightArg, 64)
	if err != nil {
		return protocol.SpeedRequest{}, fmt.Errorf("night speed %q: %w", nightArg, domain.ErrInvalidInput)
	}
	return protocol.SpeedRequest{Day: &day, Night: &night}, nil
}

func sendSpeeds(cmd *cobra.Command, f *rootFlags, path string, req protocol.SpeedRequest) error {
	var resp protocol.SpeedResponse
	if err := f.client().do(cmd.Context(), http.MethodPut, path, req, &resp); err != nil {
		return err
	}
	if f.json {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
	return nil
}

func speedCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "speed <day> <night>",
		Short: "Set the default day and night speeds",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseSpeeds(args[0], args[1])
			if err != nil {
				return err
			}
			return sendSpeeds(cmd, f, "/v1/speeds", req)
		},
	}
}

func zoneSpeedCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "zone-speed <zone> <day> <night>",
		Aliases: []string{"worldspeed"},
		Short:   "Override the speeds of one zone",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseSpeeds(args[1], args[2])
			if err != nil {
				return err
			}
			return sendSpeeds(cmd, f, "/v1/zones/"+url.PathEscape(args[0])+"/speeds", req)
		},
	}
}

func reloadCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Re-read the service configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp protocol.ReloadResponse
			if err := f.client().do(cmd.Context(), http.MethodPost, "/v1/reload", nil, &resp); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if f.json {
				return printJSON(out, resp)
			}
			fmt.Fprintln(out, resp.Message)
			for id, reason := range resp.Failed {
				fmt.Fprintf(out, "  failed %s: %s\n", id, reason)
			}
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		secret  string
		issuer  string
		subject string
		perms   []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token signed with the admin secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, p := range perms {
				if p != auth.PermAll && !isPermission(p) {
					return fmt.Errorf("unknown permission %q: %w", p, domain.ErrInvalidInput)
				}
			}
			res, err := auth.NewMinter(auth.MinterConfig{
				Secret: domain.SecretString(secret),
				Issuer: issuer,
			}).Mint(subject, perms, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", res.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("TIMETUNER_ADMIN__SECRET"), "HS256 admin secret")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("TIMETUNER_ADMIN__ISSUER", "timetuner"), "Token issuer")
	cmd.Flags().StringVar(&subject, "subject", envOr("USER", "operator"), "Operator name")
	cmd.Flags().StringSliceVar(&perms, "perm", []string{auth.PermAll}, "Granted permission (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func isPermission(p string) bool {
	return slices.Contains(auth.AllPermissions, p)
}

func healthCmd(f *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
			defer cancel()

			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("dial %s: %w", addr, err)
			}
			defer conn.Close()

			resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: "timetuner"})
			if err != nil {
				return fmt.Errorf("health check failed (%s): %w", errmap.FromGRPCError(err), err)
			}
			status := strings.ToLower(resp.GetStatus().String())
			fmt.Fprintln(cmd.OutOrStdout(), status)
			if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("service is %s: %w", status, domain.ErrUnavailable)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "grpc", envOr("TIMETUNER_GRPC", "localhost:9090"), "gRPC address")
	return cmd
}
