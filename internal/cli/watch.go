package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/realtime"
)

func (a *app) watchCmd() *cobra.Command {
	var (
		server   string
		token    string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow an owner's search areas live",
		Long: `Connect to the realtime endpoint and print the owner's search areas
whenever they change. A periodic full fetch corrects anything the event
stream missed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return errors.New("--token is required")
			}
			wsURL, err := websocketURL(server, token)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			replica := realtime.NewReplica()
			fetch := realtime.HTTPFetcher(&http.Client{Timeout: 10 * time.Second}, strings.TrimRight(server, "/"), token)
			client := realtime.NewClient(wsURL, nil, replica, realtime.NewPoller(replica, fetch, interval))

			out := cmd.OutOrStdout()
			client.OnChange = func(r *realtime.Replica) {
				fmt.Fprintf(out, "%s  %d areas\n", time.Now().Format("15:04:05"), r.Len())
				for _, sa := range r.Areas() {
					fmt.Fprintf(out, "  week %d gen %d  %.2f km  (%.5f, %.5f)\n",
						sa.WeekID, sa.GenerationIndex, sa.RadiusKm, sa.CenterLat, sa.CenterLng)
				}
			}

			if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:"+a.cfg.Port, "API base URL")
	cmd.Flags().StringVar(&token, "token", "", "access token")
	cmd.Flags().DurationVar(&interval, "interval", a.cfg.PollInterval, "full re-fetch interval")
	return cmd
}

// websocketURL maps http(s)://host to ws(s)://host/ws?token=...
func websocketURL(server, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}
