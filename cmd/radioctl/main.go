// Radioctl is the command-line surface for the companion: station status and
// push subscription management. Set SERVER_URL (or put it in .env).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"family-radio/companion/internal/config"
	"family-radio/companion/internal/db"
	"family-radio/companion/internal/db/migrate"
	pushclient "family-radio/companion/internal/push/client"
	"family-radio/companion/internal/push/domain"
	"family-radio/companion/internal/push/platform"
	push "family-radio/companion/internal/push/service"
	stationclient "family-radio/companion/internal/station/client"
)

func main() {
	root := &cobra.Command{
		Use:           "radioctl",
		Short:         "Family radio companion control",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(statusCmd(), pushCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "radioctl:", err)
		os.Exit(1)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the station's current status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			st, err := stationclient.New(cfg.ServerURL).Status(ctx)
			if err != nil {
				return err
			}
			fmt.Println("station:", st.StationName)
			if text := st.NowPlaying.Text(); text != "" {
				fmt.Println("now playing:", text)
			}
			if st.PublicStreamURL != "" {
				fmt.Println("stream:", st.PublicStreamURL)
			}
			return nil
		},
	}
}

func pushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Manage the track notification subscription",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "subscribe",
			Short: "Enable track notifications",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withManager(cmd.Context(), func(ctx context.Context, m *push.Manager) error {
					// Bounded: Ready blocks until the worker has registered.
					ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
					defer cancel()
					sub, err := m.Subscribe(ctx)
					if err != nil {
						if ctx.Err() != nil {
							return fmt.Errorf("%w (is the worker running?)", err)
						}
						return err
					}
					fmt.Println("subscribed:", sub.Endpoint)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "unsubscribe",
			Short: "Disable track notifications",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withManager(cmd.Context(), func(ctx context.Context, m *push.Manager) error {
					if err := m.Unsubscribe(ctx); err != nil {
						return err
					}
					fmt.Println("unsubscribed")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the subscription state",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withManager(cmd.Context(), func(ctx context.Context, m *push.Manager) error {
					if !m.IsSupported() {
						fmt.Println("push: not supported here")
						return nil
					}
					if kind := m.NeedsInstall(); kind != domain.InstallNone {
						fmt.Printf("push: requires install first (%s)\n", kind)
						return nil
					}
					if m.IsSubscribed(ctx) {
						fmt.Println("push: subscribed")
					} else {
						fmt.Println("push: not subscribed")
					}
					return nil
				})
			},
		},
	)
	return cmd
}

// withManager builds the subscription manager over the local database and runs fn.
func withManager(ctx context.Context, fn func(context.Context, *push.Manager) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := migrate.Ensure(cfg.DatabasePath()); err != nil {
		return err
	}
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer func(d *sqlx.DB) { _ = d.Close() }(database)

	m := push.NewManager(
		platform.Desktop(),
		platform.NewLocalService(database),
		pushclient.New(cfg.ServerURL),
		platform.TerminalPrompt{In: os.Stdin, Out: os.Stdout},
	)
	return fn(ctx, m)
}
