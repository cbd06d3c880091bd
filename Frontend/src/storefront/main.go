// Command storefront serves the VanillaPod Confections shop: product pages,
// a per-session cart and checkout against the shop's order backend.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vanillapodconfections/storefront/Backend/src/money"
	"github.com/vanillapodconfections/storefront/Backend/src/order"
	"github.com/vanillapodconfections/storefront/pkg/config"
	"github.com/vanillapodconfections/storefront/pkg/logger"
	"github.com/vanillapodconfections/storefront/pkg/shutdown"
)

const serviceName = "storefront"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string

	cfg config.Config
	log zerolog.Logger
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "VanillaPod Confections storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.EnvFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.log = logger.New(logger.Options{
				Service: serviceName,
				Env:     opts.cfg.AppEnv,
				Level:   opts.cfg.LogLevel,
				Console: opts.cfg.IsDev(),
				Out:     cmd.ErrOrStderr(),
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file read before the environment")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewProductsCommand(opts))
	cmd.AddCommand(NewOrderStatusCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	return cmd
}

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP storefront and gRPC health listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *RootOptions) error {
	ctx, stop := shutdown.WithSignals(parent)
	defer stop()

	app, err := NewApp(opts.cfg, opts.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			opts.log.Warn().Err(err).Msg("close")
		}
	}()
	if err := app.OpenCartStore(ctx); err != nil {
		return err
	}
	app.OpenPublisher()
	return app.Serve(ctx)
}

func NewProductsCommand(opts *RootOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog as the storefront sees it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(opts.cfg, opts.log)
			if err != nil {
				return err
			}
			defer app.Close()
			ps, err := app.catalog.ByCategory(cmd.Context(), category)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCATEGORY\tAVAILABLE")
			for _, p := range ps {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", p.ID, p.Name, money.Format(p.Price.Decimal), p.Category, p.Available)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list this category")
	return cmd
}

func NewOrderStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "order-status <order-id>",
		Short: "Look up an order on the configured backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(opts.cfg, opts.log)
			if err != nil {
				return err
			}
			defer app.Close()
			rep, err := app.orders.Lookup(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("order %s: %w", args[0], err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
}

// NewEventsCommand tails order events from the broker, one JSON line per
// event.
func NewEventsCommand(opts *RootOptions) *cobra.Command {
	var queue string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print order events published by storefronts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.RabbitURL == "" {
				return errors.New("RABBITMQ_URL is not set")
			}
			ctx, stop := shutdown.WithSignals(cmd.Context())
			defer stop()

			r, err := order.NewRabbit(opts.cfg.RabbitURL, opts.cfg.EventsExchange, opts.log)
			if err != nil {
				return err
			}
			defer r.Close()

			out := cmd.OutOrStdout()
			err = r.ConsumeTopic(ctx, queue, []string{order.RKOrderSubmitted}, func(rk string, body []byte) error {
				var ev order.SubmittedEvent
				if err := json.Unmarshal(body, &ev); err != nil {
					opts.log.Warn().Err(err).Str("rk", rk).Msg("events: bad payload")
					return nil
				}
				opts.log.Info().Str("order", ev.OrderID).Str("backend", ev.Backend).Msg("events: order submitted")
				_, err := fmt.Fprintf(out, "%s\n", body)
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&queue, "queue", "storefront.order-events", "queue bound to the events exchange")
	return cmd
}
