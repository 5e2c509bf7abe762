package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/xenking/shelfsafe/internal/client"
	"github.com/xenking/shelfsafe/internal/dashboard"
	"github.com/xenking/shelfsafe/internal/domain/inventory"
)

const defaultAPI = "http://localhost:5000"

type rootOptions struct {
	api     string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "shelfsafe",
		Short:         "Inventory dashboard in the terminal",
		Long:          styleTitle.Render("shelfsafe") + " - read-only view of products, lots and their images.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	api := os.Getenv("SHELFSAFE_API")
	if api == "" {
		api = defaultAPI
	}
	root.PersistentFlags().StringVar(&opts.api, "api", api, "API base URL (env SHELFSAFE_API)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "per-request timeout")

	root.AddCommand(newHealthCmd(opts), newSnapshotCmd(opts))
	return root
}

func (o *rootOptions) client() (*client.Client, error) {
	return client.New(o.api,
		client.WithTimeout(o.timeout),
		client.WithTracerProvider(otel.GetTracerProvider()),
	)
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API and its database are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			if err := c.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styleSuccess.Render("✔ API is healthy + DB connected"))
			return nil
		},
	}
}

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	var (
		lots       bool
		entityType string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch products, lots and attachments and show resolved images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			svc, err := dashboard.NewService(c, dashboard.Config{EntityType: entityType}, otel.GetMeterProvider())
			if err != nil {
				return err
			}
			snap, err := svc.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSnapshot(snap, lots))
			return nil
		},
	}
	cmd.Flags().BoolVar(&lots, "lots", false, "also list inventory lots")
	cmd.Flags().StringVar(&entityType, "entity-type", inventory.LotsCollection, "attachment entity type to fetch; empty fetches all")
	return cmd
}
