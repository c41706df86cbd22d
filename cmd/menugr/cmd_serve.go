package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/menugr/menugr/config"
	"github.com/menugr/menugr/internal/backend"
	"github.com/menugr/menugr/internal/server"
	"github.com/menugr/menugr/pkg/kvstore"
	"github.com/menugr/menugr/pkg/logger"
)

// menugr serve: start the HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store := openStore(ctx)
		defer func() {
			if err := kvstore.Close(context.Background(), store); err != nil {
				logger.Warn("serve: closing cart store", "error", err)
			}
		}()

		hub := server.NewHub(backend.NewFromConfig(), store, server.DefaultIdleTTL)
		r := server.Kernel(server.NewHandler(hub, config.PublicURL()))
		return server.Start(ctx, hub, r.Handler())
	},
}

// openStore opens CART_STORE, falling back to memory so the menu stays up
// when the configured store is unreachable.
func openStore(ctx context.Context) kvstore.Store {
	driver := config.CartStore()
	store, err := kvstore.Open(ctx, driver)
	if err != nil {
		logger.Warn("serve: cart store unavailable, carts will not survive restarts",
			"driver", driver, "error", err)
		return kvstore.NewMemory()
	}
	logger.Info("serve: cart store ready", "driver", driver)
	return store
}

// menugr routes: print all named routes.
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List all named HTTP routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := server.Kernel(server.NewHandler(server.NewHub(nil, nil, 0), ""))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range r.Routes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}
