package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/menugr/menugr/config"
	"github.com/menugr/menugr/internal/cart"
	"github.com/menugr/menugr/internal/menu"
	"github.com/menugr/menugr/internal/server"
	"github.com/menugr/menugr/pkg/kvstore"
)

var (
	cartSlug    string
	cartSession string
)

// menugr cart: inspect saved carts in CART_STORE.
var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Inspect or clear a visitor's saved cart",
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a saved cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(cmd.Context(), func(ctx context.Context, c *cart.Store) error {
			items := c.Items()
			if len(items) == 0 {
				fmt.Printf("No saved cart for %q.\n", cartSlug)
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "#\tPRODUCT\tQTY\tNOTES\tTOTAL")
			for i, it := range items {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", i, it.Product.Name, it.Quantity, it.Notes,
					menu.FormatPrice(it.Total(), it.Product.Currency))
			}
			fmt.Fprintf(w, "\t\t%d\t\t%s\n", c.ItemCount(), c.Total().StringFixed(2))
			return w.Flush()
		})
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty a saved cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCart(cmd.Context(), func(ctx context.Context, c *cart.Store) error {
			c.Clear(ctx)
			fmt.Printf("Cleared cart %q.\n", cart.Key(cartSlug))
			return nil
		})
	},
}

// withCart restores the cart of --slug, scoped to --session when given.
func withCart(ctx context.Context, fn func(context.Context, *cart.Store) error) error {
	if cartSlug == "" {
		return fmt.Errorf("cart: --slug is required")
	}
	store, err := kvstore.Open(ctx, config.CartStore())
	if err != nil {
		return fmt.Errorf("cart: open store: %w", err)
	}
	defer kvstore.Close(ctx, store) //nolint:errcheck

	kv := store
	if cartSession != "" {
		kv = server.SessionStore(store, cartSession)
	}
	c := cart.New(kv)
	c.Restore(ctx, cartSlug)
	return fn(ctx, c)
}

func init() {
	cartCmd.PersistentFlags().StringVarP(&cartSlug, "slug", "s", "", "Business slug the cart belongs to")
	cartCmd.PersistentFlags().StringVar(&cartSession, "session", "", "Browser session id (value of the session cookie)")
	cartCmd.AddCommand(cartShowCmd)
	cartCmd.AddCommand(cartClearCmd)
}
