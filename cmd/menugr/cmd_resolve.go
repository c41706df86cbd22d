package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/menugr/menugr/internal/access"
	"github.com/menugr/menugr/internal/backend"
)

var resolveLoadCatalog bool

// menugr resolve <path>: run the access fallback chain against the backend.
var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Resolve a menu path (/menu/<slug> or /m/<qr-slug>) and print the outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		api := backend.NewFromConfig()
		route := access.Classify(args[0])

		md := access.NewScanMetadata("", "menugr-cli", time.Now())
		res := access.NewResolver(api).Resolve(ctx, route, md)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "path\t%s\n", route.Path)
		fmt.Fprintf(w, "mode\t%s\n", route.Mode)
		fmt.Fprintf(w, "slug\t%s\n", route.Slug)
		fmt.Fprintf(w, "state\t%s\n", res.State)
		fmt.Fprintf(w, "trail\t%v\n", res.Trail)
		fmt.Fprintf(w, "source\t%s\n", res.Source)
		if res.Business != nil {
			fmt.Fprintf(w, "business\t%s (%s, id %s)\n", res.Business.Name, res.Business.Slug, res.Business.ID)
		}
		if res.Access.IsQR() {
			fmt.Fprintf(w, "qr\t%s table=%d location=%q\n", res.Access.QRName, res.Access.TableNumber, res.Access.Location)
		}
		fmt.Fprintf(w, "cart key\t%s\n", res.CartSlug())
		if !res.OK() {
			fmt.Fprintf(w, "reason\t%s\n", res.Reason)
			w.Flush()
			return fmt.Errorf("resolve: %s: %w", route.Path, res.Err)
		}

		payload := res.Menu
		if payload == nil && resolveLoadCatalog {
			p, err := access.LoadCatalog(ctx, api, res.BusinessID())
			if err != nil {
				w.Flush()
				return err
			}
			payload = p
		}
		if payload != nil {
			fmt.Fprintf(w, "categories\t%d\n", len(payload.Categories))
			fmt.Fprintf(w, "products\t%d\n", len(payload.Products))
		}
		return w.Flush()
	},
}

func init() {
	resolveCmd.Flags().BoolVarP(&resolveLoadCatalog, "catalog", "c", false, "Also load the catalog when the resolution did not embed one")
}
