package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/menugr/menugr/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "menugr",
	Short: "menugr: public restaurant menus",
	Long:  "menugr serves multi-tenant public menus reached by QR code or direct link, with a per-visitor cart.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Load()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(cartCmd)
}
