package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

var configFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bookstore",
		Short:         "Digital bookstore backend: catalog, Stripe checkout and fulfillment",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file layered under the environment")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
