// Command weave is the framework's operations CLI: inspect a cached route
// table, clear it, and manage the job queue store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "weave",
		Short:         "Weave framework tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "weave.yaml", "path to the config file")

	root.AddCommand(newRoutesCmd(&configPath))
	root.AddCommand(newCacheCmd(&configPath))
	root.AddCommand(newQueueCmd(&configPath))

	return root
}
