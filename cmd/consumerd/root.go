package main

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "consumerd.yaml"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "consumerd",
		Short:         "Consumer endpoint host",
		Long:          "consumerd discovers message consumers, binds one endpoint per command type and per event handler, and consumes from the configured broker.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "path to the YAML configuration file")

	root.AddCommand(newRunCmd(opts), newEndpointsCmd(opts))

	return root
}
