package main

import (
	"strings"

	"github.com/spf13/cobra"
	"voice-relay-go/internal/config"
)

type commandContext struct {
	configFlag string
	config     config.Config
}

func (c *commandContext) load() error {
	cfg, err := config.Load(strings.TrimSpace(c.configFlag))
	if err != nil {
		return err
	}
	c.config = cfg
	return nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}
	serve := newServeCommand(ctx)

	rootCmd := &cobra.Command{
		Use:           "voice-relay",
		Short:         "Transcribe, summarize and relay IVR recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			return ctx.load()
		},
		// Running without a subcommand serves HTTP, as the IVR deployment expects.
		RunE: serve.RunE,
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path (TOML)")
	rootCmd.Flags().AddFlagSet(serve.Flags())

	rootCmd.AddCommand(serve)
	rootCmd.AddCommand(newProcessCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	return rootCmd
}
