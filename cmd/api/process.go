package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"voice-relay-go/internal/types"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var ref types.ResourceReference

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the pipeline once and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ref.FileURL == "" && ref.StockName == "" {
				return errors.New("one of --file-url or --stockname is required")
			}
			log := newLogger(ctx.config)
			proc := buildProcessor(ctx.config, log)

			res, err := proc.Process(cmd.Context(), ref)
			if err != nil {
				return fmt.Errorf("process: %w", err)
			}
			return writeJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&ref.FileURL, "file-url", "", "Absolute URL or symbolic name of the recording")
	cmd.Flags().StringVar(&ref.StockName, "stockname", "", "Symbolic name resolved through the download template")
	return cmd
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
