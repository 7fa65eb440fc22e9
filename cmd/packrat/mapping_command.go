package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"packrat/internal/mapping"
)

func newMappingCommand(ctx *commandContext) *cobra.Command {
	mappingCmd := &cobra.Command{
		Use:   "mapping",
		Short: "Inspect the slug to identifier mapping",
	}
	mappingCmd.AddCommand(newMappingListCommand(ctx))
	return mappingCmd
}

func newMappingListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded slug to identifier pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.env()
			if err != nil {
				return err
			}
			index := mapping.Open(cfg.MappingPath(), logger)
			entries := index.List()
			if jsonOut {
				if entries == nil {
					entries = []mapping.Entry{}
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No mappings recorded in %s\n", cfg.MappingPath())
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Slug, e.Identifier})
			}
			fmt.Fprintln(out, renderTable([]string{"Slug", "Identifier"}, rows, nil))
			fmt.Fprintf(out, "%d mappings\n", index.Count())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output mappings as JSON")
	return cmd
}
