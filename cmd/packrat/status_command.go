package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"packrat/internal/preflight"
	"packrat/internal/runlock"
)

type statusView struct {
	ConfigPath string             `json:"config_path,omitempty"`
	OutputDir  string             `json:"output_dir"`
	Mapping    string             `json:"mapping"`
	RunActive  bool               `json:"run_active"`
	Checks     []preflight.Result `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check that packrat is ready to run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			held, _ := runlock.Held(cfg.LockPath())
			view := statusView{
				ConfigPath: ctx.configPath,
				OutputDir:  cfg.Paths.OutputDir,
				Mapping:    cfg.MappingPath(),
				RunActive:  held,
				Checks:     preflight.RunAll(cmd.Context(), cfg),
			}
			blocking := preflight.Blocking(view.Checks)

			if jsonOut {
				if err := writeJSON(cmd, view); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Output:  %s\n", view.OutputDir)
				fmt.Fprintf(out, "Mapping: %s\n", view.Mapping)
				fmt.Fprintf(out, "Run in progress: %s\n", yesNo(held))
				rows := make([][]string, 0, len(view.Checks))
				for _, check := range view.Checks {
					rows = append(rows, []string{check.Name, passLabel(out, check.Passed, check.Optional), orDash(check.Detail)})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Detail"}, rows, nil))
			}
			if len(blocking) > 0 {
				return fmt.Errorf("%d preflight checks failed", len(blocking))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output status as JSON")
	return cmd
}
