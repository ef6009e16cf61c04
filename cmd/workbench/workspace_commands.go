package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"workbench/internal/logging"
	"workbench/internal/serverrun"
	"workbench/internal/workspace"
)

func newWorkspaceCommand(ctx *commandContext) *cobra.Command {
	workspaceCmd := &cobra.Command{
		Use:   "workspace",
		Short: "Inspect and sweep request workspaces",
	}
	workspaceCmd.AddCommand(newWorkspaceListCommand(ctx))
	workspaceCmd.AddCommand(newWorkspaceCleanCommand(ctx))
	return workspaceCmd
}

func newWorkspaceListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces left under the workspace root",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := workspace.List(cfg.Paths.WorkspaceRoot)
			if err != nil {
				return fmt.Errorf("list workspaces: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No workspaces found")
				return nil
			}
			rows := make([][]string, 0, len(dirs))
			var total int64
			for _, dir := range dirs {
				total += dir.Size
				rows = append(rows, []string{
					dir.Name,
					humanize.Bytes(uint64(dir.Size)),
					humanize.Time(dir.ModTime),
				})
			}
			fmt.Fprintln(out, renderTable([]column{{"Workspace", alignLeft}, {"Size", alignRight}, {"Modified", alignLeft}}, rows))
			fmt.Fprintf(out, "%d workspace(s), %s total\n", len(dirs), humanize.Bytes(uint64(total)))
			return nil
		},
	}
}

func newWorkspaceCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var all bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale workspaces",
		Long: "Remove workspaces older than --older-than (default workspace.stale_after_minutes).\n" +
			"--all removes every workspace and refuses while a server is running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			maxAge := cfg.StaleAfter()
			if cmd.Flags().Changed("older-than") {
				if olderThan <= 0 {
					return fmt.Errorf("--older-than must be positive")
				}
				maxAge = olderThan
			}
			if all {
				running, err := serverrun.Running(cfg.Paths.DataDir)
				if err != nil {
					return err
				}
				if running {
					return fmt.Errorf("refusing to remove all workspaces while the server is running")
				}
				maxAge = 0
			}

			result := workspace.CleanStale(cmd.Context(), cfg.Paths.WorkspaceRoot, maxAge, logging.NewNop())
			out := cmd.OutOrStdout()
			for _, failure := range result.Errors {
				fmt.Fprintf(out, "Failed to remove %s: %v\n", failure.Path, failure.Error)
			}
			fmt.Fprintf(out, "Removed %d workspace(s)\n", len(result.Removed))
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d workspace(s) could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Remove workspaces older than this age (e.g. 30m, 2h)")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every workspace regardless of age")
	return cmd
}
