package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"workbench/internal/deps"
	"workbench/internal/preflight"
	"workbench/internal/serverrun"
)

type statusPayload struct {
	preflight.Report
	Ready         bool   `json:"ready"`
	ServerRunning bool   `json:"server_running"`
	ServerPID     int    `json:"server_pid,omitempty"`
	Bind          string `json:"bind"`
	WorkspaceRoot string `json:"workspace_root"`
	TodoDocument  string `json:"todo_document"`
	ConfigPath    string `json:"config_path"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show dependency, directory and server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := preflight.Collect(cfg)
			running, err := serverrun.Running(cfg.Paths.DataDir)
			if err != nil {
				return err
			}
			payload := statusPayload{
				Report:        report,
				Ready:         report.Ready(),
				ServerRunning: running,
				Bind:          cfg.API.Bind,
				WorkspaceRoot: cfg.Paths.WorkspaceRoot,
				TodoDocument:  cfg.Todo.Document,
				ConfigPath:    ctx.configPath,
			}
			if running {
				payload.ServerPID = serverrun.ReadPID(cfg.Paths.DataDir)
			}
			if jsonOutput {
				return writeJSON(cmd, payload)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			printSection(stdout, "Server", []string{serverLine(payload, colorize)}, colorize)
			fmt.Fprintln(stdout)
			printSection(stdout, "Dependencies", dependencyLines(report.Dependencies, colorize), colorize)
			fmt.Fprintln(stdout)
			printSection(stdout, "Directories", checkLines(report.Checks, colorize), colorize)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}

func serverLine(payload statusPayload, colorize bool) string {
	if !payload.ServerRunning {
		return renderStatusLine("Workbench", statusInfo, fmt.Sprintf("Not running (bind: %s)", payload.Bind), colorize)
	}
	message := fmt.Sprintf("Running on %s", payload.Bind)
	if payload.ServerPID > 0 {
		message = fmt.Sprintf("Running on %s (pid %d)", payload.Bind, payload.ServerPID)
	}
	return renderStatusLine("Workbench", statusOK, message, colorize)
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		} else {
			missing = append(missing, dep.Name)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func checkLines(checks []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		if check.Passed {
			lines = append(lines, renderStatusLine(check.Name, statusOK, check.Detail, colorize))
			continue
		}
		lines = append(lines, renderStatusLine(check.Name, statusError, check.Detail, colorize))
	}
	return lines
}
