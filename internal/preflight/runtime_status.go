package preflight

import (
	"workbench/internal/config"
	"workbench/internal/deps"
)

// Report is the combined dependency and directory health snapshot served by
// the status endpoint and printed by the CLI.
type Report struct {
	Dependencies []deps.Status `json:"dependencies"`
	Checks       []Result      `json:"checks"`
}

// Collect gathers a Report for cfg.
func Collect(cfg *config.Config) Report {
	return Report{
		Dependencies: CheckSystemDeps(cfg),
		Checks:       RunAll(cfg),
	}
}

// Ready reports whether every required dependency and every check passed.
// Optional dependencies never affect readiness.
func (r Report) Ready() bool {
	for _, dep := range r.Dependencies {
		if !dep.Available && !dep.Optional {
			return false
		}
	}
	for _, check := range r.Checks {
		if !check.Passed {
			return false
		}
	}
	return true
}

// Missing returns the names of unavailable required dependencies.
func (r Report) Missing() []string {
	var missing []string
	for _, dep := range r.Dependencies {
		if !dep.Available && !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	return missing
}
