package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"dccpub/internal/config"
	"dccpub/internal/launch"
)

// Requirement defines an external binary a dccpub command may run.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the binaries cfg refers to. The export command is only
// required when one is configured; without it exports go through the
// offline manifest exporter. The python interpreter is used by prelaunch
// hooks and is always optional.
func Requirements(cfg *config.Config) []Requirement {
	var reqs []Requirement
	if cfg != nil && len(cfg.Host.ExportCommand) > 0 {
		reqs = append(reqs, Requirement{
			Name:        "Export command",
			Command:     cfg.Host.ExportCommand[0],
			Description: fmt.Sprintf("Runs %s exports", cfg.Host.Name),
		})
	}
	reqs = append(reqs, Requirement{
		Name:        "Python",
		Command:     os.Getenv(launch.PythonExecutableEnv),
		Description: "Wraps host launches (" + launch.PythonExecutableEnv + ")",
		Optional:    true,
	})
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the names of required dependencies that are unavailable.
func Missing(statuses []Status) []string {
	var names []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			names = append(names, s.Name)
		}
	}
	return names
}
