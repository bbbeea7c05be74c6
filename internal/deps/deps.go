// Package deps reports the availability of the external binaries vigil
// shells out to. The daemon logs a snapshot at startup so a missing encoder
// is visible before the first event reaches the compression stage.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"vigil/internal/config"
)

// Requirement defines an external dependency vigil relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ForConfig returns the requirements implied by the configuration.
// Compression tools are optional when compression is disabled; events then
// upload unmodified originals.
func ForConfig(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Compression.FFmpegBinary,
			Description: "Encodes recordings with the selected codec ladder",
			Optional:    !cfg.Compression.Enabled,
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Compression.FFprobeBinary,
			Description: "Reads source resolution for quality selection",
			Optional:    !cfg.Compression.Enabled,
		},
	}
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
