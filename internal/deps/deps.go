package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"librarian/internal/config"
	"librarian/internal/services"
)

// Requirement defines an external dependency Librarian relies on.
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
	Path        string
	Detail      string
}

// Requirements lists the external tools the configuration enables.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Tools.FFmpeg, Description: "Container conversion", Optional: !cfg.Convert.Enabled},
		{Name: "FFprobe", Command: cfg.Tools.FFprobe, Description: "Track probing for merges", Optional: true},
		{Name: "mkvmerge", Command: cfg.Tools.Mkvmerge, Description: "Subtitle merging", Optional: !cfg.Merge.Enabled},
		{Name: "mkvpropedit", Command: cfg.Tools.Mkvpropedit, Description: "Title tag writing", Optional: !cfg.Queue.WriteTags},
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
		path, err := ResolveExecutable(cmd)
		if err != nil {
			status.Detail = detailFor(cmd, err)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// ResolveExecutable locates command on PATH (or as given when it contains a
// separator) and confirms it can be executed. Failures are tagged
// services.ErrConfiguration.
func ResolveExecutable(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", services.Wrap(services.ErrConfiguration, "deps", "resolve tool", "command not configured", nil)
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "deps", "resolve tool", fmt.Sprintf("binary %q not found", command), err)
	}
	if err := checkExecutable(path); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "deps", "resolve tool", fmt.Sprintf("binary %q is not executable", command), err)
	}
	return path, nil
}

func detailFor(cmd string, err error) string {
	switch {
	case cmd == "":
		return "command not configured"
	case strings.Contains(err.Error(), "not executable"):
		return fmt.Sprintf("binary %q is not executable", cmd)
	default:
		return fmt.Sprintf("binary %q not found", cmd)
	}
}
