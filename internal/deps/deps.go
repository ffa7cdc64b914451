// Package deps checks that the external executables cogstream shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"cogstream/internal/config"
	"cogstream/internal/services/uploader"
)

// Requirement defines an external dependency cogstream relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a requirement was found on PATH.
type Status struct {
	Requirement
	Available bool
	Path      string
	Detail    string
}

// Requirements returns the executables the configuration needs. The
// uploader command is optional when the bucket is a local path; the validator
// is only needed by verify.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "Converter",
			Command:     cfg.Converter.Command,
			Description: "Transforms source items into artifacts",
		},
		{
			Name:        "Uploader",
			Command:     cfg.Uploader.Command,
			Description: "Publishes artifacts to the bucket",
			Optional:    uploader.IsLocal(cfg.Uploader.Bucket),
		},
		{
			Name:        "Validator",
			Command:     cfg.Validator.Command,
			Description: "Checks converted artifacts for cogstream verify",
			Optional:    true,
		},
	}
}

// CheckBinaries resolves each requirement's command on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Available = true
	status.Path = path
	return status
}
