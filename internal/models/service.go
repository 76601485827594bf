// Package models defines the data structures shared between the installer,
// the service manager backends and the reporting layer.
// Outcome and Finding are serialized to JSON for machine-readable output.
package models

import (
	"fmt"
	"regexp"
	"sort"
)

// serviceNamePattern is the character set every supported service system
// accepts in a unit or service name. systemd refuses anything else.
var serviceNamePattern = regexp.MustCompile(`^[A-Za-z0-9:_.@-]+$`)

// ValidServiceName reports whether name can be used as an OS service name.
func ValidServiceName(name string) bool {
	return serviceNamePattern.MatchString(name)
}

// ServiceSpec is the desired service definition for one run.
// It is built fresh from configuration on every invocation and never persisted.
type ServiceSpec struct {
	Name             string            `json:"name"`
	DisplayName      string            `json:"display_name,omitempty"`
	Description      string            `json:"description"`
	ExecutablePath   string            `json:"executable_path"`
	Runtime          string            `json:"runtime,omitempty"`
	WorkingDirectory string            `json:"working_directory"`
	RuntimeOptions   []string          `json:"runtime_options"`
	Environment      map[string]string `json:"environment"`
	UserName         string            `json:"user_name,omitempty"`
	UserService      bool              `json:"user_service"`
	Restart          string            `json:"restart,omitempty"`
}

// Command returns the program and arguments the service manager launches.
// With a runtime the entry point is passed to it after the runtime options;
// without one the entry point is executed directly and receives the options.
func (s ServiceSpec) Command() (string, []string) {
	args := make([]string, 0, len(s.RuntimeOptions)+1)
	args = append(args, s.RuntimeOptions...)
	if s.Runtime == "" {
		return s.ExecutablePath, args
	}
	return s.Runtime, append(args, s.ExecutablePath)
}

// EnvironmentKeys returns the environment variable names in sorted order.
func (s ServiceSpec) EnvironmentKeys() []string {
	keys := make([]string, 0, len(s.Environment))
	for k := range s.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Status is the state of the OS-level service record.
type Status int

const (
	StatusAbsent Status = iota
	StatusInstalled
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusInstalled:
		return "installed"
	case StatusRunning:
		return "running"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so Status renders as a word in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "absent":
		*s = StatusAbsent
	case "installed":
		*s = StatusInstalled
	case "running":
		*s = StatusRunning
	default:
		return fmt.Errorf("unknown service status %q", text)
	}
	return nil
}

// Severity grades a preflight finding.
type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityWarn Severity = "warn"
)

// Finding is a single advisory result produced by a preflight check.
type Finding struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Outcome is the structured result of a reconciliation attempt.
type Outcome struct {
	Name               string    `json:"name"`
	Platform           string    `json:"platform,omitempty"`
	Status             Status    `json:"status"`
	Installed          bool      `json:"installed"`
	Running            bool      `json:"running"`
	ExecutablePath     string    `json:"executable_path,omitempty"`
	CreatedDirectories []string  `json:"created_directories,omitempty"`
	Findings           []Finding `json:"findings,omitempty"`
}

// OutcomeFromStatus fills the installed/running flags from a status value.
func OutcomeFromStatus(name string, st Status) Outcome {
	return Outcome{
		Name:      name,
		Status:    st,
		Installed: st != StatusAbsent,
		Running:   st == StatusRunning,
	}
}
