package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/monsterpi/svcinstall/internal/installer"
	"github.com/monsterpi/svcinstall/internal/models"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// report is the JSON document written with --output json.
type report struct {
	Outcome   *models.Outcome     `json:"outcome,omitempty"`
	Spec      *models.ServiceSpec `json:"spec,omitempty"`
	Error     string              `json:"error,omitempty"`
	ErrorKind string              `json:"error_kind,omitempty"`
}

func writeOutcome(w io.Writer, format string, outcome models.Outcome, err error) error {
	if format == outputJSON {
		r := report{Outcome: &outcome}
		if err != nil {
			r.Error = err.Error()
			r.ErrorKind = installer.KindOf(err).String()
		}
		return writeJSON(w, r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Service:    %s", outcome.Name)
	if outcome.Platform != "" {
		fmt.Fprintf(&b, " (%s)", outcome.Platform)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Installed:  %t\n", outcome.Installed)
	fmt.Fprintf(&b, "Running:    %t\n", outcome.Running)
	if outcome.ExecutablePath != "" {
		fmt.Fprintf(&b, "Executable: %s\n", outcome.ExecutablePath)
	}
	for _, dir := range outcome.CreatedDirectories {
		fmt.Fprintf(&b, "Created:    %s\n", dir)
	}
	for _, f := range outcome.Findings {
		if f.Severity == models.SeverityWarn {
			fmt.Fprintf(&b, "Warning:    [%s] %s\n", f.Check, f.Message)
		}
	}
	_, werr := io.WriteString(w, b.String())
	return werr
}

func writeSpec(w io.Writer, format string, spec models.ServiceSpec) error {
	if format == outputJSON {
		return writeJSON(w, report{Spec: &spec})
	}

	program, args := spec.Command()
	var b strings.Builder
	fmt.Fprintf(&b, "Service:     %s\n", spec.Name)
	fmt.Fprintf(&b, "Description: %s\n", spec.Description)
	fmt.Fprintf(&b, "Command:     %s %s\n", program, strings.Join(args, " "))
	fmt.Fprintf(&b, "Directory:   %s\n", spec.WorkingDirectory)
	for _, k := range spec.EnvironmentKeys() {
		fmt.Fprintf(&b, "Environment: %s=%s\n", k, spec.Environment[k])
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
