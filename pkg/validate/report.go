package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Azure/hb-kit/pkg/logger"
)

const (
	ReportFileName         = "component_build.json"
	ReportMarkdownFileName = "component_build.md"
)

// Status is 1 for a component that built and 0 for one that did not.
type Status int

const (
	StatusFailed Status = 0
	StatusPassed Status = 1
)

// Result is the outcome of building one component for one product.
type Result struct {
	Subsystem string
	Component string
	Product   string
	Company   string
	Status    Status
	// Log is the build log of a failed build; empty when it passed.
	Log string
}

func (r Result) Passed() bool { return r.Status == StatusPassed }

// ProductID returns name@company.
func (r Result) ProductID() string {
	return r.Product + "@" + r.Company
}

// Entry is one element of the serialized report. Product is name@company.
type Entry struct {
	ComponentName string `json:"component_name"`
	Product       string `json:"product"`
	Status        Status `json:"status"`
	Log           string `json:"log"`
}

type Report struct {
	WorkPath string
	Results  []Result
}

func (r *Report) JSONPath() string {
	return filepath.Join(r.WorkPath, ReportFileName)
}

// BySubsystem groups the results by subsystem, keeping run order.
func (r *Report) BySubsystem() map[string][]Entry {
	grouped := make(map[string][]Entry)
	for _, res := range r.Results {
		grouped[res.Subsystem] = append(grouped[res.Subsystem], Entry{
			ComponentName: res.Component,
			Product:       res.ProductID(),
			Status:        res.Status,
			Log:           res.Log,
		})
	}
	return grouped
}

// Failed returns the results that did not build.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed() {
			failed = append(failed, res)
		}
	}
	return failed
}

func formatMarkdownReport(r *Report) string {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("**Component builds:** %d, **failed:** %d\n\n", len(r.Results), len(r.Failed())))

	grouped := r.BySubsystem()
	subsystems := make([]string, 0, len(grouped))
	for name := range grouped {
		subsystems = append(subsystems, name)
	}
	sort.Strings(subsystems)

	if len(subsystems) == 0 {
		md.WriteString("No components built.\n")
		return md.String()
	}
	for _, name := range subsystems {
		md.WriteString(fmt.Sprintf("## %s\n\n", name))
		md.WriteString("| Component | Product | Status |\n")
		md.WriteString("|-----------|---------|--------|\n")
		for _, e := range grouped[name] {
			status := "passed"
			if e.Status != StatusPassed {
				status = "failed"
			}
			md.WriteString(fmt.Sprintf("| %s | %s | %s |\n", e.ComponentName, e.Product, status))
		}
		md.WriteString("\n")
	}
	return md.String()
}

// Write writes component_build.json and component_build.md into the work
// path.
func (r *Report) Write() error {
	data, err := json.MarshalIndent(r.BySubsystem(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling component build report: %w", err)
	}
	logger.Debugf("Writing component build report to %s", r.JSONPath())
	if err := os.WriteFile(r.JSONPath(), data, 0644); err != nil {
		return fmt.Errorf("writing component build report: %w", err)
	}

	mdPath := filepath.Join(r.WorkPath, ReportMarkdownFileName)
	if err := os.WriteFile(mdPath, []byte(formatMarkdownReport(r)), 0644); err != nil {
		return fmt.Errorf("writing markdown report: %w", err)
	}
	return nil
}
