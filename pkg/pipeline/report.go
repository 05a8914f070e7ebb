package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Azure/hb-kit/pkg/logger"
)

type RunOutcome string

const (
	RunOutcomeSuccess RunOutcome = "success"
	RunOutcomeFailure RunOutcome = "failure"
	RunOutcomeAborted RunOutcome = "aborted"
)

type StageOutcome string

const (
	StageOutcomeSuccess StageOutcome = "success"
	StageOutcomeFailure StageOutcome = "failure"
	StageOutcomeAborted StageOutcome = "aborted"
)

const RunReportFileName = "run_report.json"

const ReportMarkdownFileName = "run_report.md"

// StageVisit records one stage run.
type StageVisit struct {
	StageID  string        `json:"stage_id"`
	Outcome  StageOutcome  `json:"outcome"`
	Duration time.Duration `json:"duration_ns"`
}

type RunReport struct {
	Outcome      RunOutcome    `json:"outcome"`
	Duration     time.Duration `json:"duration_ns"`
	StageHistory []StageVisit  `json:"stage_history"`
}

// Stages returns the stage names in the order they ran.
func (r *RunReport) Stages() []string {
	names := make([]string, 0, len(r.StageHistory))
	for _, v := range r.StageHistory {
		names = append(names, v.StageID)
	}
	return names
}

// formatMarkdownReport renders the report as a markdown table.
func formatMarkdownReport(report *RunReport) string {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("**Outcome:** %s\n\n", report.Outcome))
	md.WriteString(fmt.Sprintf("**Cost time:** %s\n\n", formatElapsed(report.Duration)))
	md.WriteString("## Stage History\n\n")

	if len(report.StageHistory) == 0 {
		md.WriteString("No stage history recorded.\n")
	} else {
		md.WriteString("| Stage | Duration | Outcome |\n")
		md.WriteString("|-------|----------|---------|\n")
		for _, visit := range report.StageHistory {
			md.WriteString(fmt.Sprintf("| %s | %s | %s |\n", visit.StageID, visit.Duration.Round(time.Millisecond), visit.Outcome))
		}
	}
	return md.String()
}

// WriteReport writes run_report.json and run_report.md into dir.
func WriteReport(report *RunReport, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Errorf("Error creating report directory %s: %v", dir, err)
		return fmt.Errorf("creating report directory: %w", err)
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling stage history: %w", err)
	}
	reportFile := filepath.Join(dir, RunReportFileName)
	logger.Debugf("Writing stage history to %s", reportFile)
	if err := os.WriteFile(reportFile, reportJSON, 0644); err != nil {
		return fmt.Errorf("writing stage history to file: %w", err)
	}

	reportMarkdownFile := filepath.Join(dir, ReportMarkdownFileName)
	logger.Debugf("Writing markdown report to %s", reportMarkdownFile)
	if err := os.WriteFile(reportMarkdownFile, []byte(formatMarkdownReport(report)), 0644); err != nil {
		return fmt.Errorf("writing markdown report to file: %w", err)
	}
	return nil
}
