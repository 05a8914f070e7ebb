package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteReport(t *testing.T) {
	tmpDir := t.TempDir()

	report := &RunReport{
		Outcome:  RunOutcomeFailure,
		Duration: 75 * time.Second,
		StageHistory: []StageVisit{
			{StageID: "gn", Outcome: StageOutcomeSuccess, Duration: 5 * time.Second},
			{StageID: "ninja", Outcome: StageOutcomeFailure, Duration: 70 * time.Second},
		},
	}

	if err := WriteReport(report, tmpDir); err != nil {
		t.Fatalf("WriteReport returned error: %v", err)
	}

	jsonFile := filepath.Join(tmpDir, RunReportFileName)
	data, err := os.ReadFile(jsonFile)
	if err != nil {
		t.Fatalf("Failed to read JSON report at %s: %v", jsonFile, err)
	}
	var got RunReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to unmarshal JSON report: %v", err)
	}
	if got.Outcome != RunOutcomeFailure {
		t.Errorf("Expected outcome %q, got %q", RunOutcomeFailure, got.Outcome)
	}
	if len(got.StageHistory) != 2 || got.StageHistory[1].StageID != "ninja" {
		t.Errorf("Unexpected stage history: %+v", got.StageHistory)
	}

	mdFile := filepath.Join(tmpDir, ReportMarkdownFileName)
	md, err := os.ReadFile(mdFile)
	if err != nil {
		t.Fatalf("Failed to read markdown report at %s: %v", mdFile, err)
	}
	for _, want := range []string{
		"**Outcome:** failure",
		"**Cost time:** 0:01:15",
		"| gn | 5s | success |",
		"| ninja | 1m10s | failure |",
	} {
		if !strings.Contains(string(md), want) {
			t.Errorf("Markdown report missing %q:\n%s", want, md)
		}
	}
}

func TestFormatMarkdownReportEmpty(t *testing.T) {
	md := formatMarkdownReport(&RunReport{Outcome: RunOutcomeAborted})
	if !strings.Contains(md, "No stage history recorded.") {
		t.Errorf("expected empty history note, got:\n%s", md)
	}
}
