// Package report implements the Report Sink (C9): it writes the two
// artifacts spec.md §4.9 requires per run, grounded on the teacher's
// internal/cost/exporter.go os.MkdirAll+json.MarshalIndent+os.WriteFile
// idiom, generalized from a single cost-export file to a report+log pair.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bgdnvk/clanker/internal/model"
)

// service is the path-namespace segment spec.md §4.9 calls "{service}".
const service = "clanker"

// jsonReportDocument is the structured artifact spec.md §4.9.1 describes:
// metadata, per-account/per-region summaries, and full outcome lists.
type jsonReportDocument struct {
	Operation      string                       `json:"operation"`
	Target         string                        `json:"target,omitempty"`
	RunUser        string                        `json:"runUser"`
	StartedAt      time.Time                     `json:"startedAt"`
	FinishedAt     time.Time                     `json:"finishedAt"`
	DryRun         bool                          `json:"dryRun"`
	ConfigFileHash string                        `json:"configFileHash,omitempty"`
	Tallies        []model.AccountRegionTally    `json:"tallies"`
	Outcomes       []model.ResourceOutcome       `json:"outcomes"`
	CostTotal      float64                       `json:"costTotal"`
	Errors         []string                      `json:"errors,omitempty"`
}

// Sink writes a RunReport to the two artifact paths spec.md §4.9 names.
type Sink struct {
	baseDir string
}

func New(baseDir string) *Sink {
	return &Sink{baseDir: baseDir}
}

// Write emits both the JSON report and the line-oriented log for report,
// returning their paths.
func (s *Sink) Write(report model.RunReport, configPath string) (reportPath, logPath string, err error) {
	timestamp := report.FinishedAt.Format("20060102-150405")

	reportPath = filepath.Join(s.baseDir, service, "reports", fmt.Sprintf("%s_%s.json", report.Operation, timestamp))
	logPath = filepath.Join(s.baseDir, "logs", service, fmt.Sprintf("%s_%s.log", report.Operation, timestamp))

	if err := s.writeJSONReport(report, configPath, reportPath); err != nil {
		return "", "", err
	}
	if err := s.writeLog(report, logPath); err != nil {
		return "", "", err
	}
	return reportPath, logPath, nil
}

func (s *Sink) writeJSONReport(report model.RunReport, configPath, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	doc := jsonReportDocument{
		Operation:      report.Operation,
		Target:         report.Target,
		RunUser:        report.RunUser,
		StartedAt:      report.StartedAt,
		FinishedAt:     report.FinishedAt,
		DryRun:         report.DryRun,
		ConfigFileHash: configFileHash(configPath),
		Tallies:        report.Tallies,
		Outcomes:       report.Outcomes,
		CostTotal:      report.CostTotal,
		Errors:         report.Errors,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// writeLog emits spec.md §4.9.2's line-oriented log: one record per step
// and outcome.
func (s *Sink) writeLog(report model.RunReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s run started=%s user=%s dry_run=%v operation=%s target=%s\n",
		report.StartedAt.Format(time.RFC3339), report.StartedAt.Format(time.RFC3339), report.RunUser, report.DryRun, report.Operation, report.Target)

	for _, o := range report.Outcomes {
		fmt.Fprintf(&sb, "%s [%s/%s] %s %s outcome=%s reason=%q\n",
			time.Now().Format(time.RFC3339), o.Ref.AccountName, o.Ref.Region, o.Ref.Kind, o.Ref.ID, o.Outcome, o.Reason)
	}

	for _, e := range report.Errors {
		fmt.Fprintf(&sb, "%s ERROR %s\n", time.Now().Format(time.RFC3339), e)
	}

	fmt.Fprintf(&sb, "%s run finished=%s cost_total=%.2f\n",
		report.FinishedAt.Format(time.RFC3339), report.FinishedAt.Format(time.RFC3339), report.CostTotal)

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write log: %w", err)
	}
	return nil
}

// configFileHash hashes the account registry file's contents so the report
// can record exactly which config a run used (spec.md §4.9.1's "config file
// hash"). Returns "" if the file can't be read.
func configFileHash(configPath string) string {
	if configPath == "" {
		return ""
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
