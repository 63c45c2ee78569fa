package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bgdnvk/clanker/internal/model"
)

func TestWriteProducesJSONReportAndLog(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "accounts.json")
	if err := os.WriteFile(configPath, []byte(`{"accounts":{}}`), 0644); err != nil {
		t.Fatalf("failed to write fixture config: %v", err)
	}

	started := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	finished := started.Add(5 * time.Minute)

	report := model.RunReport{
		Operation:  "teardown",
		Target:     "Cluster/demo",
		RunUser:    "alice",
		StartedAt:  started,
		FinishedAt: finished,
		CostTotal:  42.5,
	}
	report.AddOutcome(model.ResourceOutcome{
		Ref:     model.ResourceRef{Kind: model.KindInstance, ID: "i-1", AccountName: "prod", Region: "us-east-1"},
		Outcome: model.OutcomeDeleted,
	})

	sink := New(dir)
	reportPath, logPath, err := sink.Write(report, configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(reportPath, filepath.Join("clanker", "reports", "teardown_")) {
		t.Errorf("expected report path namespaced under clanker/reports, got %s", reportPath)
	}
	if !strings.Contains(logPath, filepath.Join("logs", "clanker", "teardown_")) {
		t.Errorf("expected log path namespaced under logs/clanker, got %s", logPath)
	}

	reportData, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("failed to read report file: %v", err)
	}
	if !strings.Contains(string(reportData), "configFileHash") {
		t.Error("expected report to include a configFileHash field")
	}

	logData, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(logData), "i-1") {
		t.Error("expected log to contain the outcome's resource ID")
	}
}

func TestConfigFileHashEmptyOnMissingFile(t *testing.T) {
	if h := configFileHash(filepath.Join(t.TempDir(), "nonexistent.json")); h != "" {
		t.Errorf("expected empty hash for missing file, got %q", h)
	}
}

func TestConfigFileHashEmptyOnEmptyPath(t *testing.T) {
	if h := configFileHash(""); h != "" {
		t.Errorf("expected empty hash for empty path, got %q", h)
	}
}
