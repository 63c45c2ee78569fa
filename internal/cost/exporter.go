package cost

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Exporter writes cost data to a file, grounded on the teacher's original
// os.MkdirAll+json.MarshalIndent+os.WriteFile export idiom.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// ExportToFile writes data (a []RegionRollup or []model.CostRecord) to
// outputPath in the requested format, creating parent directories as needed.
func (e *Exporter) ExportToFile(data interface{}, format, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var content []byte
	var err error

	switch format {
	case "json":
		content, err = e.toJSON(data)
	case "csv":
		content, err = e.toCSV(data)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (e *Exporter) toJSON(data interface{}) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}

func (e *Exporter) toCSV(data interface{}) ([]byte, error) {
	switch v := data.(type) {
	case []RegionRollup:
		return e.rollupsToCSV(v)
	default:
		return nil, fmt.Errorf("unsupported data type for CSV export")
	}
}

func (e *Exporter) rollupsToCSV(rollups []RegionRollup) ([]byte, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	w.Write([]string{"Account", "Region", "Compute", "Storage", "ControlPlane", "Total", "Resources"})
	for _, r := range rollups {
		w.Write([]string{
			r.AccountName,
			r.Region,
			fmt.Sprintf("%.2f", r.ComputeCost),
			fmt.Sprintf("%.2f", r.StorageCost),
			fmt.Sprintf("%.2f", r.ControlPlaneCost),
			fmt.Sprintf("%.2f", r.TotalCost),
			fmt.Sprintf("%d", r.RecordCount),
		})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// GenerateFilename generates a report filename with a timestamp suffix.
func (e *Exporter) GenerateFilename(prefix, format string) string {
	timestamp := time.Now().Format("20060102-150405")
	return fmt.Sprintf("%s-%s.%s", prefix, timestamp, format)
}
