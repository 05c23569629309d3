package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile serializes the report to an indented JSON file under dir, creating
// the directory when needed. It returns the written filename.
func WriteFile(rpt *Report, dir string) (string, error) {
	if rpt == nil {
		return "", fmt.Errorf("report is required")
	}
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(rpt, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.json", rpt.ReportID, rpt.GeneratedAt.Format("20060102")))
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("write report file %s: %w", filename, err)
	}

	return filename, nil
}
