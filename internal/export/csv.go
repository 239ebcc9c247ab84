package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"oncall-roster-audit/internal/audit"
)

// WriteEntries exports the flattened timeline entries to a CSV file with the
// same columns as the legacy schedule export.
func WriteEntries(path string, entries []audit.OnCallEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"schedule_name", "rotation_name", "recipient_name", "startDate", "endDate"}); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.ScheduleName,
			e.RotationName,
			e.Username,
			e.Start.UTC().Format(time.RFC3339),
			e.End.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write export record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
