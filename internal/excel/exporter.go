package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/dojang/internal/progress"
	"github.com/example/dojang/pkg/models"
)

// ExportConfig defines the export layout
type ExportConfig struct {
	IncludeSessions bool   // Append the practice session history
	TimeFormat      string // Layout for timestamp cells
}

// DefaultExportConfig returns the default export configuration
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		IncludeSessions: true,
		TimeFormat:      time.RFC3339,
	}
}

// SheetName is the sheet every export is written to.
const SheetName = "Sheet1"

// Header is the first row of every export.
var Header = []string{
	"Kind", "Key", "Level", "Box", "Correct", "Incorrect", "Consecutive",
	"Practice Count", "Practice Seconds", "High Water", "Total Steps", "Completion %",
	"Best Accuracy", "Average Accuracy", "Last Activity", "Next Review",
}

// WorkbookExporter writes a snapshot as an .xlsx workbook
type WorkbookExporter struct {
	Config ExportConfig
}

// NewWorkbookExporter creates an exporter with the default configuration
func NewWorkbookExporter() *WorkbookExporter {
	return &WorkbookExporter{Config: DefaultExportConfig()}
}

func (e *WorkbookExporter) Export(w io.Writer, snap progress.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Progress: " + snap.Profile.Name,
		Subject: snap.Profile.ID,
		Created: snap.ExportedAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to set workbook properties: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open sheet: %w", err)
	}

	for i, row := range rows(snap, e.Config) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// CSVExporter writes the same rows as comma-separated values
type CSVExporter struct {
	Config ExportConfig
}

func (e *CSVExporter) Export(w io.Writer, snap progress.Snapshot) error {
	cw := csv.NewWriter(w)
	for _, row := range rows(snap, e.Config) {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExporterFor picks the exporter matching the file extension of path.
func ExporterFor(path string) progress.Exporter {
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return &CSVExporter{Config: DefaultExportConfig()}
	}
	return NewWorkbookExporter()
}

func rows(snap progress.Snapshot, cfg ExportConfig) [][]interface{} {
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	ts := func(t *time.Time) interface{} {
		if t == nil || t.IsZero() {
			return ""
		}
		return t.UTC().Format(cfg.TimeFormat)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	out := [][]interface{}{header}

	for _, t := range snap.Terminology {
		next := t.NextReviewAt
		out = append(out, []interface{}{
			string(models.KindTerminology), t.TermKey, models.LevelForBox(t.Box).String(), t.Box,
			t.CorrectCount, t.IncorrectCount, t.ConsecutiveCorrect,
			t.CorrectCount + t.IncorrectCount, "", "", "", "",
			"", "", ts(t.LastReviewedAt), ts(&next),
		})
	}
	for _, m := range snap.Mastery {
		out = append(out, []interface{}{
			string(m.Kind), m.EntityKey, m.MasteryLevel.String(), "",
			"", "", m.ConsecutiveCorrectRuns,
			m.PracticeCount, m.TotalPracticeSeconds, m.HighWaterProgress, m.TotalSteps,
			progress.CompletionPercentage(m),
			m.BestRunAccuracy, m.AverageAccuracy, ts(m.LastPracticedAt), "",
		})
	}
	if cfg.IncludeSessions {
		for _, s := range snap.Sessions {
			recorded := s.RecordedAt
			accuracy := interface{}("")
			if s.Scored {
				accuracy = s.Accuracy
			}
			out = append(out, []interface{}{
				"session", models.EntityKey{Kind: s.Kind, Key: s.EntityKey}.String(), "", "",
				"", "", "",
				"", s.DurationSeconds, s.StepsCompleted, "", "",
				"", accuracy, ts(&recorded), "",
			})
		}
	}
	return out
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
