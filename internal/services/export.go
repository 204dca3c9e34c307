package services

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	customerrors "github.com/westernheights/website/internal/errors"
	"github.com/westernheights/website/internal/repository"
)

// Export is the serializable bundle handed to external consumers: the daily
// summary plus the windowed popular-pages table.
type Export struct {
	ExportDate   string                   `json:"export_date"`
	Summary      DailyReport              `json:"summary"`
	PopularPages []repository.PopularPage `json:"popular_pages"`
}

// ExportFormats lists the formats ExportReport understands.
var ExportFormats = []string{"json", "csv"}

// ExportReport serializes a report to the caller-supplied sink. "json" is the
// structured form; "csv" is a flat table of metric rows followed by one row
// per popular page. Free-text fields are written as-is, without delimiter
// escaping, matching the historical export format.
func ExportReport(w io.Writer, summary DailyReport, popularPages []repository.PopularPage, format string) error {
	export := Export{
		ExportDate:   time.Now().Format(time.RFC3339),
		Summary:      summary,
		PopularPages: popularPages,
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(export); err != nil {
			return fmt.Errorf("failed to write json export: %w", err)
		}
		return nil
	case "csv":
		var b strings.Builder
		b.WriteString("Metric,Value\n")
		fmt.Fprintf(&b, "Export Date,%s\n", export.ExportDate)
		fmt.Fprintf(&b, "Report Date,%s\n", summary.Date)
		fmt.Fprintf(&b, "Total Visits,%d\n", summary.TotalVisits)
		fmt.Fprintf(&b, "Unique Visitors,%d\n", summary.UniqueVisitors)
		fmt.Fprintf(&b, "Page Views,%d\n", summary.PageViews)
		fmt.Fprintf(&b, "Conversions,%d\n", summary.Conversions)
		b.WriteString("\n")
		b.WriteString("Popular Pages,Views,Unique Visitors\n")
		for _, page := range popularPages {
			fmt.Fprintf(&b, "%s,%d,%d\n", page.PageURL, page.TotalViews, page.UniqueVisitors)
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return fmt.Errorf("failed to write csv export: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", customerrors.ErrUnknownExportFormat, format)
	}
}
