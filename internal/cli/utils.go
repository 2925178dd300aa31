// Package cli provides CLI output utilities for Miru.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/hyperjump/miru/internal/models"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms (%s query)\n\n",
		response.Total, response.QueryTime, response.Type)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
		fmt.Fprintf(w, "ID: %d | Type: %s", result.Record.ID, result.Record.MediaType)
		if result.Record.MediaType == models.MediaTypeVideo {
			fmt.Fprintf(w, " (%d frames)", result.Record.FrameCount)
		}
		fmt.Fprintf(w, "\nPath: %s\n\n", result.Record.SourcePath)
	}
}

// WriteInfo writes library status to w in the given format.
func WriteInfo(w io.Writer, info *models.Info, format SearchOutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintf(w, "Records:    %d (%d images, %d videos)\n",
		info.RecordCount, info.ImageCount, info.VideoCount)
	fmt.Fprintf(w, "Dimensions: %d\n", info.Dimensions)
	fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(info.DiskUsageBytes))
	if info.DatabasePath != "" {
		fmt.Fprintf(w, "Database:   %s\n", info.DatabasePath)
	}
	if info.IndexPath != "" {
		fmt.Fprintf(w, "Index:      %s\n", info.IndexPath)
	}
	return nil
}

// WriteBatchResult summarizes a batch registration to w.
func WriteBatchResult(w io.Writer, result *models.BatchResult) {
	fmt.Fprintf(w, "\nRegistered %d files", len(result.IDs))
	if len(result.Failures) > 0 {
		fmt.Fprintf(w, ", %d failed:\n", len(result.Failures))
		for _, failure := range result.Failures {
			fmt.Fprintf(w, "  %s: %s\n", failure.Path, failure.Error)
		}
	} else {
		fmt.Fprintln(w)
	}
}

// NewProgressBar creates a progress bar for batch registration over total files.
func NewProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// FormatBytes renders a byte count in a human-readable unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
