package transcript

import (
	"strings"
	"time"
)

const exportTimestampLayout = "2006-01-02T15:04:05"

// ExportFilename names a saved transcript after the UTC instant t, seconds
// precision, with ':' replaced so the name is safe on every filesystem.
func ExportFilename(t time.Time) string {
	stamp := strings.ReplaceAll(t.UTC().Format(exportTimestampLayout), ":", "-")
	return "transcription_" + stamp + ".txt"
}
