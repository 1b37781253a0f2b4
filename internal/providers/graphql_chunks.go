package providers

import (
	"fmt"
	"strings"
	"time"
)

// DateWindow is one fixed-size slice of a historic extraction interval.
type DateWindow struct {
	From time.Time
	To   time.Time
}

// chunkWindowMonths sizes the extraction windows. The plain listing
// endpoints truncate or time out over very large date ranges, so the
// historic path scans two months at a time.
const chunkWindowMonths = 2

// SplitWindows splits [from, to) into contiguous 2-month windows. The
// final window is clipped to the requested end.
func SplitWindows(from, to time.Time) []DateWindow {
	if !from.Before(to) {
		return nil
	}

	var windows []DateWindow
	start := from
	for start.Before(to) {
		end := start.AddDate(0, chunkWindowMonths, 0)
		if end.After(to) {
			end = to
		}
		windows = append(windows, DateWindow{From: start, To: end})
		start = end
	}
	return windows
}

// chunkExtractionPaths are the fixed aliases the chunk query uses to pull
// specific nested fields up to the top level of each record.
var chunkExtractionPaths = []struct {
	alias string
	path  string
}{
	{"title", "title"},
	{"status", "status"},
	{"deleted", "deleted"},
	{"workflowId", "workflow.id"},
	{"workflowStatus", "workflow_state.status"},
	{"vesselId", "vessel.id"},
	{"vesselName", "vessel.name"},
	{"vesselMmsi", "vessel.particulars.mmsi"},
	{"vesselImo", "vessel.particulars.imo"},
	{"components", "vessel.inspection.components"},
	{"lastModified", "audit.last_modified"},
}

// BuildChunkQuery builds the GraphQL query for all records of one
// workflow modified inside one window. Completed and soft-deleted records
// are included on purpose: the historic path exists for auditability and
// the shared ingest filter drops deletions afterwards.
func BuildChunkQuery(workflowID string, w DateWindow) string {
	var fields strings.Builder
	fields.WriteString("id\n")
	for _, ep := range chunkExtractionPaths {
		fmt.Fprintf(&fields, "%s: field(path: %q)\n", ep.alias, ep.path)
	}

	return fmt.Sprintf(`{
  workItems(
    workflowId: %q
    modifiedAfter: %q
    modifiedBefore: %q
    includeCompleted: true
    includeDeleted: true
  ) {
%s  }
}`,
		workflowID,
		w.From.UTC().Format(time.RFC3339),
		w.To.UTC().Format(time.RFC3339),
		indent(fields.String(), "    "),
	)
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}
