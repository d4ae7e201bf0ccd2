package reporter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

// maxLogicalIDLength caps the Logical Resource Id column. Longer ids are
// collapsed in the middle as the identifying parts sit at both ends.
const maxLogicalIDLength = 50

const ellipsisMarker = "(...)"

var tableHeader = []string{
	"Action",
	"Requires Recreation",
	"Resource Type",
	"Logical Resource Id",
	"Change Target",
	"Change Reason",
}

// GenerateTable renders one stack's changes as a collapsible GitHub-flavored
// markdown section. The summary line carries a recreation warning when any
// change may destroy and recreate its resource. Rendering is pure.
func GenerateTable(stackName string, records []ChangeRecord) string {
	rows := make([][]string, 0, len(records))
	recreate := false
	for _, rec := range records {
		cell := string(rec.RequiresRecreation)
		if rec.RequiresRecreation.Destructive() {
			recreate = true
			cell = fmt.Sprintf("**⚠️ %s**", rec.RequiresRecreation)
		}
		rows = append(rows, []string{
			rec.Action,
			cell,
			rec.ResourceType,
			truncateMiddle(rec.LogicalID, maxLogicalIDLength),
			rec.Target,
			rec.Reason,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })

	summary := fmt.Sprintf("Changeset for stack <strong>%s</strong>", stackName)
	if recreate {
		summary += " (🚨 resources require recreation 🚨)"
	}

	var b strings.Builder
	b.WriteString("\n<details>\n<summary>")
	b.WriteString(summary)
	b.WriteString("</summary>\n\n")
	b.WriteString(markdownTable(tableHeader, rows))
	b.WriteString("\n</details>\n")
	return b.String()
}

// Report writes each stack's table to w in ascending stack-name order.
func (r *Reporter) Report(w io.Writer, changes map[string][]ChangeRecord) error {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := fmt.Fprintln(w, GenerateTable(name, changes[name])); err != nil {
			return fmt.Errorf("failed to write report for stack %s: %w", name, err)
		}
	}
	return nil
}

// markdownTable lays out a GitHub-flavored pipe table, padding cells to the
// rendered column width rather than the byte count.
func markdownTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i, cell := range cells {
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(header)
	b.WriteString("|")
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteString("|")
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

// truncateMiddle collapses the middle of s once it exceeds max characters,
// keeping both ends visible. A no-op for anything at or under the limit.
func truncateMiddle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	keep := max - len(ellipsisMarker)
	head := (keep + 1) / 2
	tail := keep - head
	return s[:head] + ellipsisMarker + s[len(s)-tail:]
}
