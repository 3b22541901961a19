package notes

import (
	"fmt"
	"strings"
	"time"
)

// BuildMemo renders the accumulated notes for one meeting as a Markdown
// document: title, start time, then each category in a fixed section
// order. Called on-demand (memo generation and export), never on the hot
// path.
func BuildMemo(title string, startedAt time.Time, accumulated IncrementalNotesResponse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "_%s_\n\n", startedAt.Format("2006-01-02 15:04:05"))

	writeKeyPoints(&b, accumulated.KeyPoints)
	writeDecisions(&b, accumulated.Decisions)
	writeActionItems(&b, accumulated.ActionItems)
	writeRisks(&b, accumulated.Risks)

	return b.String()
}

func writeKeyPoints(b *strings.Builder, items []KeyPoint) {
	b.WriteString("## Key Points\n\n")
	if len(items) == 0 {
		b.WriteString("_None recorded._\n\n")
		return
	}
	for _, kp := range items {
		fmt.Fprintf(b, "- **%s** (%s): %s\n", kp.Topic, kp.Timestamp, kp.Summary)
	}
	b.WriteString("\n")
}

func writeDecisions(b *strings.Builder, items []Decision) {
	b.WriteString("## Decisions\n\n")
	if len(items) == 0 {
		b.WriteString("_None recorded._\n\n")
		return
	}
	for _, d := range items {
		if d.Rationale != "" {
			fmt.Fprintf(b, "- %s (%s) — %s\n", d.Decision, d.Timestamp, d.Rationale)
		} else {
			fmt.Fprintf(b, "- %s (%s)\n", d.Decision, d.Timestamp)
		}
	}
	b.WriteString("\n")
}

func writeActionItems(b *strings.Builder, items []ActionItem) {
	b.WriteString("## Action Items\n\n")
	if len(items) == 0 {
		b.WriteString("_None recorded._\n\n")
		return
	}
	for _, a := range items {
		line := "- " + a.Task
		var extras []string
		if a.Owner != "" {
			extras = append(extras, "owner: "+a.Owner)
		}
		if a.Deadline != "" {
			extras = append(extras, "deadline: "+a.Deadline)
		}
		if a.Priority != "" {
			extras = append(extras, "priority: "+a.Priority)
		}
		if len(extras) > 0 {
			line += " (" + strings.Join(extras, ", ") + ")"
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}

func writeRisks(b *strings.Builder, items []Risk) {
	b.WriteString("## Risks\n\n")
	if len(items) == 0 {
		b.WriteString("_None recorded._\n\n")
		return
	}
	for _, r := range items {
		line := fmt.Sprintf("- %s (%s)", r.Risk, r.Timestamp)
		var extras []string
		if r.Impact != "" {
			extras = append(extras, "impact: "+r.Impact)
		}
		if r.Mitigation != "" {
			extras = append(extras, "mitigation: "+r.Mitigation)
		}
		if len(extras) > 0 {
			line += " — " + strings.Join(extras, "; ")
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
}
