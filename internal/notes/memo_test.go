package notes

import (
	"strings"
	"testing"
	"time"
)

func TestBuildMemoSectionOrderAndContent(t *testing.T) {
	notes := IncrementalNotesResponse{
		KeyPoints:   []KeyPoint{{Topic: "Budget", Summary: "reviewed Q3 spend", Timestamp: "00:01:00"}},
		Decisions:   []Decision{{Decision: "ship v2 next sprint", Timestamp: "00:05:00", Rationale: "blocked customers waiting"}},
		ActionItems: []ActionItem{{Task: "file the RFC", Owner: "dana", Priority: "high"}},
		Risks:       []Risk{{Risk: "vendor lead time", Timestamp: "00:10:00", Impact: "delays launch"}},
	}
	start := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

	got := BuildMemo("Planning Sync", start, notes)

	order := []string{"# Planning Sync", "## Key Points", "## Decisions", "## Action Items", "## Risks"}
	lastIdx := -1
	for _, marker := range order {
		idx := strings.Index(got, marker)
		if idx == -1 {
			t.Fatalf("memo missing section %q\n%s", marker, got)
		}
		if idx <= lastIdx {
			t.Fatalf("section %q out of order", marker)
		}
		lastIdx = idx
	}

	for _, want := range []string{"2026-03-05", "reviewed Q3 spend", "ship v2 next sprint", "blocked customers waiting", "file the RFC", "owner: dana", "vendor lead time", "impact: delays launch"} {
		if !strings.Contains(got, want) {
			t.Fatalf("memo missing %q\n%s", want, got)
		}
	}
}

func TestBuildMemoHandlesEmptyCategories(t *testing.T) {
	got := BuildMemo("Empty Meeting", time.Now(), Empty())
	if strings.Count(got, "_None recorded._") != 4 {
		t.Fatalf("expected all four sections to report no items, got:\n%s", got)
	}
}
