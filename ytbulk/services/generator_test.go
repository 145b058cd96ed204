package services

import (
	"strings"
	"testing"
)

func TestBuildItems(t *testing.T) {
	suggestions := []string{"go tutorial", "go tutorial for beginners", "go tutorial advanced"}

	items := BuildItems("go tutorial", suggestions, 5, 200, 3)

	if len(items) != 5 {
		t.Fatalf("len(items) = %d, want 5", len(items))
	}

	seen := map[string]bool{}
	for i, item := range items {
		if item.Title == "" {
			t.Errorf("item %d has empty title", i)
		}
		if seen[item.Title] {
			t.Errorf("duplicate title %q", item.Title)
		}
		seen[item.Title] = true

		if item.ReuseLimit != 3 {
			t.Errorf("item %d reuse limit = %d, want 3", i, item.ReuseLimit)
		}
		if item.Description == "" {
			t.Errorf("item %d has empty description", i)
		}
		if !strings.Contains(item.Tags, "go tutorial") {
			t.Errorf("item %d tags %q missing seed keyword", i, item.Tags)
		}
	}

	// First three titles come from suggestions, the rest from variants.
	if items[0].Title != "go tutorial" {
		t.Errorf("items[0].Title = %q", items[0].Title)
	}
	if items[3].Title != "go tutorial #4" {
		t.Errorf("items[3].Title = %q, want fallback variant", items[3].Title)
	}
}

func TestBuildDescription_Truncation(t *testing.T) {
	suggestions := []string{"alpha topic", "beta topic", "gamma topic", "delta topic"}

	desc := buildDescription("alpha topic", "alpha", suggestions, 80)
	if len(desc) > 80 {
		t.Errorf("description length = %d, want <= 80", len(desc))
	}
	if strings.HasSuffix(desc, " ") {
		t.Errorf("description has trailing space: %q", desc)
	}
}

func TestBuildTags_CapsAtTen(t *testing.T) {
	suggestions := make([]string, 20)
	for i := range suggestions {
		suggestions[i] = strings.Repeat("x", i+1)
	}

	tags := buildTags("seed", suggestions)
	if got := len(strings.Split(tags, ",")); got > 10 {
		t.Errorf("tag count = %d, want <= 10", got)
	}
}
