package ui

import (
	"strings"
	"testing"

	"shop-chatter/internal/analytics"
	"shop-chatter/internal/shopapi"
)

func TestRenderProducts(t *testing.T) {
	out := RenderProducts([]shopapi.Product{
		{ID: 1, Name: "Laptop", Category: "Electronics", Price: 999.99, Stock: 3},
		{ID: 12, Name: "Old Book", Category: "Books", Price: 5, Stock: 0},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d:\n%s", len(lines), out)
	}
	for _, want := range []string{"Laptop", "Electronics", "$999.99", "$5.00", "sold out"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(lines[1], "sold out") {
		t.Errorf("in-stock product marked sold out: %q", lines[1])
	}
}

func TestRenderProducts_Empty(t *testing.T) {
	if out := RenderProducts(nil); !strings.Contains(out, "No products found") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderStats(t *testing.T) {
	out := RenderStats(&analytics.DailyStats{
		Date:       "2024-01-15",
		TotalTurns: 2,
		Searches:   2,
		TopQueries: []analytics.QueryCount{{Query: "laptop", Count: 2}},
		UserStats:  map[string]analytics.UserStats{"alice": {Username: "alice", Searches: 2}},
	})
	for _, want := range []string{"2024-01-15", "laptop", "alice", "2 searches"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}
