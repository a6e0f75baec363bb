package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"shop-chatter/internal/storage"
)

// DailyStats summarizes one day of recorded turns.
type DailyStats struct {
	Date        string               `json:"date"`
	TotalTurns  int                  `json:"total_turns"`
	UniqueUsers int                  `json:"unique_users"`
	Searches    int                  `json:"searches"`
	Purchases   int                  `json:"purchases"`
	Failures    int                  `json:"failures"`
	Discarded   int                  `json:"discarded"`
	TopQueries  []QueryCount         `json:"top_queries"`
	UserStats   map[string]UserStats `json:"user_stats"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// UserStats holds per-user counters.
type UserStats struct {
	Username  string `json:"username"`
	Searches  int    `json:"searches"`
	Purchases int    `json:"purchases"`
	Failures  int    `json:"failures"`
}

const topQueriesLimit = 5

// anonymousUser labels turns made without a session.
const anonymousUser = "(anonymous)"

// AnalyzeDailyEvents aggregates the events that fall on targetDate's day.
func AnalyzeDailyEvents(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:      startOfDay.Format("2006-01-02"),
		UserStats: make(map[string]UserStats),
	}
	queries := make(map[string]int)

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		stats.TotalTurns++

		user := event.Username
		if user == "" {
			user = anonymousUser
		}
		us, ok := stats.UserStats[user]
		if !ok {
			us = UserStats{Username: user}
		}

		switch event.Kind {
		case "search":
			stats.Searches++
			us.Searches++
			if q := strings.ToLower(strings.TrimSpace(event.Query)); q != "" {
				queries[q]++
			}
		case "purchase":
			stats.Purchases++
			us.Purchases++
		}
		switch event.Status {
		case "rolled_back":
			stats.Failures++
			us.Failures++
		case "discarded":
			stats.Discarded++
		}
		stats.UserStats[user] = us
	}

	stats.UniqueUsers = len(stats.UserStats)
	stats.TopQueries = topQueries(queries, topQueriesLimit)
	return stats
}

func topQueries(counts map[string]int, limit int) []QueryCount {
	out := make([]QueryCount, 0, len(counts))
	for q, n := range counts {
		out = append(out, QueryCount{Query: q, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GenerateReportSummary renders the stats as plain text for the admin report.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shop assistant usage for %s:\n\n", ds.Date)
	fmt.Fprintf(&b, "Activity:\n- Turns: %d\n- Unique users: %d\n- Searches: %d\n- Purchases: %d\n- Failed turns: %d\n",
		ds.TotalTurns, ds.UniqueUsers, ds.Searches, ds.Purchases, ds.Failures)
	if ds.Discarded > 0 {
		fmt.Fprintf(&b, "- Discarded turns: %d\n", ds.Discarded)
	}

	if len(ds.TopQueries) > 0 {
		b.WriteString("\nTop queries:\n")
		for _, q := range ds.TopQueries {
			fmt.Fprintf(&b, "- %q: %d\n", q.Query, q.Count)
		}
	}

	if len(ds.UserStats) > 0 {
		users := make([]string, 0, len(ds.UserStats))
		for u := range ds.UserStats {
			users = append(users, u)
		}
		sort.Strings(users)
		fmt.Fprintf(&b, "\nUsers (%d):\n", len(users))
		for _, u := range users {
			us := ds.UserStats[u]
			fmt.Fprintf(&b, "- %s: %d searches, %d purchases", u, us.Searches, us.Purchases)
			if us.Failures > 0 {
				fmt.Fprintf(&b, ", %d failed", us.Failures)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ToJSON serializes the stats for detailed inspection.
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := sonic.ConfigStd.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
