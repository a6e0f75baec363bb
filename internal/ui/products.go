package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"shop-chatter/internal/analytics"
	"shop-chatter/internal/shopapi"
)

func FormatPrice(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

// RenderProducts lays products out as an aligned table. Sold out items are
// marked instead of showing a stock count.
func RenderProducts(products []shopapi.Product) string {
	if len(products) == 0 {
		return Styles.Dim.Render("No products found")
	}

	rows := make([][4]string, 0, len(products))
	widths := [4]int{len("ID"), len("NAME"), len("CATEGORY"), len("PRICE")}
	for _, p := range products {
		row := [4]string{strconv.FormatInt(p.ID, 10), p.Name, p.Category, FormatPrice(p.Price)}
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
		rows = append(rows, row)
	}

	pad := func(s string, w int) string {
		return s + strings.Repeat(" ", w-lipgloss.Width(s))
	}

	var b strings.Builder
	header := fmt.Sprintf("%s  %s  %s  %s  %s",
		pad("ID", widths[0]), pad("NAME", widths[1]), pad("CATEGORY", widths[2]), pad("PRICE", widths[3]), "STOCK")
	b.WriteString(Styles.Header.Render(header))
	for i, p := range products {
		row := rows[i]
		stock := strconv.Itoa(p.Stock)
		if p.Stock <= 0 {
			stock = Styles.SoldOut.Render("sold out")
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s  %s  %s  %s  %s",
			pad(row[0], widths[0]),
			Styles.Bold.Render(pad(row[1], widths[1])),
			pad(row[2], widths[2]),
			Styles.Price.Render(pad(row[3], widths[3])),
			stock))
	}
	return b.String()
}

// RenderStats formats a day of usage for the terminal.
func RenderStats(ds *analytics.DailyStats) string {
	var b strings.Builder
	b.WriteString(Styles.Accent.Bold(true).Render("Usage for " + ds.Date))
	b.WriteString("\n\n")
	for _, kv := range [][2]string{
		{"Turns", strconv.Itoa(ds.TotalTurns)},
		{"Unique users", strconv.Itoa(ds.UniqueUsers)},
		{"Searches", strconv.Itoa(ds.Searches)},
		{"Purchases", strconv.Itoa(ds.Purchases)},
		{"Failed", strconv.Itoa(ds.Failures)},
		{"Discarded", strconv.Itoa(ds.Discarded)},
	} {
		b.WriteString(fmt.Sprintf("%s %s\n", Styles.Dim.Render(fmt.Sprintf("%-13s", kv[0]+":")), kv[1]))
	}

	if len(ds.TopQueries) > 0 {
		b.WriteString("\n")
		b.WriteString(Styles.Header.Render("Top queries"))
		for _, q := range ds.TopQueries {
			b.WriteString(fmt.Sprintf("\n  %s %s", Styles.Price.Render(fmt.Sprintf("%3d", q.Count)), q.Query))
		}
		b.WriteString("\n")
	}

	if len(ds.UserStats) > 0 {
		users := make([]string, 0, len(ds.UserStats))
		for u := range ds.UserStats {
			users = append(users, u)
		}
		sort.Strings(users)
		b.WriteString("\n")
		b.WriteString(Styles.Header.Render("Users"))
		for _, u := range users {
			us := ds.UserStats[u]
			b.WriteString(fmt.Sprintf("\n  %s  %d searches, %d purchases, %d failed", Styles.Bold.Render(u), us.Searches, us.Purchases, us.Failures))
		}
		b.WriteString("\n")
	}
	return b.String()
}
