// Package report renders finished shot runs for people and other tools.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"qshot/qsim"
)

// CountTable renders counts as a table of outcome, count and share, in
// outcome order.
func CountTable(counts qsim.Counts) string {
	total := counts.Total()
	rows := make([][]string, 0, len(counts))
	for _, k := range counts.Keys() {
		n := counts[k]
		share := 0.0
		if total > 0 {
			share = 100 * float64(n) / float64(total)
		}
		rows = append(rows, []string{k, strconv.Itoa(n), fmt.Sprintf("%.2f%%", share)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("outcome", "count", "share").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return outcomeStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

// Summary renders a run header followed by its count table.
func Summary(name string, res *qsim.Result) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(name))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf("run %s  seed %d  workers %d  %s",
		res.ID, res.Seed, res.Workers, res.Elapsed.Round(time.Millisecond))))
	sb.WriteString("\n")
	if !res.Complete() {
		sb.WriteString(warnStyle.Render(fmt.Sprintf("partial run: %d of %d shots", res.Completed, res.Requested)))
		sb.WriteString("\n")
	}
	sb.WriteString(CountTable(res.Counts))
	sb.WriteString("\n")
	return sb.String()
}
