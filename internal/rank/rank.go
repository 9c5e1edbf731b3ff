// Package rank orders enriched jobs and persists them to the results CSV.
package rank

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/amishk599/jobmatch/internal/model"
)

// Sort orders jobs by match score, then rating, both descending. Ties keep
// their input order.
func Sort(jobs []model.Job) {
	slices.SortStableFunc(jobs, func(a, b model.Job) int {
		if c := cmp.Compare(b.MatchScore, a.MatchScore); c != 0 {
			return c
		}
		return cmp.Compare(b.Rating, a.Rating)
	})
}

// Top returns the first n jobs, or all of them when there are fewer.
func Top(jobs []model.Job, n int) []model.Job {
	if n < 0 || n >= len(jobs) {
		return jobs
	}
	return jobs[:n]
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Table renders the first n jobs as a summary table.
func Table(jobs []model.Job, n int) string {
	top := Top(jobs, n)
	rows := make([][]string, 0, len(top))
	for i, j := range top {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			ellipsize(j.Title, 40),
			ellipsize(j.Company, 24),
			strconv.Itoa(j.MatchScore),
			formatRating(j.Rating),
			ellipsize(j.MatchReason, 60),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("#", "Title", "Company", "Score", "Rating", "Reason").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

func formatRating(r float64) string {
	if r == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", r)
}

func ellipsize(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
