package simulate

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	winnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// Render formats the result as a terminal summary.
func (r *Result) Render() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Game %s simulation", r.Mode)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d rounds, seed %d, %s", r.Rounds, r.Seed, r.Elapsed.Round(time.Millisecond))))
	b.WriteString("\n\n")

	rows := []string{
		fmt.Sprintf("%-10s %-12s %7s %7s %7s %8s",
			headerStyle.Render("team"),
			headerStyle.Render("strategy"),
			headerStyle.Render("won"),
			headerStyle.Render("bids"),
			headerStyle.Render("made"),
			headerStyle.Render("points")),
		teamRow("even", r.Even, r.Even.RoundsWon >= r.Odd.RoundsWon),
		teamRow("odd", r.Odd, r.Odd.RoundsWon >= r.Even.RoundsWon),
	}
	b.WriteString(boxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("average winning bid %.1f", r.AvgBid)))

	return b.String()
}

func teamRow(team string, stats TeamStats, leading bool) string {
	row := fmt.Sprintf("%-10s %-12s %7d %7d %7d %8d",
		team, stats.Strategy, stats.RoundsWon, stats.BidsWon, stats.BidsMade, stats.TotalPoints)
	if leading {
		return winnerStyle.Render(row)
	}
	return row
}
