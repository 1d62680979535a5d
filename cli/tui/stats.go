package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/chipstream/cli/reader"
)

// StatsModel is a Bubble Tea model for the output stats view.
type StatsModel struct {
	data     *reader.OutputStats
	table    table.Model
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model. data must be *reader.OutputStats.
func NewStatsModel(data any) StatsModel {
	stats, _ := data.(*reader.OutputStats)

	var rows []table.Row
	if stats != nil {
		for _, s := range stats.Streams {
			rows = append(rows, table.Row{s.Chip, strconv.FormatInt(s.Records, 10), strconv.FormatInt(s.Bytes, 10)})
		}
	}

	styles := tableStyles()
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Chip", Width: 16},
			{Title: "Records", Width: 10},
			{Title: "Bytes", Width: 12},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithStyles(styles),
		table.WithHeight(tableHeight(styles, len(rows), 15)),
	)

	return StatsModel{data: stats, table: t}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}
	if m.data == nil {
		return "Invalid data type for " + ViewStatsOutput + "\n"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run Output: " + m.data.Location))
	b.WriteString("\n")

	if m.data.HasSummary {
		s := m.data.Summary
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			renderStatBox("Events", s.Events, highlightColor),
			renderStatBox("Chips", s.ChipsAccepted, successColor),
			renderStatBox("Split", s.ChipsSplit, warningColor),
			renderStatBox("Skipped", s.ChipsSkipped, errorColor),
		))
		b.WriteString("\n")

		state := "consistent"
		if !m.data.Consistent() {
			state = "inconsistent"
		}
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Records:"),
			VerdictStyle(state).Render(fmt.Sprintf("%d in %d streams (%s)", m.data.TotalRecords, len(m.data.Streams), state))))
	} else {
		b.WriteString(WarningStyle.Render("No run summary found"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(BoxStyle.Padding(0, 1).Render(m.table.View()))

	help := HelpStyle.Render("↑/↓ scroll • q quit")
	return b.String() + "\n" + help
}

// RenderStatsStatic renders the stats view without starting a program.
func RenderStatsStatic(data any) string {
	model := NewStatsModel(data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
