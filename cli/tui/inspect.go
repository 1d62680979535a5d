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

// InspectModel is a Bubble Tea model for the dry-run inspect view.
type InspectModel struct {
	data     *reader.InspectReport
	table    table.Model
	quitting bool
}

// NewInspectModel creates a new inspect model. data must be *reader.InspectReport.
func NewInspectModel(data any) InspectModel {
	report, _ := data.(*reader.InspectReport)

	var rows []table.Row
	if report != nil {
		for _, r := range report.Rows {
			split := ""
			if r.WasSplit {
				split = "yes"
			}
			rows = append(rows, table.Row{
				strconv.FormatUint(uint64(r.EventID), 10),
				r.Chip,
				strconv.Itoa(r.RawHits),
				strconv.Itoa(r.ClusterHits),
				strconv.Itoa(r.NClusters),
				split,
				r.Verdict,
			})
		}
	}

	styles := tableStyles()
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Event", Width: 10},
			{Title: "Chip", Width: 14},
			{Title: "Raw", Width: 6},
			{Title: "Clustered", Width: 10},
			{Title: "Clusters", Width: 9},
			{Title: "Split", Width: 6},
			{Title: "Verdict", Width: 8},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithStyles(styles),
		table.WithHeight(tableHeight(styles, len(rows), 20)),
	)

	return InspectModel{data: report, table: t}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}
	if m.data == nil {
		return "Invalid data type for " + ViewInspectInput + "\n"
	}

	s := m.data.Summary
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Dry run: " + m.data.Input))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Events", s.Events, highlightColor),
		renderStatBox("Accepted", s.ChipsAccepted, successColor),
		renderStatBox("Split", s.ChipsSplit, warningColor),
		renderStatBox("Rejected", s.ChipsSkipped, errorColor),
	))
	b.WriteString("\n\n")
	b.WriteString(BoxStyle.Padding(0, 1).Render(m.table.View()))

	help := HelpStyle.Render(fmt.Sprintf("%d chips visited • ↑/↓ scroll • q quit", s.ChipsVisited()))
	return b.String() + "\n" + help
}
