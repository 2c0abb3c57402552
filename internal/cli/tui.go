package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rollfed/gangrun/pkg/impose"
	"github.com/rollfed/gangrun/pkg/plan"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// LayoutListModel - Interactive layout selection
// =============================================================================

// LayoutSelection holds the result of the layout picker.
type LayoutSelection struct {
	Option *plan.LayoutOption
}

// LayoutListModel is the bubbletea model for interactive layout selection.
type LayoutListModel struct {
	Options    []plan.LayoutOption
	SelectedID string
	Cursor     int
	Selected   *LayoutSelection
	Height     int
	Offset     int
}

// NewLayoutListModel creates a layout list model with the cursor on the
// currently selected candidate.
func NewLayoutListModel(options []plan.LayoutOption, selectedID string) LayoutListModel {
	cursor := 0
	for i, o := range options {
		if o.ID == selectedID {
			cursor = i
			break
		}
	}
	return LayoutListModel{
		Options:    options,
		SelectedID: selectedID,
		Cursor:     cursor,
		Height:     15,
		Offset:     0,
	}
}

func (m LayoutListModel) Init() tea.Cmd {
	return nil
}

func (m LayoutListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Options)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			option := m.Options[m.Cursor]
			m.Selected = &LayoutSelection{Option: &option}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m LayoutListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Layout"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Options) {
		end = len(m.Options)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		o := m.Options[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		name := o.ID
		if o.ID == m.SelectedID {
			name += " ✓"
		}

		rewind := "—"
		if n := o.RewindingRuns(); n > 0 {
			rewind = fmt.Sprintf("%d", n)
		}

		rows = append(rows, []string{
			cursor,
			name,
			fmt.Sprintf("%d", len(o.Runs)),
			fmt.Sprintf("%d", o.TotalFrames),
			fmt.Sprintf("%.1f", o.TotalMeters),
			fmt.Sprintf("%.1f", o.TotalWasteMeters),
			rewind,
			fmt.Sprintf("%.3f", o.OverallScore),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Layout", "Runs", "Frames", "Meters", "Waste", "Rewind", "Score").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}

			actualIdx := m.Offset + row
			if actualIdx >= len(m.Options) {
				return lipgloss.NewStyle()
			}
			o := m.Options[actualIdx]

			if actualIdx == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			}
			if o.IsSuggested() {
				return lipgloss.NewStyle().Foreground(colorGreen)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Options))))

	return b.String()
}

// pickLayout runs the interactive picker and returns the chosen layout id,
// or "" when the user quit without choosing.
func pickLayout(doc *plan.PlanDocument) (string, error) {
	p := tea.NewProgram(NewLayoutListModel(doc.Options, doc.SelectedID))
	finalModel, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("layout picker: %w", err)
	}

	fm, ok := finalModel.(LayoutListModel)
	if !ok || fm.Selected == nil {
		return "", nil
	}
	return fm.Selected.Option.ID, nil
}

// =============================================================================
// ImposeProgressModel - Live batch progress
// =============================================================================

// progressMsg carries an orchestrator progress snapshot into the view.
type progressMsg impose.Progress

// batchDoneMsg signals that the batch returned and the view can close.
type batchDoneMsg struct{}

// ImposeProgressModel is the bubbletea model rendering a live impose batch.
// Quitting does not abandon the batch: the first q/ctrl+c cancels the
// orchestrator context and the view stays up until the batch winds down.
type ImposeProgressModel struct {
	OrderID    string
	Progress   impose.Progress
	Total      int
	Cancelling bool

	cancel context.CancelFunc
}

// NewImposeProgressModel creates a progress model for a batch of total runs.
func NewImposeProgressModel(orderID string, total int, cancel context.CancelFunc) ImposeProgressModel {
	return ImposeProgressModel{
		OrderID:  orderID,
		Progress: impose.Progress{Status: impose.BatchIdle, Total: total},
		Total:    total,
		cancel:   cancel,
	}
}

func (m ImposeProgressModel) Init() tea.Cmd {
	return nil
}

func (m ImposeProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.Progress = impose.Progress(msg)
	case batchDoneMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.Cancelling {
				m.Cancelling = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
	}
	return m, nil
}

func (m ImposeProgressModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Imposing " + m.OrderID))
	b.WriteString("\n")
	if m.Cancelling {
		b.WriteString(StyleWarning.Render("cancelling after the current run..."))
	} else {
		b.WriteString(listDimStyle.Render("q cancel"))
	}
	b.WriteString("\n\n")

	done := len(m.Progress.CompletedRunIDs) + len(m.Progress.Errors)
	b.WriteString(renderBar(done, m.Total, 30))
	if m.Progress.Status == impose.BatchImposing {
		b.WriteString("  ")
		b.WriteString(listSelectedStyle.Render(fmt.Sprintf("run %d · %d/%d",
			m.Progress.CurrentRunNumber, m.Progress.CurrentIndex, m.Total)))
	}
	b.WriteString("\n\n")

	for _, id := range m.Progress.CompletedRunIDs {
		b.WriteString(styleIconSuccess.Render(iconSuccess))
		b.WriteString(" " + id + "\n")
	}
	for _, e := range m.Progress.Errors {
		b.WriteString(styleIconError.Render(iconError))
		b.WriteString(" " + e + "\n")
	}

	return b.String()
}

// renderBar draws a fixed-width progress bar.
func renderBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if done > total {
		done = total
	}
	filled := done * width / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return StyleHighlight.Render(bar) + listDimStyle.Render(fmt.Sprintf(" %d/%d", done, total))
}
