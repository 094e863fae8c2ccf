package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lastned/lastned/internal/engine/types"
)

func (m RootModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.state == InputState {
		content := lipgloss.JoinVertical(lipgloss.Left,
			"",
			lipgloss.JoinHorizontal(lipgloss.Left, LabelStyle.Render("URL:"), m.inputs[inputURL].View()),
			"",
			lipgloss.JoinHorizontal(lipgloss.Left, LabelStyle.Render("Title:"), m.inputs[inputTitle].View()),
			"",
			lipgloss.JoinHorizontal(lipgloss.Left, LabelStyle.Render("Episode:"), m.inputs[inputEpisode].View()),
			"",
			lipgloss.NewStyle().Foreground(ColorGray).Render(fmt.Sprintf("Resolution %s, audio %s",
				m.Runtime.GetDefaultResolution(), m.Runtime.GetDefaultLanguage())),
			"",
			m.help.View(InputKeys),
		)
		paddedContent := lipgloss.NewStyle().Padding(0, 2).Render(content)
		box := renderBtopBox("Add Download", paddedContent, PopupWidth, PopupHeight, ColorNeonPink, false)
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	availableWidth := m.width - 2

	// --- HEADER: batch status and aggregate bar ---
	completed, failed, pending := m.CalculateStats()
	stats := fmt.Sprintf("%d pending · %d done · %d failed", pending, completed, failed)
	header := lipgloss.JoinVertical(lipgloss.Left,
		LogoStyle.Render("lastned"),
		StatusLineStyle.Render(orDefault(m.batchStatus, "Idle")),
		lipgloss.NewStyle().MarginLeft(1).Render(m.total.ViewAs(m.batchPercent/100)),
		FooterStyle.Render(stats),
	)
	headerBox := renderBtopBox("Batch", header, availableWidth, HeaderHeight, ColorNeonPurple, false)

	// --- LIST ---
	listHeight := m.height - HeaderHeight - FooterHeight - 2
	if listHeight < MinListHeight {
		listHeight = MinListHeight
	}
	var listContent string
	if len(m.items) == 0 {
		listContent = lipgloss.Place(availableWidth-4, listHeight-2, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(ColorNeonCyan).Render("No downloads, press [A] to add one"))
	} else {
		listContent = m.renderList(availableWidth-4, (listHeight-2)/RowHeight)
	}
	listBox := renderBtopBox("Downloads", listContent, availableWidth, listHeight, ColorBorder, false)

	// --- FOOTER ---
	footer := StatusLineStyle.Render(truncateString(m.itemStatus, availableWidth-4))
	if m.itemStatus == "" {
		footer = FooterStyle.Render(m.help.View(Keys))
	}

	return lipgloss.JoinVertical(lipgloss.Left, headerBox, listBox, footer)
}

// renderList draws up to rows items, scrolled so the cursor stays visible.
func (m RootModel) renderList(width, rows int) string {
	if rows < 1 {
		rows = 1
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.items))

	var lines []string
	for i := start; i < end; i++ {
		d := m.items[i]

		check := "[ ]"
		if d.Request.Selected {
			check = "[x]"
		}
		style := ItemStyle
		if i == m.cursor {
			style = SelectedItemStyle
		}

		title := truncateString(d.Title(), width/2)
		line := fmt.Sprintf("%s %s", check, title)
		right := getItemStatus(d)
		gap := width - lipgloss.Width(line) - lipgloss.Width(right)
		if gap < 1 {
			gap = 1
		}
		lines = append(lines, style.Render(line)+strings.Repeat(" ", gap)+right)

		detail := PhaseStyle.Render(truncateString(itemDetail(d), width-d.progress.Width-2))
		lines = append(lines, "    "+d.progress.ViewAs(d.Percent/100)+"  "+detail)
	}
	return strings.Join(lines, "\n")
}

func itemDetail(d *ItemModel) string {
	switch d.Status {
	case types.StatusFailed:
		return d.Reason
	case types.StatusCompleted:
		return fmt.Sprintf("%s (%s)", d.DestPath, d.Elapsed.Round(time.Second))
	}
	return d.Phase
}

func getItemStatus(d *ItemModel) string {
	style := lipgloss.NewStyle()

	switch d.Status {
	case types.StatusFailed:
		return style.Foreground(ColorStateError).Render("✖ Failed")
	case types.StatusCompleted:
		return style.Foreground(ColorStateDone).Render("✔ Done")
	case types.StatusCancelled:
		return style.Foreground(ColorStateCancelled).Render("■ Cancelled")
	case types.StatusRunning:
		return style.Foreground(ColorStateDownloading).Render(fmt.Sprintf("⬇ %.0f%%", d.Percent))
	default:
		return style.Foreground(ColorStatePending).Render("o Pending")
	}
}

// CalculateStats counts rows by outcome; cancelled rows count as pending.
func (m RootModel) CalculateStats() (completed, failed, pending int) {
	for _, d := range m.items {
		switch d.Status {
		case types.StatusCompleted:
			completed++
		case types.StatusFailed:
			failed++
		default:
			pending++
		}
	}
	return
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncateString(s string, i int) string {
	if i <= 3 {
		return s
	}
	runes := []rune(s)
	if len(runes) > i {
		return string(runes[:i-3]) + "..."
	}
	return s
}

// renderBtopBox creates a btop-style box with the title embedded in the top border.
// Example: ╭─ TITLE ─────────────────────────────────╮
func renderBtopBox(title string, content string, width, height int, borderColor lipgloss.Color, titleRight bool) string {
	const (
		topLeft     = "╭"
		topRight    = "╮"
		bottomLeft  = "╰"
		bottomRight = "╯"
		horizontal  = "─"
		vertical    = "│"
	)

	innerWidth := width - 2
	if innerWidth < 1 {
		innerWidth = 1
	}

	titleText := fmt.Sprintf(" %s ", title)
	remainingWidth := innerWidth - lipgloss.Width(titleText) - 1
	if remainingWidth < 0 {
		remainingWidth = 0
	}

	border := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Foreground(ColorNeonCyan).Bold(true)

	var topBorder string
	if titleRight {
		topBorder = border.Render(topLeft+strings.Repeat(horizontal, remainingWidth)) +
			titleStyle.Render(titleText) +
			border.Render(horizontal+topRight)
	} else {
		topBorder = border.Render(topLeft+horizontal) +
			titleStyle.Render(titleText) +
			border.Render(strings.Repeat(horizontal, remainingWidth)+topRight)
	}

	bottomBorder := border.Render(bottomLeft + strings.Repeat(horizontal, innerWidth) + bottomRight)

	contentLines := strings.Split(content, "\n")
	innerHeight := height - 2

	wrappedLines := make([]string, 0, innerHeight)
	for i := 0; i < innerHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lineWidth := lipgloss.Width(line)
		if lineWidth < innerWidth {
			line += strings.Repeat(" ", innerWidth-lineWidth)
		} else if lineWidth > innerWidth {
			line = lipgloss.NewStyle().MaxWidth(innerWidth).Render(line)
		}
		wrappedLines = append(wrappedLines, border.Render(vertical)+line+border.Render(vertical))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		topBorder,
		strings.Join(wrappedLines, "\n"),
		bottomBorder,
	)
}
