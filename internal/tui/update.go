package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lastned/lastned/internal/download"
	"github.com/lastned/lastned/internal/engine/events"
	"github.com/lastned/lastned/internal/engine/types"
	"github.com/lastned/lastned/internal/utils"
)

func (m RootModel) findItem(id string) *ItemModel {
	for _, d := range m.items {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// Update handles messages and updates the model
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case events.BatchStartedMsg:
		utils.Debug("TUI: batch %s started with %d items", msg.BatchID, msg.Total)
		cmds = append(cmds, listenForActivity(m.eventCh))

	case events.ItemStartedMsg:
		if d := m.findItem(msg.ItemID); d != nil {
			d.Status = types.StatusRunning
			d.Phase = ""
			d.Percent = 0
			d.Reason = ""
			d.StartTime = time.Now()
			cmds = append(cmds, d.progress.SetPercent(0))
		}
		cmds = append(cmds, listenForActivity(m.eventCh))

	case events.ItemProgressMsg:
		if d := m.findItem(msg.ItemID); d != nil && d.Status == types.StatusRunning {
			d.Phase = msg.Phase
			d.Elapsed = time.Since(d.StartTime)
			if msg.Percent != d.Percent {
				d.Percent = msg.Percent
				cmds = append(cmds, d.progress.SetPercent(msg.Percent/100))
			}
		}
		cmds = append(cmds, listenForActivity(m.eventCh))

	case events.BatchProgressMsg:
		m.batchStatus = msg.Status
		if msg.ItemStatus != "" {
			m.itemStatus = msg.ItemStatus
		}
		if msg.Percent != m.batchPercent {
			m.batchPercent = msg.Percent
			cmds = append(cmds, m.total.SetPercent(msg.Percent/100))
		}
		cmds = append(cmds, listenForActivity(m.eventCh))

	case events.ItemCompleteMsg:
		if d := m.findItem(msg.ItemID); d != nil {
			d.Status = types.StatusCompleted
			d.Percent = 100
			d.DestPath = msg.DestPath
			d.Elapsed = msg.Elapsed
			cmds = append(cmds, d.progress.SetPercent(1.0))
		}
		cmds = append(cmds, listenForActivity(m.eventCh))

	case events.ItemCancelledMsg:
		if d := m.findItem(msg.ItemID); d != nil {
			d.Status = types.StatusCancelled
			d.Phase = "Cancelled"
		}
		cmds = append(cmds, listenForActivity(m.eventCh))

	case events.ItemErrorMsg:
		if d := m.findItem(msg.ItemID); d != nil {
			d.Status = types.StatusFailed
			d.Phase = "Failed"
			if msg.Err != nil {
				d.Reason = msg.Err.Error()
			}
		}
		cmds = append(cmds, listenForActivity(m.eventCh))

	case events.BatchDoneMsg:
		m.running = false
		m.batchStatus = msg.Status
		if msg.Cancelled {
			m.itemStatus = download.StatusCancelledByUser
		} else if msg.Status == download.BatchDone {
			m.batchPercent = 100
			cmds = append(cmds, m.total.SetPercent(1.0))
		}
		if m.quitting {
			return m, tea.Quit
		}
		cmds = append(cmds, listenForActivity(m.eventCh))

	case batchFinishedMsg:
		if msg.err != nil {
			m.running = false
			m.itemStatus = msg.err.Error()
			if m.quitting {
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.total.Width = max(msg.Width-ProgressBarWidthOffset*2, 10)
		for _, d := range m.items {
			d.progress.Width = max(msg.Width/3, 10)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case DashboardState:
			return m.updateDashboard(msg)
		case InputState:
			return m.updateInput(msg)
		}
	}

	// Propagate messages to progress bars
	if fm, ok := msg.(progress.FrameMsg); ok {
		newModel, cmd := m.total.Update(fm)
		if p, ok := newModel.(progress.Model); ok {
			m.total = p
		}
		cmds = append(cmds, cmd)
		for i := range m.items {
			newModel, cmd := m.items[i].progress.Update(fm)
			if p, ok := newModel.(progress.Model); ok {
				m.items[i].progress = p
			}
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Quit):
		if m.running {
			// Leave once the batch reports it has stopped and cleaned up
			m.quitting = true
			m.itemStatus = download.StatusCancelling
			m.batchStatus = download.BatchStopping
			m.Service.Cancel()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, Keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, Keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case key.Matches(msg, Keys.Toggle):
		if !m.running && m.cursor < len(m.items) {
			d := m.items[m.cursor]
			d.Request.Selected = !d.Request.Selected
		}

	case key.Matches(msg, Keys.Add):
		if m.running {
			return m, nil
		}
		m.state = InputState
		m.focusedInput = inputURL
		for i := range m.inputs {
			m.inputs[i].SetValue("")
			m.inputs[i].Blur()
		}
		m.inputs[inputURL].Focus()

	case key.Matches(msg, Keys.Remove):
		if !m.running && m.cursor < len(m.items) {
			m.items = append(m.items[:m.cursor], m.items[m.cursor+1:]...)
			if m.cursor >= len(m.items) && m.cursor > 0 {
				m.cursor--
			}
		}

	case key.Matches(msg, Keys.Clear):
		if !m.running {
			m.removeFinished()
		}

	case key.Matches(msg, Keys.Start):
		if m.running {
			m.itemStatus = download.StatusCancelling
			m.batchStatus = download.BatchStopping
			m.Service.Cancel()
			return m, nil
		}
		return m.startBatch()
	}
	return m, nil
}

// removeFinished drops completed rows.
func (m *RootModel) removeFinished() {
	kept := m.items[:0]
	for _, d := range m.items {
		if d.Status != types.StatusCompleted {
			kept = append(kept, d)
		}
	}
	m.items = kept
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
}

func (m RootModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, InputKeys.Cancel):
		m.state = DashboardState
		return m, nil

	case key.Matches(msg, InputKeys.Submit):
		rawURL := strings.TrimSpace(m.inputs[inputURL].Value())
		if rawURL == "" {
			// URL is mandatory
			m.focusInput(inputURL)
			return m, nil
		}

		title := strings.TrimSpace(m.inputs[inputTitle].Value())
		if title == "" {
			if derived, err := utils.TitleFromURL(rawURL); err == nil {
				title = derived
			}
		}
		req := m.Runtime.ApplyDefaults(types.DownloadRequest{
			URL:           rawURL,
			Title:         title,
			SeasonEpisode: strings.TrimSpace(m.inputs[inputEpisode].Value()),
			Selected:      true,
		})
		m.items = append(m.items, NewItemModel(req))
		m.cursor = len(m.items) - 1
		m.state = DashboardState
		utils.Debug("TUI: added %s", req.URL)
		return m, nil

	case key.Matches(msg, InputKeys.Next):
		m.focusInput((m.focusedInput + 1) % inputCount)
		return m, nil

	case key.Matches(msg, InputKeys.Prev):
		m.focusInput((m.focusedInput + inputCount - 1) % inputCount)
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusedInput], cmd = m.inputs[m.focusedInput].Update(msg)
	return m, cmd
}

func (m *RootModel) focusInput(i int) {
	m.inputs[m.focusedInput].Blur()
	m.focusedInput = i
	m.inputs[i].Focus()
}
