package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/lastned/lastned/internal/core"
	"github.com/lastned/lastned/internal/download"
	"github.com/lastned/lastned/internal/engine/types"
)

type UIState int

const (
	DashboardState UIState = iota
	InputState
)

// Input field order in the add dialog
const (
	inputURL = iota
	inputTitle
	inputEpisode
	inputCount
)

// ItemModel is one row of the list as the UI knows it. It is only changed
// from events, never shared with the running batch.
type ItemModel struct {
	ID       string
	Request  types.DownloadRequest
	Status   types.ItemStatus
	Phase    string
	Percent  float64
	Reason   string
	DestPath string

	StartTime time.Time
	Elapsed   time.Duration

	progress progress.Model
}

// NewItemModel creates a pending row for req.
func NewItemModel(req types.DownloadRequest) *ItemModel {
	return &ItemModel{
		ID:       uuid.New().String(),
		Request:  req,
		Status:   types.StatusPending,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

// Title is the label shown for the row.
func (d *ItemModel) Title() string {
	if name := d.Request.DisplayName(); name != "" {
		return name
	}
	return d.Request.URL
}

// batchFinishedMsg is returned by the command running the batch.
type batchFinishedMsg struct {
	results []download.Result
	err     error
}

type RootModel struct {
	items  []*ItemModel
	width  int
	height int
	state  UIState

	inputs       []textinput.Model
	focusedInput int

	Service  core.DownloadService
	Runtime  *types.RuntimeConfig
	eventCh  <-chan interface{}
	ctx      context.Context
	running  bool
	quitting bool

	batchPercent float64
	batchStatus  string
	itemStatus   string
	total        progress.Model
	help         help.Model

	// Navigation
	cursor int
}

// InitialRootModel builds the dashboard with reqs queued as selected items.
func InitialRootModel(ctx context.Context, svc core.DownloadService, runtime *types.RuntimeConfig, reqs []types.DownloadRequest) RootModel {
	urlInput := textinput.New()
	urlInput.Placeholder = "https://tv.nrk.no/serie/..."
	urlInput.Focus()
	urlInput.Width = InputWidth
	urlInput.Prompt = ""

	titleInput := textinput.New()
	titleInput.Placeholder = "(from URL)"
	titleInput.Width = InputWidth
	titleInput.Prompt = ""

	episodeInput := textinput.New()
	episodeInput.Placeholder = "S01E01"
	episodeInput.Width = InputWidth
	episodeInput.Prompt = ""

	if ctx == nil {
		ctx = context.Background()
	}
	m := RootModel{
		inputs:  []textinput.Model{urlInput, titleInput, episodeInput},
		state:   DashboardState,
		Service: svc,
		Runtime: runtime,
		ctx:     ctx,
		total:   progress.New(progress.WithDefaultGradient()),
		help:    help.New(),
	}
	for _, req := range reqs {
		m.items = append(m.items, NewItemModel(runtime.ApplyDefaults(req)))
	}
	return m
}

func (m RootModel) Init() tea.Cmd {
	return nil
}

// Items returns the rows in display order.
func (m RootModel) Items() []*ItemModel {
	return m.items
}

func listenForActivity(sub <-chan interface{}) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-sub
		if !ok {
			return nil
		}
		return msg
	}
}

// startBatch subscribes to events and runs the selected rows in the background.
func (m RootModel) startBatch() (RootModel, tea.Cmd) {
	if m.Service == nil || m.running {
		return m, nil
	}

	items := make([]*download.Item, 0, len(m.items))
	for _, d := range m.items {
		it := download.NewItem(d.ID, d.Request)
		it.Status = d.Status
		items = append(items, it)
	}
	if len(download.Select(items)) == 0 {
		m.itemStatus = download.StatusNothingSelected
		return m, nil
	}

	var cmds []tea.Cmd
	// One subscription serves every batch; each event re-arms the listener
	if m.eventCh == nil {
		ch, _, err := m.Service.StreamEvents(m.ctx)
		if err != nil {
			m.itemStatus = err.Error()
			return m, nil
		}
		m.eventCh = ch
		cmds = append(cmds, listenForActivity(ch))
	}
	m.running = true
	m.batchPercent = 0
	m.batchStatus = ""
	m.itemStatus = download.StatusStarting

	svc, ctx := m.Service, m.ctx
	run := func() tea.Msg {
		results, err := svc.RunBatch(ctx, items)
		return batchFinishedMsg{results: results, err: err}
	}
	cmds = append(cmds, run, m.total.SetPercent(0))
	return m, tea.Batch(cmds...)
}
