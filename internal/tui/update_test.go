package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lastned/lastned/internal/download"
	"github.com/lastned/lastned/internal/engine/events"
	"github.com/lastned/lastned/internal/engine/types"
)

// stubService records calls and never runs anything.
type stubService struct {
	events    chan interface{}
	cancelled int
	batches   [][]*download.Item
}

func newStubService() *stubService {
	return &stubService{events: make(chan interface{}, 10)}
}

func (s *stubService) RunBatch(ctx context.Context, items []*download.Item) ([]download.Result, error) {
	s.batches = append(s.batches, items)
	return nil, nil
}

func (s *stubService) Cancel() { s.cancelled++ }

func (s *stubService) IsRunning() bool { return false }

func (s *stubService) History(limit int) ([]types.DownloadEntry, error) { return nil, nil }

func (s *stubService) StreamEvents(ctx context.Context) (<-chan interface{}, func(), error) {
	return s.events, func() {}, nil
}

func (s *stubService) Publish(msg interface{}) error {
	s.events <- msg
	return nil
}

func (s *stubService) Shutdown() error { return nil }

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func update(t *testing.T, m RootModel, msg tea.Msg) (RootModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	rm, ok := next.(RootModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return rm, cmd
}

func newTestModel(svc *stubService, urls ...string) RootModel {
	var reqs []types.DownloadRequest
	for _, u := range urls {
		reqs = append(reqs, types.DownloadRequest{URL: u, Title: strings.ToUpper(u), Selected: true})
	}
	rt := &types.RuntimeConfig{DefaultResolution: "1080", DefaultLanguage: "Svensk"}
	return InitialRootModel(context.Background(), svc, rt, reqs)
}

func TestInitialRootModel_AppliesDefaults(t *testing.T) {
	m := newTestModel(newStubService(), "a")
	items := m.Items()
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Request.Resolution != "1080" || items[0].Request.Language != "Svensk" {
		t.Errorf("Defaults not applied: %+v", items[0].Request)
	}
	if items[0].ID == "" || items[0].Status != types.StatusPending {
		t.Errorf("Unexpected item state: %+v", items[0])
	}
}

func TestUpdate_ToggleAndNavigate(t *testing.T) {
	m := newTestModel(newStubService(), "a", "b")

	m, _ = update(t, m, keyMsg("j"))
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
	m, _ = update(t, m, keyMsg("j"))
	if m.cursor != 1 {
		t.Errorf("cursor moved past the end: %d", m.cursor)
	}

	m, _ = update(t, m, keyMsg(" "))
	if m.items[1].Request.Selected {
		t.Error("space should deselect the item under the cursor")
	}

	m, _ = update(t, m, keyMsg("k"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}

func TestUpdate_AddItemFromDialog(t *testing.T) {
	m := newTestModel(newStubService())

	m, _ = update(t, m, keyMsg("a"))
	if m.state != InputState {
		t.Fatal("a should open the add dialog")
	}

	// Enter with empty URL keeps the dialog open
	m, _ = update(t, m, keyMsg("enter"))
	if m.state != InputState {
		t.Fatal("empty URL must not be accepted")
	}

	m.inputs[inputURL].SetValue("https://tv.nrk.no/serie/side-om-side/sesong/1/episode/2")
	m.inputs[inputEpisode].SetValue("S01E02")
	m, _ = update(t, m, keyMsg("enter"))

	if m.state != DashboardState {
		t.Fatal("dialog should close after adding")
	}
	if len(m.items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(m.items))
	}
	req := m.items[0].Request
	if req.Title != "side om side 1 2" {
		t.Errorf("Title = %q, want title derived from URL", req.Title)
	}
	if req.SeasonEpisode != "S01E02" || !req.Selected || req.Resolution != "1080" {
		t.Errorf("Unexpected request: %+v", req)
	}
}

func TestUpdate_EscClosesDialog(t *testing.T) {
	m := newTestModel(newStubService())
	m, _ = update(t, m, keyMsg("a"))
	m, _ = update(t, m, keyMsg("esc"))
	if m.state != DashboardState || len(m.items) != 0 {
		t.Error("esc should close the dialog without adding")
	}
}

func TestUpdate_StartRunsSelectedItems(t *testing.T) {
	svc := newStubService()
	m := newTestModel(svc, "a", "b")

	m, cmd := update(t, m, keyMsg("s"))
	if !m.running {
		t.Fatal("model should be running after start")
	}
	if cmd == nil {
		t.Fatal("start should return a command")
	}
	if m.eventCh == nil {
		t.Error("start should subscribe to events")
	}

	// Starting again while running cancels instead
	m, _ = update(t, m, keyMsg("s"))
	if svc.cancelled != 1 {
		t.Errorf("Cancel called %d times, want 1", svc.cancelled)
	}
	if m.batchStatus != download.BatchStopping {
		t.Errorf("batchStatus = %q", m.batchStatus)
	}
}

func TestUpdate_StartWithNothingSelected(t *testing.T) {
	m := newTestModel(newStubService(), "a")
	m.items[0].Request.Selected = false

	m, _ = update(t, m, keyMsg("s"))
	if m.running {
		t.Error("nothing selected must not start a batch")
	}
	if m.itemStatus != download.StatusNothingSelected {
		t.Errorf("itemStatus = %q", m.itemStatus)
	}
}

func TestUpdate_EventsUpdateRows(t *testing.T) {
	m := newTestModel(newStubService(), "a", "b")
	m.running = true
	a, b := m.items[0], m.items[1]

	m, _ = update(t, m, events.ItemStartedMsg{ItemID: a.ID, Index: 1, Total: 2})
	if a.Status != types.StatusRunning {
		t.Fatalf("Status = %s", a.Status)
	}

	m, _ = update(t, m, events.ItemProgressMsg{ItemID: a.ID, Phase: "Downloading... (40%)", Percent: 40})
	if a.Percent != 40 || a.Phase != "Downloading... (40%)" {
		t.Errorf("Progress not applied: %.1f %q", a.Percent, a.Phase)
	}

	m, _ = update(t, m, events.BatchProgressMsg{Percent: 20, Status: "Downloading item 1 of 2 (Total: 20%)", ItemStatus: "[1/2] A: Downloading... (40%)"})
	if m.batchPercent != 20 || !strings.Contains(m.itemStatus, "[1/2]") {
		t.Errorf("Batch progress not applied: %.1f %q", m.batchPercent, m.itemStatus)
	}

	m, _ = update(t, m, events.ItemCompleteMsg{ItemID: a.ID, DestPath: "/out/A.mkv"})
	if a.Status != types.StatusCompleted || a.Percent != 100 || a.DestPath != "/out/A.mkv" {
		t.Errorf("Completion not applied: %+v", a)
	}

	m, _ = update(t, m, events.ItemStartedMsg{ItemID: b.ID, Index: 2, Total: 2})
	m, _ = update(t, m, events.ItemErrorMsg{ItemID: b.ID, Err: errors.New("output file missing")})
	if b.Status != types.StatusFailed || b.Reason != "output file missing" {
		t.Errorf("Error not applied: %+v", b)
	}

	m, _ = update(t, m, events.BatchDoneMsg{Completed: 1, Failed: 1, Status: download.BatchDone})
	if m.running {
		t.Error("BatchDoneMsg should end the run")
	}
	if m.batchPercent != 100 {
		t.Errorf("batchPercent = %.1f, want 100", m.batchPercent)
	}

	completed, failed, pending := m.CalculateStats()
	if completed != 1 || failed != 1 || pending != 0 {
		t.Errorf("stats = %d/%d/%d", completed, failed, pending)
	}
}

func TestUpdate_QuitWhileRunningWaitsForBatch(t *testing.T) {
	svc := newStubService()
	m := newTestModel(svc, "a")
	m.running = true

	m, cmd := update(t, m, keyMsg("q"))
	if cmd != nil {
		t.Error("quit while running must wait for the batch to stop")
	}
	if !m.quitting || svc.cancelled != 1 {
		t.Fatalf("quitting=%v cancelled=%d", m.quitting, svc.cancelled)
	}

	_, cmd = update(t, m, events.BatchDoneMsg{Cancelled: true, Status: download.BatchStopped})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg after the batch stopped")
	}
}

func TestUpdate_QuitWhenIdle(t *testing.T) {
	m := newTestModel(newStubService())
	_, cmd := update(t, m, keyMsg("ctrl+c"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestUpdate_RemoveAndClearFinished(t *testing.T) {
	m := newTestModel(newStubService(), "a", "b", "c")
	m.items[0].Status = types.StatusCompleted
	m.items[2].Status = types.StatusCompleted

	m, _ = update(t, m, keyMsg("c"))
	if len(m.items) != 1 || m.items[0].Request.URL != "b" {
		t.Fatalf("clear finished left %d items", len(m.items))
	}

	m, _ = update(t, m, keyMsg("x"))
	if len(m.items) != 0 {
		t.Errorf("remove left %d items", len(m.items))
	}
}

func TestView_RendersRows(t *testing.T) {
	m := newTestModel(newStubService(), "a")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	out := m.View()
	if !strings.Contains(out, "A") || !strings.Contains(out, "Pending") {
		t.Errorf("View missing row content:\n%s", out)
	}

	m, _ = update(t, m, keyMsg("a"))
	if !strings.Contains(m.View(), "Add Download") {
		t.Error("dialog view should show its title")
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("abcdefghij", 6); got != "abc..." {
		t.Errorf("got %q", got)
	}
	if got := truncateString("abc", 6); got != "abc" {
		t.Errorf("got %q", got)
	}
}
