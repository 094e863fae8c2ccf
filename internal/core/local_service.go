package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lastned/lastned/internal/download"
	"github.com/lastned/lastned/internal/engine/events"
	"github.com/lastned/lastned/internal/engine/types"
	"github.com/lastned/lastned/internal/history"
	"github.com/lastned/lastned/internal/metrics"
)

// ErrBatchRunning is returned when a batch is started while another one runs.
var ErrBatchRunning = errors.New("a batch is already running")

// ErrServiceClosed is returned after Shutdown.
var ErrServiceClosed = errors.New("service is shut down")

// publishTimeout bounds how long a lifecycle event waits for a slow listener.
const publishTimeout = 2 * time.Second

// LocalDownloadService runs batches in-process.
type LocalDownloadService struct {
	seq           *download.Sequencer
	Metrics       *metrics.Metrics // optional
	RecordHistory bool             // record finished items in the history store

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc

	mu        sync.Mutex
	closed    bool
	listeners map[int]*listener
	nextID    int
}

// listener is one event subscription. done is closed before ch so a
// publisher blocked on a slow reader gives up at once.
type listener struct {
	ch   chan interface{}
	done chan struct{}

	mu     sync.Mutex
	closed bool
	once   sync.Once
}

func newListener() *listener {
	return &listener{
		ch:   make(chan interface{}, types.ProgressChannelBuffer),
		done: make(chan struct{}),
	}
}

// send delivers msg and reports false when a lifecycle event timed out.
func (l *listener) send(msg interface{}, droppable bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return true
	}
	if droppable {
		select {
		case l.ch <- msg:
		default:
		}
		return true
	}
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case l.ch <- msg:
	case <-l.done:
	case <-timer.C:
		return false
	}
	return true
}

func (l *listener) close() {
	l.once.Do(func() {
		close(l.done)
		l.mu.Lock()
		l.closed = true
		close(l.ch)
		l.mu.Unlock()
	})
}

// NewLocalDownloadService creates a service around runner. A nil runner makes
// RunBatch fail, which is enough for front ends that only read history.
func NewLocalDownloadService(runner download.ItemRunner) *LocalDownloadService {
	s := &LocalDownloadService{listeners: make(map[int]*listener)}
	if runner != nil {
		s.seq = download.NewSequencer(runner)
	}
	return s
}

// RunBatch implements DownloadService.
func (s *LocalDownloadService) RunBatch(ctx context.Context, items []*download.Item) ([]download.Result, error) {
	if s.seq == nil {
		return nil, errors.New("no downloader configured")
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrServiceClosed
	}

	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return nil, ErrBatchRunning
	}
	batchCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.runMu.Unlock()

	defer func() {
		cancel()
		s.runMu.Lock()
		s.running = false
		s.cancel = nil
		s.runMu.Unlock()
	}()

	for _, it := range items {
		if it != nil && it.ID == "" {
			it.ID = uuid.New().String()
		}
	}

	obs := &eventObserver{svc: s, batchID: uuid.New().String()}
	if s.Metrics != nil {
		s.Metrics.BatchStarted()
		defer s.Metrics.BatchFinished()
	}

	results := s.seq.RunBatch(batchCtx, items, obs)
	obs.finish()
	return results, nil
}

// Cancel implements DownloadService.
func (s *LocalDownloadService) Cancel() {
	s.runMu.Lock()
	cancel := s.cancel
	s.runMu.Unlock()
	if cancel != nil {
		log.Info().Msg("Cancelling batch")
		cancel()
	}
}

// IsRunning implements DownloadService.
func (s *LocalDownloadService) IsRunning() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

// History implements DownloadService.
func (s *LocalDownloadService) History(limit int) ([]types.DownloadEntry, error) {
	return history.ListEntries(limit)
}

// StreamEvents implements DownloadService.
func (s *LocalDownloadService) StreamEvents(ctx context.Context) (<-chan interface{}, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrServiceClosed
	}

	id := s.nextID
	s.nextID++
	l := newListener()
	s.listeners[id] = l

	cleanup := func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
		l.close()
	}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			cleanup()
		}()
	}
	return l.ch, cleanup, nil
}

// Publish implements DownloadService. Progress events are dropped for a
// listener whose buffer is full; lifecycle events wait up to publishTimeout.
// Sends happen outside s.mu so a slow listener never blocks subscribers.
func (s *LocalDownloadService) Publish(msg interface{}) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrServiceClosed
	}
	targets := make([]*listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		targets = append(targets, l)
	}
	s.mu.Unlock()

	droppable := isProgress(msg)
	for _, l := range targets {
		if !l.send(msg, droppable) {
			log.Warn().Str("event", eventName(msg)).Msg("Dropped event for slow listener")
		}
	}
	return nil
}

// Shutdown implements DownloadService.
func (s *LocalDownloadService) Shutdown() error {
	s.Cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for id, l := range s.listeners {
		delete(s.listeners, id)
		l.close()
	}
	return nil
}

func isProgress(msg interface{}) bool {
	switch msg.(type) {
	case events.ItemProgressMsg, events.BatchProgressMsg:
		return true
	}
	return false
}

func eventName(msg interface{}) string {
	name, err := events.TypeName(msg)
	if err != nil {
		return "unknown"
	}
	return name
}

// eventObserver turns sequencer callbacks into events, metrics and history rows.
type eventObserver struct {
	svc     *LocalDownloadService
	batchID string

	total       int
	completed   int
	failed      int
	stopped     bool
	percent     float64
	status      string
	batchStatus string
}

func (o *eventObserver) publish(msg interface{}) {
	if err := o.svc.Publish(msg); err != nil {
		log.Debug().Err(err).Msg("Event not published")
	}
}

func (o *eventObserver) OnBatchStart(total int) {
	o.total = total
	o.publish(events.BatchStartedMsg{BatchID: o.batchID, Total: total})
}

func (o *eventObserver) OnItemStart(index, total int, item *download.Item) {
	o.publish(events.ItemStartedMsg{
		BatchID: o.batchID,
		ItemID:  item.ID,
		Index:   index,
		Total:   total,
		Title:   item.Title(),
		URL:     item.Request.URL,
	})
}

func (o *eventObserver) OnItemPhase(item *download.Item, phase string) {
	o.publish(events.ItemProgressMsg{ItemID: item.ID, Phase: phase, Percent: item.Progress})
}

func (o *eventObserver) OnItemPercent(item *download.Item, percent float64) {
	o.publish(events.ItemProgressMsg{ItemID: item.ID, Phase: item.Phase, Percent: percent})
}

func (o *eventObserver) OnItemDone(item *download.Item, res download.Result) {
	out := res.Outcome
	switch out.Kind {
	case types.OutcomeCompleted:
		o.completed++
		o.publish(events.ItemCompleteMsg{ItemID: item.ID, Title: item.Title(), DestPath: out.DestPath, Elapsed: res.Elapsed})
	case types.OutcomeCancelled:
		o.publish(events.ItemCancelledMsg{ItemID: item.ID, Title: item.Title()})
	case types.OutcomeFailed:
		o.failed++
		o.publish(events.ItemErrorMsg{ItemID: item.ID, Title: item.Title(), Err: errors.New(out.Reason)})
	}

	if o.svc.Metrics != nil {
		o.svc.Metrics.ObserveItem(out.Kind, res.Elapsed)
	}
	if o.svc.RecordHistory {
		entry := types.DownloadEntry{
			ID:          item.ID,
			URL:         item.Request.URL,
			Title:       item.Title(),
			DestPath:    out.DestPath,
			Status:      string(out.Kind.Status()),
			Reason:      out.Reason,
			Resolution:  item.Request.Resolution,
			CompletedAt: time.Now().Unix(),
			TimeTaken:   res.Elapsed.Milliseconds(),
		}
		if err := history.AddEntry(entry); err != nil {
			log.Warn().Err(err).Str("title", entry.Title).Msg("Failed to record history")
		}
	}
}

func (o *eventObserver) OnStatus(status string) {
	o.status = status
	o.publishProgress()
}

func (o *eventObserver) OnBatchStatus(status string) {
	if status == download.BatchStopped {
		o.stopped = true
	}
	o.batchStatus = status
	o.publishProgress()
}

func (o *eventObserver) OnPercent(percent float64) {
	o.percent = percent
	if o.svc.Metrics != nil {
		o.svc.Metrics.SetBatchProgress(percent)
	}
}

func (o *eventObserver) publishProgress() {
	o.publish(events.BatchProgressMsg{
		BatchID:    o.batchID,
		Percent:    o.percent,
		Status:     o.batchStatus,
		ItemStatus: o.status,
	})
}

func (o *eventObserver) finish() {
	status := download.BatchDone
	switch {
	case o.total == 0:
		status = o.status
	case o.stopped:
		status = download.BatchStopped
	}
	o.publish(events.BatchDoneMsg{
		BatchID:   o.batchID,
		Completed: o.completed,
		Failed:    o.failed,
		Cancelled: o.stopped,
		Status:    status,
	})
}
