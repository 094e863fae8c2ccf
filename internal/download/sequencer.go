// Package download runs a list of items one after another and folds their
// progress into a single batch percentage.
package download

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lastned/lastned/internal/engine/types"
	"github.com/lastned/lastned/internal/utils"
)

// Batch status lines.
const (
	StatusNothingSelected = "No items selected for download."
	StatusStarting        = "Starting download..."
	StatusCancelling      = "Cancelling..."
	StatusCancelledByUser = "Download cancelled by user."
	StatusAllDone         = "All operations completed!"
	BatchStopping         = "Stopping..."
	BatchStopped          = "Stopped"
	BatchDone             = "Done (Total: 100%)"
)

// Item is one row of a batch. Status, Phase and Progress are updated in place
// while the batch runs.
type Item struct {
	ID       string
	Request  types.DownloadRequest
	Status   types.ItemStatus
	Phase    string
	Progress float64
	Reason   string
	DestPath string
}

// NewItem wraps a request as a pending item.
func NewItem(id string, req types.DownloadRequest) *Item {
	return &Item{ID: id, Request: req, Status: types.StatusPending}
}

// Title is the label shown for the item.
func (it *Item) Title() string {
	if name := it.Request.DisplayName(); name != "" {
		return name
	}
	return it.Request.URL
}

// Result is the outcome of one item that was run.
type Result struct {
	ItemID  string
	Index   int
	Outcome types.Outcome
	Elapsed time.Duration
}

// ItemRunner runs a single request. *single.Downloader satisfies it.
type ItemRunner interface {
	Run(ctx context.Context, req types.DownloadRequest, onPhase func(string), onPercent func(float64)) types.Outcome
}

// Observer receives batch progress. All calls happen on the goroutine running
// RunBatch.
type Observer interface {
	OnBatchStart(total int)
	OnItemStart(index, total int, item *Item)
	OnItemPhase(item *Item, phase string)
	OnItemPercent(item *Item, percent float64)
	OnItemDone(item *Item, res Result)
	// OnStatus reports the current item line, e.g. "[2/4] Skam: Finalizing".
	OnStatus(status string)
	// OnBatchStatus reports the batch line, e.g. "Downloading item 2 of 4 (Total: 30%)".
	OnBatchStatus(status string)
	OnPercent(percent float64)
}

// NopObserver ignores every callback. Embed it to implement only some of Observer.
type NopObserver struct{}

func (NopObserver) OnBatchStart(int) {}
func (NopObserver) OnItemStart(int, int, *Item) {}
func (NopObserver) OnItemPhase(*Item, string) {}
func (NopObserver) OnItemPercent(*Item, float64) {}
func (NopObserver) OnItemDone(*Item, Result) {}
func (NopObserver) OnStatus(string) {}
func (NopObserver) OnBatchStatus(string) {}
func (NopObserver) OnPercent(float64) {}

// Sequencer runs batches through an ItemRunner.
type Sequencer struct {
	Runner ItemRunner
}

// NewSequencer creates a sequencer around runner.
func NewSequencer(runner ItemRunner) *Sequencer {
	return &Sequencer{Runner: runner}
}

// Select returns the items a batch would run: selected and not yet completed, in order.
func Select(items []*Item) []*Item {
	var out []*Item
	for _, it := range items {
		if it == nil || !it.Request.Selected || it.Status == types.StatusCompleted {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Aggregate returns the batch percentage with finished items done and the
// current one at itemPercent.
func Aggregate(finished, total int, itemPercent float64) float64 {
	if total <= 0 {
		return 0
	}
	weight := 100.0 / float64(total)
	return float64(finished)*weight + itemPercent*weight/100.0
}

// RunBatch runs the selected items sequentially. A cancelled item stops the
// batch; a failed one is logged and the batch moves on. It returns one Result
// per item that ran.
func (s *Sequencer) RunBatch(ctx context.Context, items []*Item, obs Observer) []Result {
	if obs == nil {
		obs = NopObserver{}
	}

	selected := Select(items)
	total := len(selected)
	if total == 0 {
		obs.OnStatus(StatusNothingSelected)
		return nil
	}

	log.Info().Int("items", total).Msg("Starting batch download")
	obs.OnBatchStart(total)
	obs.OnStatus(StatusStarting)
	obs.OnBatchStatus(downloadingStatus(1, total, 0))

	var (
		results   []Result
		aggregate float64
		stopped   bool
	)

	report := func(p float64) {
		p = min(p, 100)
		if p < aggregate {
			p = aggregate
		}
		aggregate = p
		obs.OnPercent(aggregate)
	}

	for i, item := range selected {
		if ctx.Err() != nil {
			stopped = true
			break
		}

		index := i + 1
		title := item.Title()
		item.Status = types.StatusRunning
		item.Phase = ""
		item.Progress = 0
		item.Reason = ""
		obs.OnItemStart(index, total, item)

		onPhase := func(phase string) {
			item.Phase = phase
			obs.OnItemPhase(item, phase)
			obs.OnStatus(fmt.Sprintf("[%d/%d] %s: %s", index, total, title, phase))
		}
		onPercent := func(p float64) {
			item.Progress = p
			obs.OnItemPercent(item, p)
			report(Aggregate(i, total, p))
			obs.OnBatchStatus(downloadingStatus(index, total, aggregate))
		}

		start := time.Now()
		outcome := s.Runner.Run(ctx, item.Request, onPhase, onPercent)
		res := Result{ItemID: item.ID, Index: index, Outcome: outcome, Elapsed: time.Since(start)}
		results = append(results, res)

		item.Status = outcome.Kind.Status()
		item.Reason = outcome.Reason
		item.DestPath = outcome.DestPath

		switch outcome.Kind {
		case types.OutcomeCompleted:
			item.Progress = 100
			log.Info().Str("title", title).Str("dest", outcome.DestPath).Dur("elapsed", res.Elapsed).Msg("Item completed")
		case types.OutcomeFailed:
			log.Error().Str("title", title).Str("reason", outcome.Reason).Msg("Item failed")
		case types.OutcomeCancelled:
			log.Info().Str("title", title).Msg("Item cancelled")
		}
		obs.OnItemDone(item, res)

		if outcome.Kind == types.OutcomeCancelled {
			obs.OnStatus(StatusCancelledByUser)
			stopped = true
			break
		}

		report(Aggregate(index, total, 0))
		obs.OnBatchStatus(fmt.Sprintf("Finished item %d of %d (Total: %.0f%%)", index, total, aggregate))
	}

	if stopped {
		utils.Debug("Sequencer: batch stopped after %d of %d items", len(results), total)
		obs.OnBatchStatus(BatchStopped)
		return results
	}

	report(100)
	obs.OnStatus(StatusAllDone)
	obs.OnBatchStatus(BatchDone)
	log.Info().Int("items", total).Msg("Batch finished")
	return results
}

func downloadingStatus(index, total int, percent float64) string {
	return fmt.Sprintf("Downloading item %d of %d (Total: %.0f%%)", index, total, percent)
}
