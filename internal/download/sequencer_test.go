package download

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lastned/lastned/internal/engine/types"
)

// scriptedRunner replays per-URL percent reports and returns a fixed outcome.
type scriptedRunner struct {
	percents map[string][]float64
	outcomes map[string]types.Outcome
	onRun    func(ctx context.Context, req types.DownloadRequest)
	ran      []string
}

func (r *scriptedRunner) Run(ctx context.Context, req types.DownloadRequest, onPhase func(string), onPercent func(float64)) types.Outcome {
	r.ran = append(r.ran, req.URL)
	if r.onRun != nil {
		r.onRun(ctx, req)
	}
	onPhase("Starting...")
	for _, p := range r.percents[req.URL] {
		onPercent(p)
	}
	if out, ok := r.outcomes[req.URL]; ok {
		return out
	}
	onPhase("Done")
	onPercent(100)
	return types.Completed("/out/" + req.URL + ".mkv")
}

// recordingObserver keeps everything the sequencer reports.
type recordingObserver struct {
	NopObserver
	percents      []float64
	statuses      []string
	batchStatuses []string
	started       []int
	done          []Result
}

func (o *recordingObserver) OnItemStart(index, total int, item *Item) {
	o.started = append(o.started, index)
}
func (o *recordingObserver) OnItemDone(item *Item, res Result) { o.done = append(o.done, res) }
func (o *recordingObserver) OnStatus(s string) { o.statuses = append(o.statuses, s) }
func (o *recordingObserver) OnBatchStatus(s string) { o.batchStatuses = append(o.batchStatuses, s) }
func (o *recordingObserver) OnPercent(p float64) { o.percents = append(o.percents, p) }

func (o *recordingObserver) lastBatchStatus() string {
	if len(o.batchStatuses) == 0 {
		return ""
	}
	return o.batchStatuses[len(o.batchStatuses)-1]
}

func makeItems(urls ...string) []*Item {
	items := make([]*Item, 0, len(urls))
	for _, u := range urls {
		items = append(items, NewItem("id-"+u, types.DownloadRequest{URL: u, Title: strings.ToUpper(u), Selected: true}))
	}
	return items
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		finished int
		total    int
		p        float64
		want     float64
	}{
		{"first item half", 0, 4, 50, 12.5},
		{"third item half", 2, 4, 50, 62.5},
		{"all done", 4, 4, 0, 100},
		{"single item", 0, 1, 99, 99},
		{"empty batch", 0, 0, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Aggregate(tt.finished, tt.total, tt.p), 1e-9)
		})
	}
}

func TestSelect(t *testing.T) {
	items := makeItems("a", "b", "c", "d")
	items[1].Request.Selected = false
	items[2].Status = types.StatusCompleted
	items[3].Status = types.StatusFailed

	got := Select(append(items, nil))
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Request.URL)
	assert.Equal(t, "d", got[1].Request.URL, "failed items are retried")
}

func TestRunBatch_ThirdOfFourAtHalf(t *testing.T) {
	runner := &scriptedRunner{percents: map[string][]float64{"c": {50}}}
	obs := &recordingObserver{}

	results := NewSequencer(runner).RunBatch(context.Background(), makeItems("a", "b", "c", "d"), obs)

	require.Len(t, results, 4)
	assert.Contains(t, obs.percents, 62.5)
	assert.Contains(t, obs.batchStatuses, "Downloading item 3 of 4 (Total: 62%)")
	assert.Equal(t, BatchDone, obs.lastBatchStatus())
	assert.Equal(t, 100.0, obs.percents[len(obs.percents)-1])
}

func TestRunBatch_AggregateMonotonicAndBounded(t *testing.T) {
	runner := &scriptedRunner{percents: map[string][]float64{
		"a": {10, 80, 40, 99, 100},
		"b": {0, 5, 120},
		"c": {30},
	}}
	obs := &recordingObserver{}

	NewSequencer(runner).RunBatch(context.Background(), makeItems("a", "b", "c"), obs)

	require.NotEmpty(t, obs.percents)
	prev := 0.0
	for _, p := range obs.percents {
		assert.GreaterOrEqual(t, p, prev)
		assert.LessOrEqual(t, p, 100.0)
		prev = p
	}
}

func TestRunBatch_FailureContinues(t *testing.T) {
	items := makeItems("a", "b", "c")
	runner := &scriptedRunner{outcomes: map[string]types.Outcome{"b": types.Failed("output file missing")}}
	obs := &recordingObserver{}

	results := NewSequencer(runner).RunBatch(context.Background(), items, obs)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, runner.ran)
	assert.Equal(t, types.StatusCompleted, items[0].Status)
	assert.Equal(t, types.StatusFailed, items[1].Status)
	assert.Equal(t, "output file missing", items[1].Reason)
	assert.Equal(t, types.StatusCompleted, items[2].Status)
	assert.Contains(t, obs.batchStatuses, "Finished item 2 of 3 (Total: 67%)")
	assert.Equal(t, BatchDone, obs.lastBatchStatus())
}

func TestRunBatch_CancelStopsBatch(t *testing.T) {
	items := makeItems("a", "b", "c")
	runner := &scriptedRunner{outcomes: map[string]types.Outcome{"b": types.Cancelled()}}
	obs := &recordingObserver{}

	results := NewSequencer(runner).RunBatch(context.Background(), items, obs)

	require.Len(t, results, 2)
	assert.Equal(t, []string{"a", "b"}, runner.ran)
	assert.Equal(t, types.StatusCancelled, items[1].Status)
	assert.Equal(t, types.StatusPending, items[2].Status)
	assert.Equal(t, BatchStopped, obs.lastBatchStatus())
	assert.Contains(t, obs.statuses, StatusCancelledByUser)
	assert.NotContains(t, obs.percents, 100.0)
}

func TestRunBatch_ContextCheckedBeforeEachItem(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &scriptedRunner{onRun: func(_ context.Context, req types.DownloadRequest) {
		if req.URL == "a" {
			cancel()
		}
	}}
	obs := &recordingObserver{}

	results := NewSequencer(runner).RunBatch(ctx, makeItems("a", "b"), obs)

	assert.Len(t, results, 1)
	assert.Equal(t, []string{"a"}, runner.ran)
	assert.Equal(t, BatchStopped, obs.lastBatchStatus())
}

func TestRunBatch_SkipsUnselectedAndCompleted(t *testing.T) {
	items := makeItems("a", "b", "c")
	items[0].Status = types.StatusCompleted
	items[2].Request.Selected = false
	runner := &scriptedRunner{}
	obs := &recordingObserver{}

	results := NewSequencer(runner).RunBatch(context.Background(), items, obs)

	require.Len(t, results, 1)
	assert.Equal(t, []string{"b"}, runner.ran)
	assert.Equal(t, []int{1}, obs.started)
	assert.Equal(t, types.StatusPending, items[2].Status)
}

func TestRunBatch_NothingSelected(t *testing.T) {
	items := makeItems("a")
	items[0].Request.Selected = false
	runner := &scriptedRunner{}
	obs := &recordingObserver{}

	results := NewSequencer(runner).RunBatch(context.Background(), items, obs)

	assert.Nil(t, results)
	assert.Empty(t, runner.ran)
	assert.Equal(t, []string{StatusNothingSelected}, obs.statuses)
}

func TestRunBatch_ItemStatusLines(t *testing.T) {
	runner := &scriptedRunner{}
	obs := &recordingObserver{}

	NewSequencer(runner).RunBatch(context.Background(), makeItems("a", "b"), obs)

	assert.Contains(t, obs.statuses, "[1/2] A: Starting...")
	assert.Contains(t, obs.statuses, "[2/2] B: Done")
	assert.Equal(t, StatusAllDone, obs.statuses[len(obs.statuses)-1])
}

func TestRunBatch_NilObserver(t *testing.T) {
	items := makeItems("a")
	results := NewSequencer(&scriptedRunner{}).RunBatch(context.Background(), items, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "/out/a.mkv", items[0].DestPath)
	assert.Equal(t, 100.0, items[0].Progress)
}
