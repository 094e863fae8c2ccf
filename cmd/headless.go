package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/lastned/lastned/internal/core"
	"github.com/lastned/lastned/internal/download"
	"github.com/lastned/lastned/internal/engine/events"
	"github.com/lastned/lastned/internal/engine/types"
)

// runHeadless runs reqs as one batch and reports on out, either as a progress
// bar with one line per finished item or as JSON lines.
func runHeadless(ctx context.Context, out io.Writer, svc core.DownloadService, reqs []types.DownloadRequest, jsonOut bool) (events.BatchDoneMsg, error) {
	items := make([]*download.Item, 0, len(reqs))
	for _, req := range reqs {
		items = append(items, download.NewItem("", req))
	}

	ch, cleanup, err := svc.StreamEvents(context.Background())
	if err != nil {
		return events.BatchDoneMsg{}, err
	}
	defer cleanup()

	var summary events.BatchDoneMsg
	consumed := make(chan error, 1)
	go func() {
		if jsonOut {
			consumed <- consumeJSON(out, ch, &summary)
		} else {
			consumed <- consumeBar(out, ch, &summary)
		}
	}()

	if _, err := svc.RunBatch(ctx, items); err != nil {
		cleanup()
		<-consumed
		return events.BatchDoneMsg{}, err
	}
	// BatchDoneMsg ends the consumer; cleanup covers a dropped one
	select {
	case err = <-consumed:
	case <-time.After(5 * time.Second):
		cleanup()
		err = <-consumed
	}
	return summary, err
}

// consumeJSON writes every event as an enveloped JSON line until the batch is done.
func consumeJSON(out io.Writer, ch <-chan interface{}, summary *events.BatchDoneMsg) error {
	for msg := range ch {
		line, err := events.Encode(msg)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s\n", line); err != nil {
			return err
		}
		if done, ok := msg.(events.BatchDoneMsg); ok {
			*summary = done
			return nil
		}
	}
	return nil
}

// consumeBar draws the aggregate progress until the batch is done.
func consumeBar(out io.Writer, ch <-chan interface{}, summary *events.BatchDoneMsg) error {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(download.StatusStarting),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	// printLine clears the bar so finished items scroll above it
	printLine := func(format string, args ...any) {
		_ = bar.Clear()
		fmt.Fprintf(out, format+"\n", args...)
	}

	for msg := range ch {
		switch m := msg.(type) {
		case events.ItemStartedMsg:
			printLine("Started: %s [%d/%d]", m.Title, m.Index, m.Total)
		case events.BatchProgressMsg:
			if m.ItemStatus != "" {
				bar.Describe(m.ItemStatus)
			}
			_ = bar.Set(int(m.Percent))
		case events.ItemCompleteMsg:
			printLine("Completed: %s -> %s (in %s)", m.Title, m.DestPath, m.Elapsed.Round(time.Second))
		case events.ItemCancelledMsg:
			printLine("Cancelled: %s", m.Title)
		case events.ItemErrorMsg:
			printLine("Error: %s: %v", m.Title, m.Err)
		case events.BatchDoneMsg:
			*summary = m
			if m.Cancelled {
				_ = bar.Exit()
				printLine("%s", download.StatusCancelledByUser)
			} else {
				_ = bar.Finish()
				printLine("%s: %d completed, %d failed", m.Status, m.Completed, m.Failed)
			}
			return nil
		}
	}
	return nil
}
