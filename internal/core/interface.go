package core

import (
	"context"

	"github.com/lastned/lastned/internal/download"
	"github.com/lastned/lastned/internal/engine/types"
)

// DownloadService is what the front ends (TUI, headless CLI) talk to.
type DownloadService interface {
	// RunBatch runs items sequentially and blocks until the batch ends.
	// Progress is published as events; items are updated in place.
	RunBatch(ctx context.Context, items []*download.Item) ([]download.Result, error)

	// Cancel stops the running batch, if any.
	Cancel()

	// IsRunning reports whether a batch is in progress.
	IsRunning() bool

	// History returns finished items, newest first.
	History(limit int) ([]types.DownloadEntry, error)

	// StreamEvents returns a channel that receives batch and item events.
	// The returned func unsubscribes and closes the channel.
	StreamEvents(ctx context.Context) (<-chan interface{}, func(), error)

	// Publish emits an event into the service's event stream.
	Publish(msg interface{}) error

	// Shutdown cancels any running batch and releases resources.
	Shutdown() error
}
