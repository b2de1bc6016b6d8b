package persistence

import (
	"log"
	"sync"

	"relay-service/internal/observability"
)

// Flusher decouples snapshot writes from the mutation path. Enqueue is
// non-blocking; a single worker goroutine drains pending snapshots in
// version order, so a write for state version N always completes before one
// for N+1 begins. Intermediate versions may be coalesced away; the last
// enqueued snapshot always wins, never an older one.
//
// Write failures are logged and counted; the failed snapshot stays pending
// and is retried when the next mutation kicks the worker, so persistence
// errors never fail or block the in-memory operation.
type Flusher struct {
	store Store

	mu        sync.Mutex
	pending   *Snapshot
	highWater uint64 // highest version ever enqueued
	kick      chan struct{}
	done      chan struct{}
	stopped   bool
}

// NewFlusher starts the flush worker.
func NewFlusher(store Store) *Flusher {
	f := &Flusher{
		store: store,
		kick:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go f.run()
	return f
}

// Enqueue schedules the snapshot for writing. A pending older snapshot is
// replaced; a snapshot older than the newest ever enqueued is discarded so
// durable state never regresses. The kick send happens under the mutex
// that Close takes before closing the channel, so an Enqueue racing a
// Close either sends first or observes stopped.
func (f *Flusher) Enqueue(snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped || snap.Version <= f.highWater {
		return
	}
	f.highWater = snap.Version
	f.pending = &snap

	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// Close drains the pending snapshot and stops the worker.
func (f *Flusher) Close() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	f.mu.Unlock()

	close(f.kick)
	<-f.done
}

func (f *Flusher) run() {
	defer close(f.done)
	for range f.kick {
		f.flush()
	}
	// final drain on Close
	f.flush()
}

func (f *Flusher) flush() {
	f.mu.Lock()
	snap := f.pending
	f.mu.Unlock()
	if snap == nil {
		return
	}

	if err := f.store.Save(*snap); err != nil {
		log.Printf("snapshot write failed (version=%d): %v", snap.Version, err)
		observability.IncSnapshotWrite("error")
		return
	}
	observability.IncSnapshotWrite("ok")

	f.mu.Lock()
	if f.pending != nil && f.pending.Version == snap.Version {
		f.pending = nil
	}
	f.mu.Unlock()
}
