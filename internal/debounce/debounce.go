// Package debounce batches rapid edits per key and commits only the last
// value once the key has been quiet for a fixed period.
package debounce

import (
	"sync"
	"time"
)

type CommitFunc[K comparable, V any] func(key K, value V)

type entry[V any] struct {
	value V
	gen   uint64
	timer *time.Timer
}

type Debouncer[K comparable, V any] struct {
	quiet  time.Duration
	commit CommitFunc[K, V]

	mu       sync.Mutex
	pending  map[K]*entry[V]
	gen      uint64
	closed   bool
	inflight sync.WaitGroup
}

func New[K comparable, V any](quiet time.Duration, commit CommitFunc[K, V]) *Debouncer[K, V] {
	return &Debouncer[K, V]{
		quiet:   quiet,
		commit:  commit,
		pending: make(map[K]*entry[V]),
	}
}

// Submit replaces the pending value of key and restarts its quiet period.
// It returns false once the debouncer is closed.
func (d *Debouncer[K, V]) Submit(key K, value V) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	if e, ok := d.pending[key]; ok {
		e.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.pending[key] = &entry[V]{
		value: value,
		gen:   gen,
		timer: time.AfterFunc(d.quiet, func() { d.fire(key, gen) }),
	}

	return true
}

func (d *Debouncer[K, V]) fire(key K, gen uint64) {
	d.mu.Lock()
	e, ok := d.pending[key]
	if !ok || e.gen != gen {
		// superseded, flushed or discarded
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.inflight.Add(1)
	d.mu.Unlock()

	defer d.inflight.Done()
	d.commit(key, e.value)
}

// Flush commits every pending value now.
func (d *Debouncer[K, V]) Flush() {
	d.mu.Lock()
	taken := d.takeAll()
	d.inflight.Add(1)
	d.mu.Unlock()

	defer d.inflight.Done()
	for key, e := range taken {
		d.commit(key, e.value)
	}
}

// Discard drops the pending value of key without committing it.
func (d *Debouncer[K, V]) Discard(key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)

	return true
}

// Pending reports whether key has a value waiting to be committed.
func (d *Debouncer[K, V]) Pending(key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.pending[key]
	return ok
}

// Close flushes pending values, waits for commits in flight and rejects
// further submissions.
func (d *Debouncer[K, V]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.inflight.Wait()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.Flush()
	d.inflight.Wait()
}

func (d *Debouncer[K, V]) takeAll() map[K]*entry[V] {
	taken := d.pending
	for _, e := range taken {
		e.timer.Stop()
	}
	d.pending = make(map[K]*entry[V])
	return taken
}
