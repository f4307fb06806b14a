package main

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var errSaverClosed = errors.New("snapshot saver closed")

// snapshotWriteTimeout bounds a single store write triggered by a timer.
const snapshotWriteTimeout = 5 * time.Second

// snapshotSaver coalesces rapid draft saves per key: only the latest draft is written,
// once the key has been quiet for delay. Explicit saves and deletes go through SaveNow and
// Delete and supersede any draft for the same key, including one already being written.
type snapshotSaver struct {
	store   snapshotStore
	delay   time.Duration
	metrics *metricsManager

	mu      sync.Mutex
	pending map[string]*pendingSave
	keys    map[string]*keyWriter
	nextGen uint64
	closed  bool

	// wg counts timer callbacks that may still run.
	wg sync.WaitGroup
}

type pendingSave struct {
	snap  snapshot
	gen   uint64
	timer *time.Timer
}

// keyWriter serializes store writes for one key. It lives only while a write for the key
// is running or waiting.
type keyWriter struct {
	mu   sync.Mutex
	refs int
	// explicitGen is the generation of the last SaveNow, Delete or Cancel. A draft with an
	// older generation is stale.
	explicitGen uint64
}

func newSnapshotSaver(store snapshotStore, delay time.Duration, metrics *metricsManager) *snapshotSaver {
	return &snapshotSaver{
		store:   store,
		delay:   delay,
		metrics: metrics,
		pending: make(map[string]*pendingSave),
		keys:    make(map[string]*keyWriter),
	}
}

// Schedule queues snap as the draft for its key, restarting the key's quiet period.
func (s *snapshotSaver) Schedule(snap snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSaverClosed
	}
	if old, ok := s.pending[snap.Key]; ok && old.timer.Stop() {
		s.wg.Done()
	}

	gen := s.genLocked()
	key := snap.Key
	s.wg.Add(1)
	s.pending[key] = &pendingSave{
		snap: snap,
		gen:  gen,
		timer: time.AfterFunc(s.delay, func() {
			defer s.wg.Done()
			s.fire(key, gen)
		}),
	}
	return nil
}

// SaveNow drops any draft for snap.Key and writes snap immediately. A draft write already
// in flight finishes first and is then overwritten, or is skipped if it has not reached
// the store yet.
func (s *snapshotSaver) SaveNow(ctx context.Context, snap snapshot) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSaverClosed
	}
	s.cancelLocked(snap.Key)
	kw := s.acquireLocked(snap.Key)
	kw.explicitGen = s.genLocked()
	s.mu.Unlock()

	kw.mu.Lock()
	defer s.release(snap.Key, kw)
	defer kw.mu.Unlock()
	return s.write(ctx, snap, "immediate", nil)
}

// Delete drops any draft for key and removes key from the store, after any draft write
// already in flight so that write cannot bring the snapshot back.
func (s *snapshotSaver) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	s.cancelLocked(key)
	kw := s.acquireLocked(key)
	kw.explicitGen = s.genLocked()
	s.mu.Unlock()

	kw.mu.Lock()
	defer s.release(key, kw)
	defer kw.mu.Unlock()
	return s.store.Delete(ctx, key)
}

// Cancel drops any draft for key without writing it. A draft write in flight that has not
// reached the store yet is skipped.
func (s *snapshotSaver) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(key)
	if kw, ok := s.keys[key]; ok {
		kw.explicitGen = s.genLocked()
	}
}

func (s *snapshotSaver) cancelLocked(key string) {
	if p, ok := s.pending[key]; ok {
		if p.timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, key)
	}
}

func (s *snapshotSaver) genLocked() uint64 {
	s.nextGen++
	return s.nextGen
}

// acquireLocked returns the writer for key with a reference held. Callers hold s.mu.
func (s *snapshotSaver) acquireLocked(key string) *keyWriter {
	kw, ok := s.keys[key]
	if !ok {
		kw = &keyWriter{}
		s.keys[key] = kw
	}
	kw.refs++
	return kw
}

func (s *snapshotSaver) release(key string, kw *keyWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kw.refs--
	if kw.refs == 0 {
		delete(s.keys, key)
	}
}

// Pending reports how many keys have a draft waiting.
func (s *snapshotSaver) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush writes every pending draft now. The first write error is returned; the other
// drafts are still attempted.
func (s *snapshotSaver) Flush(ctx context.Context) error {
	type queued struct {
		p  *pendingSave
		kw *keyWriter
	}

	s.mu.Lock()
	drafts := make([]queued, 0, len(s.pending))
	for key, p := range s.pending {
		if p.timer.Stop() {
			s.wg.Done()
		}
		drafts = append(drafts, queued{p: p, kw: s.acquireLocked(key)})
		delete(s.pending, key)
	}
	s.mu.Unlock()

	var firstErr error
	for _, d := range drafts {
		if err := s.writeDraft(ctx, d.kw, d.p, "flush"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close rejects new work, flushes pending drafts and waits for running timers.
func (s *snapshotSaver) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.Flush(ctx)
	s.wg.Wait()
	return err
}

// fire writes the draft for key if it is still the generation the timer was armed for.
func (s *snapshotSaver) fire(key string, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok || p.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	kw := s.acquireLocked(key)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), snapshotWriteTimeout)
	defer cancel()
	if err := s.writeDraft(ctx, kw, p, "debounced"); err != nil {
		log.Errorf("[snapshotSaver] debounced save %s: %v", key, err)
	}
}

// writeDraft writes p under its key's writer and releases the reference taken for it.
func (s *snapshotSaver) writeDraft(ctx context.Context, kw *keyWriter, p *pendingSave, mode string) error {
	kw.mu.Lock()
	defer s.release(p.snap.Key, kw)
	defer kw.mu.Unlock()

	stale := func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return kw.explicitGen > p.gen
	}
	return s.write(ctx, p.snap, mode, stale)
}

// write stores snap. A draft without a LastResult keeps the one already stored, so
// typing into the form never erases the last generated result. When stale reports true
// right before the store write, the write is dropped.
func (s *snapshotSaver) write(ctx context.Context, snap snapshot, mode string, stale func() bool) error {
	if snap.LastResult == nil {
		existing, err := s.store.Get(ctx, snap.Key)
		switch {
		case err == nil:
			snap.LastResult = existing.LastResult
		case !errors.Is(err, errSnapshotNotFound):
			s.metrics.CounterSnapshotWrites.WithLabelValues(mode, "error").Inc()
			return err
		}
	}

	if stale != nil && stale() {
		s.metrics.CounterSnapshotWrites.WithLabelValues(mode, "superseded").Inc()
		log.Debugf("[snapshotSaver] %s save %s superseded", mode, snap.Key)
		return nil
	}

	if err := s.store.Save(ctx, snap); err != nil {
		s.metrics.CounterSnapshotWrites.WithLabelValues(mode, "error").Inc()
		return err
	}
	s.metrics.CounterSnapshotWrites.WithLabelValues(mode, "ok").Inc()
	log.Debugf("[snapshotSaver] %s save %s", mode, snap.Key)
	return nil
}
