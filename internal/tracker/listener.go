// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package tracker

// Listener observes flush outcomes. Implementations must not block: they
// are called synchronously on the flushing goroutine.
type Listener interface {
	// OnFlush is called after every successful flush cycle, including
	// cycles where some rows failed validation.
	OnFlush(result FlushResult)

	// OnError is called when a flush exhausts its retries and the batch is
	// re-queued.
	OnError(err error)
}

// AddListener registers a flush observer. Listeners cannot be removed;
// register them before Run.
func (t *Tracker) AddListener(l Listener) {
	t.listenerMu.Lock()
	defer t.listenerMu.Unlock()
	t.listeners = append(t.listeners, l)
}

func (t *Tracker) notifyFlush(result FlushResult) {
	t.listenerMu.RLock()
	defer t.listenerMu.RUnlock()
	for _, l := range t.listeners {
		l.OnFlush(result)
	}
}

func (t *Tracker) notifyError(err error) {
	t.listenerMu.RLock()
	defer t.listenerMu.RUnlock()
	for _, l := range t.listeners {
		l.OnError(err)
	}
}

// ListenerFuncs adapts plain functions to the Listener interface. Either
// field may be nil.
type ListenerFuncs struct {
	Flush func(FlushResult)
	Error func(error)
}

func (f ListenerFuncs) OnFlush(result FlushResult) {
	if f.Flush != nil {
		f.Flush(result)
	}
}

func (f ListenerFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}
