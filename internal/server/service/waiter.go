package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WaitTimeout caps how long a long-poll request is held open
const WaitTimeout = 25 * time.Second

// WaitRegistry holds long-poll requests until the watched game's move count changes
type WaitRegistry struct {
	mu       sync.Mutex
	waiters  map[string][]*waiter
	shutdown chan struct{}
	closed   bool
	timeout  time.Duration
	wg       sync.WaitGroup
}

type waiter struct {
	moveCount int
	notify    chan struct{}
	done      chan struct{}
	once      sync.Once
}

func NewWaitRegistry() *WaitRegistry {
	return &WaitRegistry{
		waiters:  make(map[string][]*waiter),
		shutdown: make(chan struct{}),
		timeout:  WaitTimeout,
	}
}

// RegisterWait returns a channel that receives once when the game's move count moves
// away from moveCount, the game is deleted, or the wait times out. The channel is
// closed without a value when ctx ends or the registry shuts down.
func (w *WaitRegistry) RegisterWait(gameID string, moveCount int, ctx context.Context) <-chan struct{} {
	wt := &waiter{
		moveCount: moveCount,
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		close(wt.notify)
		return wt.notify
	}
	w.waiters[gameID] = append(w.waiters[gameID], wt)
	w.wg.Add(1)
	w.mu.Unlock()

	timer := time.AfterFunc(w.timeout, func() { w.finish(gameID, wt, true) })

	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
			w.finish(gameID, wt, false)
		case <-w.shutdown:
			w.finish(gameID, wt, false)
		case <-wt.done:
		}
		timer.Stop()
	}()

	return wt.notify
}

// NotifyGame wakes every waiter whose known move count is stale
func (w *WaitRegistry) NotifyGame(gameID string, currentMoveCount int) {
	w.mu.Lock()
	list := append([]*waiter(nil), w.waiters[gameID]...)
	w.mu.Unlock()

	for _, wt := range list {
		if wt.moveCount != currentMoveCount {
			w.finish(gameID, wt, true)
		}
	}
}

// RemoveGame wakes all waiters of a deleted game
func (w *WaitRegistry) RemoveGame(gameID string) {
	w.mu.Lock()
	list := w.waiters[gameID]
	delete(w.waiters, gameID)
	w.mu.Unlock()

	for _, wt := range list {
		w.finish(gameID, wt, true)
	}
}

// Shutdown releases all pending waits
func (w *WaitRegistry) Shutdown(timeout time.Duration) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.shutdown)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown timed out")
	}
}

// finish completes a waiter exactly once, either waking it or closing its channel
func (w *WaitRegistry) finish(gameID string, wt *waiter, wake bool) {
	wt.once.Do(func() {
		w.remove(gameID, wt)
		if wake {
			wt.notify <- struct{}{}
		} else {
			close(wt.notify)
		}
		close(wt.done)
	})
}

func (w *WaitRegistry) remove(gameID string, target *waiter) {
	w.mu.Lock()
	defer w.mu.Unlock()

	list := w.waiters[gameID]
	for i, wt := range list {
		if wt == target {
			w.waiters[gameID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(w.waiters[gameID]) == 0 {
		delete(w.waiters, gameID)
	}
}
