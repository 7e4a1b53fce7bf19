package processor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"arcadechess/internal/server/board"
	"arcadechess/internal/server/proposer"
)

const (
	defaultWorkers   = 2
	defaultThinkTime = 10 * time.Second
	queueCapacity    = 100
	callbackGrace    = 2 * time.Second
)

// ProposalTask asks a proposer for one opponent move on a fixed board snapshot
type ProposalTask struct {
	GameID   string
	Board    *board.Board
	Proposer proposer.Proposer
	Timeout  time.Duration
	Response chan<- ProposalResult
}

// ProposalResult carries the resolved move, already validated or replaced by the fallback
type ProposalResult struct {
	GameID   string
	Decision proposer.Decision
	Error    error
}

// ProposerQueue runs proposer calls on a fixed pool of workers
type ProposerQueue struct {
	tasks    chan ProposalTask
	workers  int
	fallback *proposer.Random
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewProposerQueue creates a queue with specified worker count
func NewProposerQueue(workerCount int, fallback *proposer.Random) *ProposerQueue {
	if workerCount < 1 {
		workerCount = defaultWorkers
	}
	if fallback == nil {
		fallback = proposer.NewRandom(0)
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &ProposerQueue{
		tasks:    make(chan ProposalTask, queueCapacity),
		workers:  workerCount,
		fallback: fallback,
		ctx:      ctx,
		cancel:   cancel,
	}

	q.start()
	return q
}

func (q *ProposerQueue) start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

func (q *ProposerQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case task := <-q.tasks:
			result := q.processTask(task)

			// Send result if receiver still listening
			select {
			case task.Response <- result:
			case <-time.After(100 * time.Millisecond):
			}

		case <-q.ctx.Done():
			return
		}
	}
}

func (q *ProposerQueue) processTask(task ProposalTask) ProposalResult {
	timeout := task.Timeout
	if timeout <= 0 {
		timeout = defaultThinkTime
	}
	ctx, cancel := context.WithTimeout(q.ctx, timeout)
	defer cancel()

	decision, err := proposer.Choose(ctx, task.Proposer, q.fallback, task.Board)
	if err != nil {
		return ProposalResult{GameID: task.GameID, Error: fmt.Errorf("no opponent move: %w", err)}
	}
	if decision.Fallback && decision.Cause != nil {
		log.Printf("Proposer fallback for game %s: %v", task.GameID, decision.Cause)
	}
	return ProposalResult{GameID: task.GameID, Decision: decision}
}

// Submit adds a task to the queue
func (q *ProposerQueue) Submit(task ProposalTask) error {
	select {
	case <-q.ctx.Done():
		return fmt.Errorf("queue is shutting down")
	default:
	}

	select {
	case q.tasks <- task:
		return nil
	default:
		return fmt.Errorf("queue is full")
	}
}

// SubmitAsync submits a task and delivers its result to callback on another goroutine
func (q *ProposerQueue) SubmitAsync(gameID string, b *board.Board, p proposer.Proposer, timeout time.Duration, callback func(ProposalResult)) error {
	respChan := make(chan ProposalResult, 1)

	task := ProposalTask{
		GameID:   gameID,
		Board:    b,
		Proposer: p,
		Timeout:  timeout,
		Response: respChan,
	}

	if err := q.Submit(task); err != nil {
		return err
	}

	wait := timeout
	if wait <= 0 {
		wait = defaultThinkTime
	}

	go func() {
		select {
		case result := <-respChan:
			callback(result)
		case <-time.After(wait + callbackGrace):
			callback(ProposalResult{
				GameID: gameID,
				Error:  fmt.Errorf("proposer timeout"),
			})
		case <-q.ctx.Done():
		}
	}()

	return nil
}

// Shutdown stops the workers; queued tasks are dropped
func (q *ProposerQueue) Shutdown(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
