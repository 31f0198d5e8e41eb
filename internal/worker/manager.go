package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pulse-social/pulse/internal/queue"
)

const (
	// DefaultWorkerCount is the default number of worker goroutines
	DefaultWorkerCount = 4

	// DefaultReceiveBatch is the number of messages to read per receive
	DefaultReceiveBatch = 10

	// DefaultReceiveWait is the long-poll duration per receive
	DefaultReceiveWait = 20 * time.Second

	// messageTimeout bounds processing of a single message
	messageTimeout = 60 * time.Second
)

// Manager runs worker goroutines that consume fan-out events from the bus.
type Manager struct {
	bus     queue.Bus
	handler *Handler

	workerCount  int
	receiveBatch int
	receiveWait  time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	WorkerCount  int
	ReceiveBatch int
	ReceiveWait  time.Duration
}

func NewManager(bus queue.Bus, handler *Handler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.ReceiveBatch <= 0 {
		cfg.ReceiveBatch = DefaultReceiveBatch
	}
	if cfg.ReceiveWait <= 0 {
		cfg.ReceiveWait = DefaultReceiveWait
	}

	return &Manager{
		bus:          bus,
		handler:      handler,
		workerCount:  cfg.WorkerCount,
		receiveBatch: cfg.ReceiveBatch,
		receiveWait:  cfg.ReceiveWait,
	}
}

// Start spins up the worker goroutines. Call Stop to shut down.
func (m *Manager) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)

	log.Printf("[Manager] Starting %d workers", m.workerCount)
	for i := 0; i < m.workerCount; i++ {
		workerID := i + 1
		m.wg.Add(1)
		go m.runWorker(workerID)
	}
}

// Stop cancels the receive loops and blocks until in-flight messages have
// finished processing.
func (m *Manager) Stop() {
	log.Printf("[Manager] Stopping workers...")
	m.cancel()
	m.wg.Wait()
	log.Printf("[Manager] All workers stopped")
}

// runWorker is the receive loop for one goroutine. All goroutines share
// the bus; the consumer group (or SQS itself) partitions messages between
// them.
func (m *Manager) runWorker(workerID int) {
	defer m.wg.Done()
	log.Printf("[Worker-%d] Started", workerID)

	for {
		select {
		case <-m.ctx.Done():
			log.Printf("[Worker-%d] Shutting down", workerID)
			return
		default:
		}

		messages, err := m.bus.Receive(m.ctx, m.receiveBatch, m.receiveWait)
		if err != nil {
			if m.ctx.Err() != nil {
				continue
			}
			log.Printf("[Worker-%d] Receive FAILED: %v", workerID, err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			m.processMessage(workerID, msg)
		}
	}
}

// processMessage handles one delivery. It runs detached from the receive
// context so a shutdown mid-message lets the message finish instead of
// abandoning a half-done fan-out to the visibility timeout.
func (m *Manager) processMessage(workerID int, msg queue.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), messageTimeout)
	defer cancel()

	event, err := queue.ParseEvent(msg.Body)
	if err != nil {
		// Malformed payloads never become parseable; ack to keep them out
		// of the redelivery loop.
		log.Printf("[Worker-%d] Unparseable message, acking: err=%v", workerID, err)
		m.ack(ctx, workerID, msg)
		return
	}

	if err := m.handler.HandleEvent(ctx, event); err != nil {
		// No ack: the message returns after the visibility timeout and the
		// bus dead-letters it once it exceeds the receive limit.
		return
	}

	m.ack(ctx, workerID, msg)
}

func (m *Manager) ack(ctx context.Context, workerID int, msg queue.Message) {
	if err := m.bus.Ack(ctx, msg.Handle); err != nil {
		log.Printf("[Worker-%d] Ack FAILED: handle=%s err=%v", workerID, msg.Handle, err)
	}
}
