// Package audit provides the best-effort login audit trail. Events are
// handed off to a buffered channel and written by a single background
// worker; a full buffer drops the event rather than slowing down the
// request that produced it.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gutwise/diet-api/internal/api/metrics"
	"github.com/gutwise/diet-api/internal/core/domain"
	"github.com/gutwise/diet-api/internal/core/ports"
)

const (
	defaultBuffer = 256
	writeTimeout  = 5 * time.Second
)

// Dispatcher implements ports.AuditRecorder. Construct with NewDispatcher,
// Close on shutdown; Close drains whatever is still buffered.
type Dispatcher struct {
	repo ports.AttemptRepository
	log  zerolog.Logger

	ch        chan *domain.LoginAttempt
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDispatcher starts the worker goroutine immediately.
func NewDispatcher(repo ports.AttemptRepository, buffer int, log zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	d := &Dispatcher{
		repo: repo,
		log:  log,
		ch:   make(chan *domain.LoginAttempt, buffer),
		done: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Record enqueues an attempt without blocking. Audit failures must never
// become an availability dependency of authentication, so a full buffer
// counts a drop and moves on.
func (d *Dispatcher) Record(attempt *domain.LoginAttempt) {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	select {
	case d.ch <- attempt:
	case <-d.done:
	default:
		metrics.AuditDroppedTotal.Inc()
		d.log.Warn().Str("email", attempt.Email).Msg("audit buffer full, event dropped")
	}
}

// Close stops accepting events, drains the buffer, and waits for the
// worker to finish. Idempotent.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case attempt := <-d.ch:
			d.write(attempt)
		case <-d.done:
			for {
				select {
				case attempt := <-d.ch:
					d.write(attempt)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) write(attempt *domain.LoginAttempt) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := d.repo.Insert(ctx, attempt); err != nil {
		d.log.Warn().Err(err).Str("email", attempt.Email).Msg("failed to write audit record")
	}
}
