// Package scheduler drives the timed event transitions: opening AutoOpen events
// when their RSVP window starts and freezing OPEN events when it closes.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/padelhub/gamenight/go/internal/lifecycle"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Transitioner applies a state change on behalf of the scheduler.
type Transitioner interface {
	Transition(ctx context.Context, eventID uuid.UUID, target models.EventState, actor models.Actor, opts lifecycle.TransitionOptions) (*models.Event, error)
}

// EventLister finds the events that may still need a timer.
type EventLister interface {
	ListEventsByState(ctx context.Context, states ...models.EventState) ([]*models.Event, error)
}

// Config holds the worker pool settings.
type Config struct {
	Workers int `yaml:"workers" env:"SCHEDULER_WORKERS"`
}

type job struct {
	eventID uuid.UUID
	target  models.EventState
	due     time.Time
}

type pending struct {
	job   job
	timer clockwork.Timer
	stop  chan struct{}
}

// Scheduler keeps at most one pending timer per event.
type Scheduler struct {
	events      EventLister
	transitions Transitioner
	clock       clockwork.Clock
	instanceID  string

	numWorkers int
	workCh     chan job

	mu      sync.Mutex
	runCtx  context.Context
	pending map[uuid.UUID]*pending
}

// New creates a scheduler. Timers are only armed once Run has been called.
func New(events EventLister, transitions Transitioner, clock clockwork.Clock, cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return &Scheduler{
		events:      events,
		transitions: transitions,
		clock:       clock,
		instanceID:  uuid.New().String()[:8],
		numWorkers:  cfg.Workers,
		workCh:      make(chan job, cfg.Workers*16),
		pending:     make(map[uuid.UUID]*pending),
	}
}

// Run recovers timers for DRAFT and OPEN events and processes due
// transitions until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < s.numWorkers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, i)
	}

	events, err := s.events.ListEventsByState(ctx, models.EventStateDraft, models.EventStateOpen)
	if err != nil {
		s.shutdown()
		wg.Wait()
		return err
	}
	for _, e := range events {
		s.schedule(e)
	}
	log.Info().
		Str("instance", s.instanceID).
		Int("workers", s.numWorkers).
		Int("recovered", len(events)).
		Msg("scheduler started")

	<-ctx.Done()
	s.shutdown()
	wg.Wait()
	log.Info().Str("instance", s.instanceID).Msg("scheduler stopped")
	return nil
}

func (s *Scheduler) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pending {
		s.stopLocked(p)
		delete(s.pending, id)
	}
	s.runCtx = nil
}

// EventChanged re-arms or cancels the timer for event after a committed change.
func (s *Scheduler) EventChanged(_ context.Context, event *models.Event) {
	s.schedule(event)
}

// Pending reports the target state and due time of the timer armed for eventID.
func (s *Scheduler) Pending(eventID uuid.UUID) (models.EventState, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[eventID]
	if !ok {
		return "", time.Time{}, false
	}
	return p.job.target, p.job.due, true
}

// nextJob returns the timed transition an event is waiting for, if any.
// A reopened event is never frozen for a close time that already passed.
func nextJob(event *models.Event, now time.Time) (job, bool) {
	switch event.State {
	case models.EventStateDraft:
		if event.AutoOpen && now.Before(event.RSVPClosesAt) {
			return job{eventID: event.ID, target: models.EventStateOpen, due: event.RSVPOpensAt}, true
		}
	case models.EventStateOpen:
		if event.FrozenAt != nil && !now.Before(event.RSVPClosesAt) {
			return job{}, false
		}
		return job{eventID: event.ID, target: models.EventStateFrozen, due: event.RSVPClosesAt}, true
	}
	return job{}, false
}

func (s *Scheduler) schedule(event *models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx == nil {
		return
	}

	now := s.clock.Now()
	j, ok := nextJob(event, now)
	if !ok {
		s.cancelLocked(event.ID)
		return
	}
	if p, exists := s.pending[event.ID]; exists && p.job == j {
		log.Debug().
			Str("event_id", event.ID.String()).
			Time("due", j.due).
			Msg("skipping duplicate schedule")
		return
	}

	duration := j.due.Sub(now)
	if duration <= 0 {
		s.cancelLocked(event.ID)
		// Workers call back into schedule, so never block on workCh under mu.
		go s.enqueue(s.runCtx, j)
		return
	}

	p := &pending{job: j, timer: s.clock.NewTimer(duration), stop: make(chan struct{})}
	s.cancelLocked(event.ID)
	s.pending[event.ID] = p
	go s.wait(s.runCtx, p)

	log.Debug().
		Str("event_id", event.ID.String()).
		Str("target", string(j.target)).
		Time("due", j.due).
		Dur("duration", duration).
		Msg("scheduled timer")
}

func (s *Scheduler) wait(ctx context.Context, p *pending) {
	select {
	case <-p.timer.Chan():
		s.mu.Lock()
		if s.pending[p.job.eventID] == p {
			delete(s.pending, p.job.eventID)
		}
		s.mu.Unlock()
		s.enqueue(ctx, p.job)
	case <-p.stop:
	case <-ctx.Done():
	}
}

// enqueue waits for room on workCh. A job is only dropped when the
// scheduler stops, and Run recovers it on the next start.
func (s *Scheduler) enqueue(ctx context.Context, j job) {
	select {
	case s.workCh <- j:
		log.Debug().Str("event_id", j.eventID.String()).Str("target", string(j.target)).Msg("timer fired - enqueued")
	case <-ctx.Done():
		log.Debug().Str("event_id", j.eventID.String()).Msg("scheduler stopped before job was enqueued")
	}
}

func (s *Scheduler) cancelLocked(eventID uuid.UUID) {
	if p, exists := s.pending[eventID]; exists {
		s.stopLocked(p)
		delete(s.pending, eventID)
		log.Debug().Str("event_id", eventID.String()).Msg("cancelled timer")
	}
}

func (s *Scheduler) stopLocked(p *pending) {
	stopAndDrainTimer(p.timer)
	close(p.stop)
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
