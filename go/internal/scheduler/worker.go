package scheduler

import (
	"context"
	"sync"

	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/lifecycle"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/rs/zerolog/log"
)

// worker applies due transitions from the work channel
func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.workCh:
			s.handle(ctx, j, workerID)
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, j job, workerID int) {
	_, err := s.transitions.Transition(ctx, j.eventID, j.target, models.SystemActor, lifecycle.TransitionOptions{})
	if err == nil {
		log.Info().
			Str("event_id", j.eventID.String()).
			Str("target", string(j.target)).
			Int("worker_id", workerID).
			Msg("applied timed transition")
		return
	}
	switch apperr.KindOf(err) {
	case apperr.KindInvalidTransition, apperr.KindNotFound:
		// Someone else moved the event first.
		log.Debug().
			Err(err).
			Str("event_id", j.eventID.String()).
			Str("target", string(j.target)).
			Msg("timed transition no longer applies")
	default:
		log.Error().
			Err(err).
			Str("event_id", j.eventID.String()).
			Str("target", string(j.target)).
			Int("worker_id", workerID).
			Msg("timed transition failed")
	}
}
