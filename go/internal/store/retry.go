package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/rs/zerolog/log"
)

// Policy bounds how long an operation may take and how often a lost race is retried.
type Policy struct {
	Timeout         time.Duration `yaml:"timeout" env:"STORE_TIMEOUT"`
	MaxTries        uint          `yaml:"max_tries" env:"STORE_MAX_TRIES"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:         5 * time.Second,
		MaxTries:        5,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

// WithTimeout applies the policy timeout unless ctx already carries a deadline.
func (p Policy) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || p.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.Timeout)
}

// InEvent runs fn inside s.WithEventTx, retrying ConcurrentModification with
// exponential backoff. Context expiry surfaces as StoreUnavailable.
func (p Policy) InEvent(ctx context.Context, s Store, eventID uuid.UUID, fn func(tx EventTx) error) error {
	ctx, cancel := p.WithTimeout(ctx)
	defer cancel()

	return p.Retry(ctx, "store.InEvent", func() error {
		return s.WithEventTx(ctx, eventID, fn)
	})
}

// Retry runs op until it succeeds, fails with a non-retryable error, or
// MaxTries attempts have been made.
func (p Policy) Retry(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := fn()
		if err == nil {
			return struct{}{}, nil
		}
		if apperr.Retryable(err) {
			log.Debug().Err(err).Int("attempt", attempt).Str("op", op).Msg("retrying after concurrent modification")
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
	if err == nil {
		return nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return Classify(ctx, op, err)
}

// Classify maps context expiry and other infrastructure failures to StoreUnavailable.
// Domain errors pass through unchanged.
func Classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.KindUnknown {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, op, err)
	}
	return err
}
