package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DispatcherConfig sizes the dispatcher.
type DispatcherConfig struct {
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// DefaultDispatcherConfig returns the dispatcher defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:        4,
		QueueSize:      1024,
		PublishTimeout: 5 * time.Second,
	}
}

// Dispatcher queues notifications and hands them to every publisher from a
// small worker pool. When the queue is full the notification is dropped.
type Dispatcher struct {
	publishers []Publisher
	config     DispatcherConfig
	workCh     chan Notification

	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher over publishers.
func NewDispatcher(cfg DispatcherConfig, publishers ...Publisher) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	return &Dispatcher{
		publishers: publishers,
		config:     cfg,
		workCh:     make(chan Notification, cfg.QueueSize),
	}
}

// Notify enqueues n without blocking.
func (d *Dispatcher) Notify(_ context.Context, n Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	select {
	case d.workCh <- n:
	default:
		log.Warn().
			Str("kind", string(n.Kind)).
			Str("event_id", n.EventID.String()).
			Msg("notification queue full, dropping notification")
	}
}

// Run starts the worker pool and blocks until ctx is done, then drains what
// is already queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Info().Int("workers", d.config.Workers).Int("publishers", len(d.publishers)).Msg("notification dispatcher started")

	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	<-ctx.Done()
	d.Close()
	log.Info().Msg("notification dispatcher stopped")
	return nil
}

// Close stops accepting work and waits for the workers to drain the queue.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.workCh)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker(workerID int) {
	defer d.wg.Done()
	for n := range d.workCh {
		d.deliver(workerID, n)
	}
}

func (d *Dispatcher) deliver(workerID int, n Notification) {
	for _, p := range d.publishers {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.PublishTimeout)
		err := p.Publish(ctx, n)
		cancel()
		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Str("kind", string(n.Kind)).
				Str("event_id", n.EventID.String()).
				Msg("failed to publish notification")
		}
	}
}
