package eventflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Publisher is the single-writer publish loop. It polls the store for the
// oldest NEW record, hands it to the dispatcher, and marks it PUBLISHED on
// success. A record whose dispatch fails stays NEW and is retried on a later
// cycle.
//
// Run one publisher per store: the single-writer discipline is what keeps
// status transitions race-free on top of the store's conditional updates.
type Publisher struct {
	store      MessageStore
	dispatcher *Dispatcher
	cfg        PublisherConfig
	errs       chan error
}

// PublisherOption customizes publisher behavior.
type PublisherOption func(*Publisher)

// WithPublisherConfig overrides the default polling configuration.
func WithPublisherConfig(cfg PublisherConfig) PublisherOption {
	return func(p *Publisher) { p.cfg = cfg }
}

// NewPublisher creates a publisher polling the store and dispatching through
// the given dispatcher.
func NewPublisher(store MessageStore, dispatcher *Dispatcher, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:      store,
		dispatcher: dispatcher,
		cfg:        DefaultPublisherConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.errs = make(chan error, p.cfg.ErrorBuffer)
	return p
}

// Errors returns the channel where dispatch and store errors are reported.
// Errors are dropped when the channel is full.
func (p *Publisher) Errors() <-chan error {
	return p.errs
}

// Run polls until the context is canceled. An idle store backs the loop off
// exponentially up to MaxPollInterval; successful publishes reset the
// interval.
func (p *Publisher) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.PollInterval
	bo.MaxInterval = p.cfg.MaxPollInterval
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		published, err := p.publishNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, ErrStoreClosed) {
				return err
			}
			p.emit(err)
		}

		if published && err == nil {
			bo.Reset()
			continue
		}

		if err := sleep(ctx, bo.NextBackOff()); err != nil {
			return err
		}
	}
}

// publishNext performs one publish cycle. It reports whether a record was
// available.
func (p *Publisher) publishNext(ctx context.Context) (bool, error) {
	rec, err := p.store.NextToPublish(ctx)
	if err != nil {
		return false, fmt.Errorf("next to publish: %w", err)
	}
	if rec == nil {
		return false, nil
	}

	if err := p.dispatcher.Dispatch(ctx, rec.Message); err != nil {
		// The record stays NEW for a later retry.
		return true, fmt.Errorf("dispatch message %s (%s): %w", rec.MessageID, rec.Type, err)
	}

	if err := p.store.MarkPublished(ctx, rec.MessageID); err != nil {
		return true, fmt.Errorf("mark published %s: %w", rec.MessageID, err)
	}
	return true, nil
}

func (p *Publisher) emit(err error) {
	select {
	case p.errs <- err:
	default:
		// Drop error if channel full
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
