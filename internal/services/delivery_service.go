package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/danishnav/team-catalog/internal/events"
	"github.com/danishnav/team-catalog/internal/metrics"
	"github.com/danishnav/team-catalog/internal/models"
	"go.uber.org/zap"
)

const (
	// minSnoozeTimes is the backoff exponent of the first snooze.
	minSnoozeTimes = 5
	// maxSnoozeExponent keeps 4^n minutes inside time.Duration.
	maxSnoozeExponent = 13
	snoozeFloor       = 3 * time.Minute
)

type DeliveryConfig struct {
	// MaxErrors is the failure budget of one tick.
	MaxErrors int
	// MaxExponent bounds the backoff exponent, 0 means maxSnoozeExponent.
	MaxExponent int
}

// DeliveryScheduler drains the task queue, sending one digest per task.
type DeliveryScheduler struct {
	tasks     TaskQueue
	digests   *DigestService
	objects   ObjectStore
	renderer  *MailRenderer
	mailer    Mailer
	snooze    SnoozeStore
	publisher events.Publisher
	cfg       DeliveryConfig
	clock     func() time.Time
	log       *zap.Logger
}

func NewDeliveryScheduler(
	tasks TaskQueue,
	digests *DigestService,
	objects ObjectStore,
	renderer *MailRenderer,
	mailer Mailer,
	snooze SnoozeStore,
	publisher events.Publisher,
	cfg DeliveryConfig,
	log *zap.Logger,
) *DeliveryScheduler {
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = 5
	}
	return &DeliveryScheduler{
		tasks:     tasks,
		digests:   digests,
		objects:   objects,
		renderer:  renderer,
		mailer:    mailer,
		snooze:    snooze,
		publisher: publisher,
		cfg:       cfg,
		clock:     time.Now,
		log:       log,
	}
}

// Run drains the queue once. A task is deleted only after its own delivery
// succeeded; failed tasks stay queued for the next tick.
func (s *DeliveryScheduler) Run(ctx context.Context) error {
	state, err := s.snooze.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snooze: %w", err)
	}
	now := s.clock()
	if state.Until != nil && state.Until.After(now) {
		s.log.Debug("delivery snoozed", zap.Time("until", *state.Until))
		return nil
	}
	if state.Until != nil {
		state.Until = nil
		if err := s.snooze.Store(ctx, state); err != nil {
			return fmt.Errorf("clear snooze: %w", err)
		}
		metrics.SnoozeUntil.Set(0)
	}

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return err
	}

	failures, delivered := 0, 0
	timesBefore := state.Times
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.Deliver(ctx, task); err != nil {
			failures++
			metrics.DeliveriesFailed.Inc()
			s.log.Warn("delivery failed",
				zap.String("task_id", task.ID.String()),
				zap.String("recipient", task.RecipientKey),
				zap.Int("failures", failures),
				zap.Error(err),
			)
			if failures >= s.cfg.MaxErrors {
				return s.snoozeDelivery(ctx, state, len(tasks)-delivered)
			}
			continue
		}

		err := s.tasks.Delete(ctx, task.ID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			s.log.Info("delivered task was already removed", zap.String("task_id", task.ID.String()))
		case err != nil:
			return err
		}
		delivered++
		state.Times = 0
	}

	if state.Times != timesBefore {
		if err := s.snooze.Store(ctx, state); err != nil {
			return fmt.Errorf("reset snooze: %w", err)
		}
	}
	if len(tasks) > 0 {
		s.log.Info("delivery finished", zap.Int("delivered", delivered), zap.Int("failed", failures))
	}
	return nil
}

func (s *DeliveryScheduler) snoozeDelivery(ctx context.Context, state SnoozeState, remaining int) error {
	state.Times = max(state.Times+1, minSnoozeTimes)
	until := s.clock().Add(SnoozeDuration(state.Times, s.cfg.MaxExponent))
	state.Until = &until

	if err := s.snooze.Store(ctx, state); err != nil {
		return fmt.Errorf("store snooze: %w", err)
	}
	metrics.SnoozeUntil.Set(float64(until.Unix()))

	s.log.Warn("too many delivery failures, snoozing",
		zap.Int("times", state.Times),
		zap.Time("until", until),
		zap.Int("queued", remaining),
	)
	s.publish(ctx, events.New(events.EventDeliverySnoozed, map[string]any{
		"until": until.UTC().Format(time.RFC3339),
		"times": state.Times,
	}))
	return nil
}

// SnoozeDuration is 3 minutes plus 4^times minutes, with the exponent capped
// at maxExponent (0 for the hard ceiling).
func SnoozeDuration(times, maxExponent int) time.Duration {
	limit := maxSnoozeExponent
	if maxExponent > 0 && maxExponent < limit {
		limit = maxExponent
	}
	exp := min(max(times, 0), limit)
	return snoozeFloor + time.Duration(math.Pow(4, float64(exp)))*time.Minute
}

// Deliver builds and sends the digest of one task. Empty digests succeed
// without mail.
func (s *DeliveryScheduler) Deliver(ctx context.Context, task models.NotificationTask) error {
	digest, err := s.digests.Build(ctx, task)
	if err != nil {
		return err
	}
	if digest.IsEmpty() {
		metrics.DeliveriesEmpty.Inc()
		s.log.Debug("empty digest, nothing to send", zap.String("task_id", task.ID.String()))
		return nil
	}

	to, err := s.recipientAddress(ctx, task.RecipientKey)
	if err != nil {
		return err
	}
	mail, err := s.renderer.Render(digest)
	if err != nil {
		return err
	}
	mail.To = to

	if err := s.mailer.Send(ctx, mail); err != nil {
		return err
	}
	metrics.DeliveriesSucceeded.Inc()
	s.publish(ctx, events.New(events.EventDigestDelivered, map[string]any{
		"task_id":   task.ID.String(),
		"recipient": task.RecipientKey,
		"cadence":   task.Cadence,
		"created":   len(digest.Created),
		"deleted":   len(digest.Deleted),
		"updated":   len(digest.Updated),
	}))
	return nil
}

func (s *DeliveryScheduler) recipientAddress(ctx context.Context, key string) (string, error) {
	data, err := s.objects.Get(ctx, models.EntityResource, key)
	switch {
	case err == nil:
		var r models.Resource
		if err := json.Unmarshal(data, &r); err != nil {
			return "", fmt.Errorf("decode resource %s: %w", key, err)
		}
		if r.Email != "" {
			return r.Email, nil
		}
	case !errors.Is(err, models.ErrNotFound):
		return "", err
	}

	if strings.Contains(key, "@") {
		return key, nil
	}
	return "", fmt.Errorf("recipient %s: %w", key, models.ErrNoRecipientAddress)
}

func (s *DeliveryScheduler) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.StreamNotify, event); err != nil {
		s.log.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}
}
