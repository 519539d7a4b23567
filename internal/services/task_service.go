package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danishnav/team-catalog/internal/events"
	"github.com/danishnav/team-catalog/internal/metrics"
	"github.com/danishnav/team-catalog/internal/models"
	"go.uber.org/zap"
)

// TaskAggregator turns the audit entries after a cadence cursor into one
// notification task per interested recipient.
type TaskAggregator struct {
	audits     AuditLog
	states     CursorStore
	subs       SubscriptionSource
	tasks      TaskWriter
	publisher  events.Publisher
	batchLimit int
	log        *zap.Logger
}

func NewTaskAggregator(
	audits AuditLog,
	states CursorStore,
	subs SubscriptionSource,
	tasks TaskWriter,
	publisher events.Publisher,
	batchLimit int,
	log *zap.Logger,
) *TaskAggregator {
	return &TaskAggregator{
		audits:     audits,
		states:     states,
		subs:       subs,
		tasks:      tasks,
		publisher:  publisher,
		batchLimit: batchLimit,
		log:        log,
	}
}

// targetGroup is every batch entry of one target, oldest first.
type targetGroup struct {
	id         string
	entityType string
	entries    []models.AuditEntry
	target     models.AuditTarget
}

func (g *targetGroup) oldest() models.AuditEntry { return g.entries[0] }
func (g *targetGroup) newest() models.AuditEntry { return g.entries[len(g.entries)-1] }

// Run processes one tick of a cadence. The tasks of the batch and the moved
// cursor are stored together, so a failed tick leaves no tasks behind.
func (a *TaskAggregator) Run(ctx context.Context, cadence string) error {
	log := a.log.With(zap.String("cadence", cadence))

	state, err := a.states.Get(ctx, cadence)
	if err != nil {
		return err
	}
	if state.LastAuditNotified == nil {
		log.Info("cursor not initialized, skipping")
		return nil
	}
	cursor := *state.LastAuditNotified

	batch, err := a.audits.Since(ctx, cursor, a.batchLimit)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		log.Debug("no new audits", zap.Int64("cursor", cursor))
		return nil
	}
	newCursor := batch[len(batch)-1].ID

	groups, order := groupByTarget(batch)
	for _, id := range order {
		if err := a.resolveBounds(ctx, groups[id], log); err != nil {
			return err
		}
	}

	related, companions, err := a.relatedTargets(ctx, groups, order, log)
	if err != nil {
		return err
	}
	for _, g := range related {
		groups[g.id] = g
		order = append(order, g.id)
	}

	subs, err := a.subs.ListByCadence(ctx, cadence)
	if err != nil {
		return err
	}

	tasks := buildTasks(cadence, subs, groups, order, companions)
	if err := a.tasks.Enqueue(ctx, cadence, tasks, newCursor); err != nil {
		return fmt.Errorf("enqueue %d tasks: %w", len(tasks), err)
	}
	metrics.CursorPosition.WithLabelValues(cadence).Set(float64(newCursor))
	metrics.TasksCreated.WithLabelValues(cadence).Add(float64(len(tasks)))
	for _, task := range tasks {
		a.publish(ctx, events.New(events.EventTaskCreated, map[string]any{
			"task_id":   task.ID.String(),
			"recipient": task.RecipientKey,
			"cadence":   cadence,
			"targets":   len(task.Targets),
		}))
	}

	log.Info("audits aggregated",
		zap.Int("audits", len(batch)),
		zap.Int("targets", len(order)),
		zap.Int("tasks", len(tasks)),
		zap.Int64("cursor", newCursor),
	)
	return nil
}

func groupByTarget(batch []models.AuditEntry) (map[string]*targetGroup, []string) {
	groups := make(map[string]*targetGroup)
	var order []string
	for _, e := range batch {
		g, ok := groups[e.EntityID]
		if !ok {
			g = &targetGroup{id: e.EntityID, entityType: e.EntityType}
			groups[e.EntityID] = g
			order = append(order, e.EntityID)
		}
		g.entries = append(g.entries, e)
	}
	return groups, order
}

func (a *TaskAggregator) resolveBounds(ctx context.Context, g *targetGroup, log *zap.Logger) error {
	oldest, newest := g.oldest(), g.newest()

	prev, err := a.audits.PreviousFor(ctx, oldest)
	if err != nil {
		return err
	}
	if prev == nil && oldest.Action != models.ActionCreate {
		log.Warn("no earlier audit for target, history predates the log",
			zap.String("target", g.id), zap.Int64("audit_id", oldest.ID))
	}

	var curr *int64
	if newest.Action != models.ActionDelete {
		id := newest.ID
		curr = &id
	}

	g.target = models.AuditTarget{
		TargetID:    g.id,
		EntityType:  g.entityType,
		PrevAuditID: prev,
		CurrAuditID: curr,
	}
	return nil
}

// relatedTargets adds the product areas a team joined or left within the
// batch, so subscribers of those areas see the membership change. An area
// without history gets empty bounds and is rendered from the object store.
// companions maps each such area to the teams that moved, which travel with
// the area into targeted tasks as delta-only targets.
func (a *TaskAggregator) relatedTargets(ctx context.Context, groups map[string]*targetGroup, order []string, log *zap.Logger) ([]*targetGroup, map[string][]string, error) {
	var related []*targetGroup
	companions := make(map[string][]string)
	seen := make(map[string]bool)

	for _, id := range order {
		g := groups[id]
		if g.entityType != models.EntityTeam {
			continue
		}

		var prevArea, currArea string
		if g.target.CurrAuditID != nil {
			currArea = teamAreaID(g.newest().Payload, log)
		}
		if g.target.PrevAuditID != nil {
			prev, err := a.audits.Get(ctx, *g.target.PrevAuditID)
			switch {
			case errors.Is(err, models.ErrNotFound):
				log.Warn("previous team snapshot missing", zap.String("team", g.id), zap.Int64("audit_id", *g.target.PrevAuditID))
			case err != nil:
				return nil, nil, err
			default:
				prevArea = teamAreaID(prev.Payload, log)
			}
		}
		if prevArea == currArea {
			continue
		}

		for _, areaID := range []string{prevArea, currArea} {
			if areaID == "" {
				continue
			}
			companions[areaID] = append(companions[areaID], g.id)
			if seen[areaID] {
				continue
			}
			seen[areaID] = true
			if _, direct := groups[areaID]; direct {
				continue
			}

			latest, err := a.audits.LatestFor(ctx, models.EntityProductArea, areaID)
			if err != nil {
				return nil, nil, err
			}
			t := models.AuditTarget{TargetID: areaID, EntityType: models.EntityProductArea}
			if latest != nil {
				if latest.Action == models.ActionDelete {
					continue
				}
				id := latest.ID
				t.PrevAuditID, t.CurrAuditID = &id, &id
			}
			related = append(related, &targetGroup{id: areaID, entityType: models.EntityProductArea, target: t})
		}
	}
	return related, companions, nil
}

func teamAreaID(payload json.RawMessage, log *zap.Logger) string {
	var team models.Team
	if err := json.Unmarshal(payload, &team); err != nil {
		log.Warn("undecodable team payload", zap.Error(err))
		return ""
	}
	return team.AreaID()
}

// buildTasks merges the surviving subscriptions of each recipient into one task.
// Targets keep batch order with related targets last. A team reached only
// through a subscribed area is marked DeltaOnly.
func buildTasks(cadence string, subs []models.Subscription, groups map[string]*targetGroup, order []string, companions map[string][]string) []models.NotificationTask {
	type recipient struct {
		allEvents  bool
		targets    map[string]bool
		companions map[string]bool
	}
	recipients := make(map[string]*recipient)
	var keys []string

	for _, s := range subs {
		if !s.IsAllEvents() {
			if s.Target == nil {
				continue
			}
			if _, ok := groups[*s.Target]; !ok {
				continue
			}
		}
		r, ok := recipients[s.RecipientKey]
		if !ok {
			r = &recipient{targets: make(map[string]bool), companions: make(map[string]bool)}
			recipients[s.RecipientKey] = r
			keys = append(keys, s.RecipientKey)
		}
		if s.IsAllEvents() {
			r.allEvents = true
			continue
		}
		r.targets[*s.Target] = true
		for _, teamID := range companions[*s.Target] {
			r.companions[teamID] = true
		}
	}

	tasks := make([]models.NotificationTask, 0, len(keys))
	for _, key := range keys {
		r := recipients[key]
		task := models.NotificationTask{RecipientKey: key, Cadence: cadence}
		for _, id := range order {
			switch {
			case r.allEvents || r.targets[id]:
				task.Targets = append(task.Targets, groups[id].target)
			case r.companions[id]:
				t := groups[id].target
				t.DeltaOnly = true
				task.Targets = append(task.Targets, t)
			}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

func (a *TaskAggregator) publish(ctx context.Context, event events.Event) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, events.StreamNotify, event); err != nil {
		a.log.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
	}
}
