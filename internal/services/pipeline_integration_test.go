//go:build integration

package services

import (
	"context"
	"testing"

	"github.com/danishnav/team-catalog/internal/events"
	"github.com/danishnav/team-catalog/internal/models"
	"github.com/danishnav/team-catalog/internal/repositories"
	"github.com/danishnav/team-catalog/internal/testutil/containers"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestPipelineAgainstPostgres drives bootstrap, aggregation and delivery
// through the postgres repositories.
func TestPipelineAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)

	audits := repositories.NewAuditRepo(pg.Pool)
	states := repositories.NewStateRepo(pg.Pool)
	subs := repositories.NewSubscriptionRepo(pg.Pool)
	tasks := repositories.NewTaskRepo(pg.Pool)
	storage := repositories.NewStorageRepo(pg.Pool)
	log := zap.NewNop()

	p1, p2 := "P1", "P2"
	_, err := storage.Save(ctx, models.EntityProductArea, p1, mustJSON(models.ProductArea{ID: p1, Name: "Area one"}), "S1")
	require.NoError(t, err)
	_, err = storage.Save(ctx, models.EntityProductArea, p2, mustJSON(models.ProductArea{ID: p2, Name: "Area two"}), "S1")
	require.NoError(t, err)
	_, err = storage.Save(ctx, models.EntityTeam, "T1", mustJSON(models.Team{ID: "T1", Name: "Team one", ProductAreaID: &p1}), "S1")
	require.NoError(t, err)

	// History before the bootstrap is never notified.
	require.NoError(t, NewBootstrap(audits, states, log).Run(ctx))

	_, err = pg.Pool.Exec(ctx, `
		INSERT INTO notification (recipient_key, cadence, kind, target) VALUES
			('p2@nav.no', 'ALL', 'TARGETED', 'P2'),
			('all@nav.no', 'ALL', 'ALL_EVENTS', NULL)
	`)
	require.NoError(t, err)

	_, err = storage.Save(ctx, models.EntityTeam, "T1", mustJSON(models.Team{ID: "T1", Name: "Team one", ProductAreaID: &p2}), "S2")
	require.NoError(t, err)

	aggregator := NewTaskAggregator(audits, states, subs, tasks, events.Discard{}, 0, log)
	require.NoError(t, aggregator.Run(ctx, models.CadenceAll))

	queued, err := tasks.List(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 2)

	mailer := &mockMailer{}
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(m Mail) bool {
		return containsAll(m.Text, "Area two", "New team", "Team one")
	})).Return(nil).Twice()

	digests := NewDigestService(audits, storage, NewURLBuilder("https://teamkatalog.example"), log)
	delivery := NewDeliveryScheduler(tasks, digests, storage, NewMailRenderer(), mailer, NewLocalSnooze(), events.Discard{},
		DeliveryConfig{MaxErrors: 5}, log)
	require.NoError(t, delivery.Run(ctx))

	mailer.AssertExpectations(t)
	left, err := tasks.List(ctx)
	require.NoError(t, err)
	require.Empty(t, left)

	// Rerunning without new audits creates nothing.
	require.NoError(t, aggregator.Run(ctx, models.CadenceAll))
	left, err = tasks.List(ctx)
	require.NoError(t, err)
	require.Empty(t, left)
}
