package services

import (
	"context"
	"testing"

	"github.com/danishnav/team-catalog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const baseURL = "http://baseurl"

func newTestDigests(audits *memAudit, objects *memObjects) *DigestService {
	return NewDigestService(audits, objects, NewURLBuilder(baseURL), zap.NewNop())
}

func teamTarget(id string, prev, curr *int64) models.AuditTarget {
	return models.AuditTarget{TargetID: id, EntityType: models.EntityTeam, PrevAuditID: prev, CurrAuditID: curr}
}

func areaTarget(id string, prev, curr *int64) models.AuditTarget {
	return models.AuditTarget{TargetID: id, EntityType: models.EntityProductArea, PrevAuditID: prev, CurrAuditID: curr}
}

func memberItem(ident, name string) models.Item {
	return models.Item{URL: baseURL + "/resource/" + ident, Name: name, Ident: ident}
}

func TestDigestUpdate(t *testing.T) {
	ctx := context.Background()
	audits := newMemAudit()
	objects := newMemObjects()
	objects.put(models.EntityResource, "S000001", models.Resource{Ident: "S000001", FullName: "Ola Nordmann"})
	objects.put(models.EntityResource, "S000002", models.Resource{Ident: "S000002", FullName: "Kari Nordmann"})

	paOne := audits.add(models.ActionCreate, models.EntityProductArea, "PA", area("PA", "Pa start name"))
	paTwo := audits.add(models.ActionUpdate, models.EntityProductArea, "PA", area("PA", "Pa end name", "S000000"))
	objects.put(models.EntityProductArea, "PA", area("PA", "Pa end name", "S000000"))

	one := audits.add(models.ActionCreate, models.EntityTeam, "T", models.Team{
		ID: "T", Name: "Start name", TeamType: models.TeamTypeIT,
		Members: []models.TeamMember{{Ident: "S000000"}, {Ident: "S000001"}},
	})
	two := audits.add(models.ActionUpdate, models.EntityTeam, "T", models.Team{
		ID: "T", Name: "End name", TeamType: models.TeamTypeProduct,
		Members: []models.TeamMember{{Ident: "S000000"}, {Ident: "S000002"}},
	})
	three := audits.add(models.ActionUpdate, models.EntityTeam, "T", models.Team{
		ID: "T", Name: "End name", TeamType: models.TeamTypeProduct, ProductAreaID: strPtr("PA"),
		Members: []models.TeamMember{{Ident: "S000000"}, {Ident: "S000002"}},
	})

	d, err := newTestDigests(audits, objects).Build(ctx, models.NotificationTask{
		Cadence: models.CadenceDaily,
		Targets: []models.AuditTarget{
			teamTarget("T", idPtr(one.ID), idPtr(three.ID)),
			teamTarget("T", nil, idPtr(two.ID)),
			teamTarget("T", idPtr(one.ID), nil),
			areaTarget("PA", idPtr(paOne.ID), idPtr(paTwo.ID)),
		},
	})
	require.NoError(t, err)
	require.False(t, d.IsEmpty())

	assert.Equal(t, models.CadenceDaily, d.Cadence)
	assert.Contains(t, d.Created, models.TypedItem{Type: TypeTeam, URL: baseURL + "/team/T", Name: "End name"})
	assert.Contains(t, d.Deleted, models.TypedItem{Type: TypeTeam, URL: baseURL + "/team/T", Name: "Start name", Deleted: true})
	require.Len(t, d.Updated, 2)

	teamUpdate := findUpdate(d, TypeTeam)
	require.NotNil(t, teamUpdate)
	assert.Equal(t, models.UpdateItem{
		Item:           models.TypedItem{Type: TypeTeam, URL: baseURL + "/team/T", Name: "End name"},
		FromName:       "Start name",
		ToName:         "End name",
		FromType:       "IT team",
		ToType:         "Product team",
		NewAreaName:    "Pa end name",
		NewAreaURL:     baseURL + "/productarea/PA",
		RemovedMembers: []models.Item{memberItem("S000001", "Ola Nordmann")},
		NewMembers:     []models.Item{memberItem("S000002", "Kari Nordmann")},
	}, *teamUpdate)

	paUpdate := findUpdate(d, TypeProductArea)
	require.NotNil(t, paUpdate)
	assert.Equal(t, models.UpdateItem{
		Item:           models.TypedItem{Type: TypeProductArea, URL: baseURL + "/productarea/PA", Name: "Pa end name"},
		FromName:       "Pa start name",
		ToName:         "Pa end name",
		RemovedMembers: []models.Item{},
		NewMembers:     []models.Item{memberItem("S000000", "S000000")},
		NewTeams:       []models.Item{{URL: baseURL + "/team/T", Name: "End name"}},
	}, *paUpdate)
}

func TestDigestTeamSwitchArea(t *testing.T) {
	ctx := context.Background()
	audits := newMemAudit()
	objects := newMemObjects()

	from := audits.add(models.ActionCreate, models.EntityProductArea, "FROM", area("FROM", "Pa name from"))
	to := audits.add(models.ActionCreate, models.EntityProductArea, "TO", area("TO", "Pa name to"))
	objects.put(models.EntityProductArea, "FROM", area("FROM", "Pa name from"))
	objects.put(models.EntityProductArea, "TO", area("TO", "Pa name to"))

	audits.add(models.ActionCreate, models.EntityTeam, "T", team("T", "Team name", strPtr("FROM")))
	two := audits.add(models.ActionUpdate, models.EntityTeam, "T", team("T", "Team name", strPtr("FROM")))
	three := audits.add(models.ActionUpdate, models.EntityTeam, "T", team("T", "Team name", strPtr("TO")))

	d, err := newTestDigests(audits, objects).Build(ctx, models.NotificationTask{
		Cadence: models.CadenceDaily,
		Targets: []models.AuditTarget{
			teamTarget("T", idPtr(two.ID), idPtr(three.ID)),
			areaTarget("FROM", idPtr(from.ID), idPtr(from.ID)),
			areaTarget("TO", idPtr(to.ID), idPtr(to.ID)),
		},
	})
	require.NoError(t, err)

	teamItem := models.Item{URL: baseURL + "/team/T", Name: "Team name"}
	assert.Equal(t, []models.UpdateItem{
		{
			Item:           models.TypedItem{Type: TypeTeam, URL: baseURL + "/team/T", Name: "Team name"},
			FromName:       "Team name",
			ToName:         "Team name",
			FromType:       "IT team",
			ToType:         "IT team",
			OldAreaName:    "Pa name from",
			OldAreaURL:     baseURL + "/productarea/FROM",
			NewAreaName:    "Pa name to",
			NewAreaURL:     baseURL + "/productarea/TO",
			RemovedMembers: []models.Item{},
			NewMembers:     []models.Item{},
		},
		{
			Item:           models.TypedItem{Type: TypeProductArea, URL: baseURL + "/productarea/FROM", Name: "Pa name from"},
			FromName:       "Pa name from",
			ToName:         "Pa name from",
			RemovedMembers: []models.Item{},
			NewMembers:     []models.Item{},
			RemovedTeams:   []models.Item{teamItem},
		},
		{
			Item:           models.TypedItem{Type: TypeProductArea, URL: baseURL + "/productarea/TO", Name: "Pa name to"},
			FromName:       "Pa name to",
			ToName:         "Pa name to",
			RemovedMembers: []models.Item{},
			NewMembers:     []models.Item{},
			NewTeams:       []models.Item{teamItem},
		},
	}, d.Updated)
}

func TestDigestTeamDeletedFromArea(t *testing.T) {
	ctx := context.Background()
	audits := newMemAudit()
	objects := newMemObjects()

	paOne := audits.add(models.ActionCreate, models.EntityProductArea, "PA", area("PA", "Pa start name"))
	objects.put(models.EntityProductArea, "PA", area("PA", "Pa start name"))
	one := audits.add(models.ActionCreate, models.EntityTeam, "T", team("T", "Start name", strPtr("PA")))

	d, err := newTestDigests(audits, objects).Build(ctx, models.NotificationTask{
		Cadence: models.CadenceDaily,
		Targets: []models.AuditTarget{
			teamTarget("T", idPtr(one.ID), nil),
			areaTarget("PA", idPtr(paOne.ID), idPtr(paOne.ID)),
		},
	})
	require.NoError(t, err)

	assert.Contains(t, d.Deleted, models.TypedItem{Type: TypeTeam, URL: baseURL + "/team/T", Name: "Start name", Deleted: true})
	paUpdate := findUpdate(d, TypeProductArea)
	require.NotNil(t, paUpdate)
	assert.Equal(t, []models.Item{{URL: baseURL + "/team/T", Name: "Start name", Deleted: true}}, paUpdate.RemovedTeams)
	assert.Empty(t, paUpdate.NewTeams)
}

func TestDigestSkipsDescriptionOnlyUpdate(t *testing.T) {
	audits := newMemAudit()
	before := team("T", "Start name", nil, "S000000", "S000001")
	one := audits.add(models.ActionCreate, models.EntityTeam, "T", before)
	before.Description = "just edit description"
	two := audits.add(models.ActionUpdate, models.EntityTeam, "T", before)

	d, err := newTestDigests(audits, newMemObjects()).Build(context.Background(), models.NotificationTask{
		Cadence: models.CadenceDaily,
		Targets: []models.AuditTarget{teamTarget("T", idPtr(one.ID), idPtr(two.ID))},
	})
	require.NoError(t, err)
	assert.True(t, d.IsEmpty())
}

func TestDigestCreatedAndDeletedInBatchIsNoop(t *testing.T) {
	d, err := newTestDigests(newMemAudit(), newMemObjects()).Build(context.Background(), models.NotificationTask{
		Cadence: models.CadenceAll,
		Targets: []models.AuditTarget{teamTarget("T", nil, nil), areaTarget("PA", nil, nil)},
	})
	require.NoError(t, err)
	assert.True(t, d.IsEmpty())
}

func TestDigestMissingSnapshotFails(t *testing.T) {
	audits := newMemAudit()
	one := audits.add(models.ActionCreate, models.EntityTeam, "T", team("T", "Team", nil))
	two := audits.add(models.ActionUpdate, models.EntityTeam, "T", team("T", "Team 2", nil))
	audits.missingID[one.ID] = true

	_, err := newTestDigests(audits, newMemObjects()).Build(context.Background(), models.NotificationTask{
		Targets: []models.AuditTarget{teamTarget("T", idPtr(one.ID), idPtr(two.ID))},
	})
	require.ErrorIs(t, err, models.ErrSnapshotMissing)
}

func TestDigestDeltaOnAreaOutsideTask(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		seedArea    bool
		areaCreated bool
		wantAreaHit bool
	}{
		{name: "synthesized from object store", seedArea: true, wantAreaHit: true},
		{name: "dropped when area is missing"},
		{name: "dropped when area was created in task", seedArea: true, areaCreated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audits := newMemAudit()
			objects := newMemObjects()
			if tt.seedArea {
				objects.put(models.EntityProductArea, "PA", area("PA", "Current area"))
			}
			one := audits.add(models.ActionCreate, models.EntityTeam, "T", team("T", "Team", nil))
			two := audits.add(models.ActionUpdate, models.EntityTeam, "T", team("T", "Team", strPtr("PA")))

			targets := []models.AuditTarget{teamTarget("T", idPtr(one.ID), idPtr(two.ID))}
			if tt.areaCreated {
				created := audits.add(models.ActionCreate, models.EntityProductArea, "PA", area("PA", "Current area"))
				targets = append(targets, areaTarget("PA", nil, idPtr(created.ID)))
			}

			d, err := newTestDigests(audits, objects).Build(ctx, models.NotificationTask{Targets: targets})
			require.NoError(t, err)

			paUpdate := findUpdate(d, TypeProductArea)
			if !tt.wantAreaHit {
				assert.Nil(t, paUpdate)
				return
			}
			require.NotNil(t, paUpdate)
			assert.Equal(t, "Current area", paUpdate.Item.Name)
			assert.Equal(t, []models.Item{{URL: baseURL + "/team/T", Name: "Team"}}, paUpdate.NewTeams)
		})
	}
}

func TestDigestDeltaOnlyTeam(t *testing.T) {
	ctx := context.Background()
	audits := newMemAudit()
	objects := newMemObjects()
	objects.put(models.EntityProductArea, "P1", area("P1", "Area one"))
	objects.put(models.EntityProductArea, "P2", area("P2", "Area two"))

	p1 := audits.add(models.ActionCreate, models.EntityProductArea, "P1", area("P1", "Area one"))
	one := audits.add(models.ActionCreate, models.EntityTeam, "T", team("T", "Team", strPtr("P1")))
	two := audits.add(models.ActionUpdate, models.EntityTeam, "T", team("T", "New name", strPtr("P2"), "M1"))

	companion := teamTarget("T", idPtr(one.ID), idPtr(two.ID))
	companion.DeltaOnly = true
	task := models.NotificationTask{Targets: []models.AuditTarget{companion, areaTarget("P1", idPtr(p1.ID), idPtr(p1.ID))}}

	d, err := newTestDigests(audits, objects).Build(ctx, task)
	require.NoError(t, err)

	assert.Empty(t, d.Created)
	assert.Empty(t, d.Deleted)
	require.Len(t, d.Updated, 1)
	assert.Equal(t, baseURL+"/productarea/P1", d.Updated[0].Item.URL)
	assert.Equal(t, []models.Item{{URL: baseURL + "/team/T", Name: "New name"}}, d.Updated[0].RemovedTeams)
	assert.Empty(t, d.Updated[0].NewTeams)
}

func TestDigestAreaNameFallsBackToID(t *testing.T) {
	audits := newMemAudit()
	one := audits.add(models.ActionCreate, models.EntityTeam, "T", team("T", "Team", nil))
	two := audits.add(models.ActionUpdate, models.EntityTeam, "T", team("T", "Team", strPtr("GONE")))

	d, err := newTestDigests(audits, newMemObjects()).Build(context.Background(), models.NotificationTask{
		Targets: []models.AuditTarget{teamTarget("T", idPtr(one.ID), idPtr(two.ID))},
	})
	require.NoError(t, err)
	teamUpdate := findUpdate(d, TypeTeam)
	require.NotNil(t, teamUpdate)
	assert.Equal(t, "GONE", teamUpdate.NewAreaName)
	assert.True(t, teamUpdate.AreaChanged())
}
