package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danishnav/team-catalog/internal/models"
	"go.uber.org/zap"
)

// Display types of digest items
const (
	TypeTeam        = "Team"
	TypeProductArea = "Product area"
)

// DigestService renders a notification task into a digest by diffing the
// audit snapshots at each target's bounds.
type DigestService struct {
	audits  AuditLog
	objects ObjectStore
	urls    *URLBuilder
	log     *zap.Logger
}

func NewDigestService(audits AuditLog, objects ObjectStore, urls *URLBuilder, log *zap.Logger) *DigestService {
	return &DigestService{audits: audits, objects: objects, urls: urls, log: log}
}

// teamDelta is a team joining or leaving a product area. A delta-only delta
// lands only on an area the task targets itself.
type teamDelta struct {
	areaID    string
	team      models.Item
	added     bool
	deltaOnly bool
}

// digestBuild holds the per-task lookups and the partial result.
type digestBuild struct {
	*DigestService
	ctx       context.Context
	digest    *models.Digest
	updates   map[string]int
	lifecycle map[string]bool
	areas     map[string]bool
	deltas    []teamDelta
	areaNames map[string]string
	names     map[string]string
}

func (s *DigestService) Build(ctx context.Context, task models.NotificationTask) (*models.Digest, error) {
	b := &digestBuild{
		DigestService: s,
		ctx:           ctx,
		digest:        &models.Digest{Cadence: task.Cadence},
		updates:       make(map[string]int),
		lifecycle:     make(map[string]bool),
		areas:         make(map[string]bool),
		areaNames:     make(map[string]string),
		names:         make(map[string]string),
	}

	for _, target := range task.Targets {
		if target.EntityType == models.EntityProductArea && !target.DeltaOnly {
			b.areas[target.TargetID] = true
		}
	}
	for _, target := range task.Targets {
		if err := b.target(target); err != nil {
			return nil, fmt.Errorf("target %s %s: %w", target.EntityType, target.TargetID, err)
		}
	}
	if err := b.applyTeamDeltas(); err != nil {
		return nil, err
	}

	updated := b.digest.Updated[:0]
	for _, u := range b.digest.Updated {
		if u.HasChanges() {
			updated = append(updated, u)
		}
	}
	b.digest.Updated = updated
	return b.digest, nil
}

func (b *digestBuild) target(t models.AuditTarget) error {
	prev, err := b.snapshot(t.PrevAuditID)
	if err != nil {
		return err
	}
	curr, err := b.snapshot(t.CurrAuditID)
	if err != nil {
		return err
	}

	switch t.EntityType {
	case models.EntityTeam:
		return b.team(t.TargetID, prev, curr, t.DeltaOnly)
	case models.EntityProductArea:
		return b.area(t.TargetID, prev, curr)
	}
	b.log.Debug("ignoring untracked target type", zap.String("type", t.EntityType))
	return nil
}

func (b *digestBuild) snapshot(id *int64) (*models.AuditEntry, error) {
	if id == nil {
		return nil, nil
	}
	entry, err := b.audits.Get(b.ctx, *id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("audit %d: %w", *id, models.ErrSnapshotMissing)
	}
	return entry, err
}

func (b *digestBuild) team(id string, prevEntry, currEntry *models.AuditEntry, deltaOnly bool) error {
	prev, err := decodeTeam(prevEntry)
	if err != nil {
		return err
	}
	curr, err := decodeTeam(currEntry)
	if err != nil {
		return err
	}

	var prevArea, currArea string
	if prev != nil {
		prevArea = prev.AreaID()
	}
	if curr != nil {
		currArea = curr.AreaID()
	}
	if prevArea != currArea {
		if prevArea != "" {
			item := models.Item{URL: b.urls.Team(id), Name: prev.Name, Deleted: curr == nil}
			if curr != nil {
				item.Name = curr.Name
			}
			b.deltas = append(b.deltas, teamDelta{areaID: prevArea, team: item, deltaOnly: deltaOnly})
		}
		if currArea != "" {
			item := models.Item{URL: b.urls.Team(id), Name: curr.Name}
			b.deltas = append(b.deltas, teamDelta{areaID: currArea, team: item, added: true, deltaOnly: deltaOnly})
		}
	}
	if deltaOnly {
		return nil
	}

	switch {
	case prev == nil && curr == nil:
		return nil
	case prev == nil:
		b.digest.Created = append(b.digest.Created, models.TypedItem{Type: TypeTeam, URL: b.urls.Team(id), Name: curr.Name})
		return nil
	case curr == nil:
		b.digest.Deleted = append(b.digest.Deleted, models.TypedItem{Type: TypeTeam, URL: b.urls.Team(id), Name: prev.Name, Deleted: true})
		return nil
	}

	u := models.UpdateItem{
		Item:     models.TypedItem{Type: TypeTeam, URL: b.urls.Team(id), Name: curr.Name},
		FromName: prev.Name,
		ToName:   curr.Name,
		FromType: models.TeamTypeLabel(prev.TeamType),
		ToType:   models.TeamTypeLabel(curr.TeamType),
	}
	if prevArea != currArea {
		if prevArea != "" {
			u.OldAreaName, u.OldAreaURL = b.areaName(prevArea), b.urls.ProductArea(prevArea)
		}
		if currArea != "" {
			u.NewAreaName, u.NewAreaURL = b.areaName(currArea), b.urls.ProductArea(currArea)
		}
	}
	u.RemovedMembers, u.NewMembers = b.memberDiff(prev.MemberIdents(), curr.MemberIdents())
	b.addUpdate(id, u)
	return nil
}

func (b *digestBuild) area(id string, prevEntry, currEntry *models.AuditEntry) error {
	prev, err := decodeArea(prevEntry)
	if err != nil {
		return err
	}
	curr, err := decodeArea(currEntry)
	if err != nil {
		return err
	}

	switch {
	case prev == nil && curr == nil:
		return nil
	case prev == nil:
		b.lifecycle[id] = true
		b.digest.Created = append(b.digest.Created, models.TypedItem{Type: TypeProductArea, URL: b.urls.ProductArea(id), Name: curr.Name})
		return nil
	case curr == nil:
		b.lifecycle[id] = true
		b.digest.Deleted = append(b.digest.Deleted, models.TypedItem{Type: TypeProductArea, URL: b.urls.ProductArea(id), Name: prev.Name, Deleted: true})
		return nil
	}

	u := models.UpdateItem{
		Item:     models.TypedItem{Type: TypeProductArea, URL: b.urls.ProductArea(id), Name: curr.Name},
		FromName: prev.Name,
		ToName:   curr.Name,
	}
	u.RemovedMembers, u.NewMembers = b.memberDiff(prev.MemberIdents(), curr.MemberIdents())
	b.addUpdate(id, u)
	return nil
}

func (b *digestBuild) addUpdate(id string, u models.UpdateItem) {
	if _, ok := b.updates[id]; !ok {
		b.updates[id] = len(b.digest.Updated)
	}
	b.digest.Updated = append(b.digest.Updated, u)
}

// applyTeamDeltas reflects team area moves on the areas involved. Areas
// without an update item are rendered from their current snapshot.
func (b *digestBuild) applyTeamDeltas() error {
	for _, d := range b.deltas {
		if b.lifecycle[d.areaID] {
			continue
		}
		if d.deltaOnly && !b.areas[d.areaID] {
			continue
		}
		idx, ok := b.updates[d.areaID]
		if !ok {
			area, err := b.currentArea(d.areaID)
			if err != nil {
				return err
			}
			if area == nil {
				b.log.Warn("product area missing from object store, dropping team delta",
					zap.String("area", d.areaID), zap.String("team", d.team.URL))
				continue
			}
			b.addUpdate(d.areaID, models.UpdateItem{
				Item:     models.TypedItem{Type: TypeProductArea, URL: b.urls.ProductArea(d.areaID), Name: area.Name},
				FromName: area.Name,
				ToName:   area.Name,
			})
			idx = b.updates[d.areaID]
		}

		u := &b.digest.Updated[idx]
		if d.added {
			u.NewTeams = append(u.NewTeams, d.team)
		} else {
			u.RemovedTeams = append(u.RemovedTeams, d.team)
		}
	}
	return nil
}

func (b *digestBuild) currentArea(id string) (*models.ProductArea, error) {
	data, err := b.objects.Get(b.ctx, models.EntityProductArea, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load product area %s: %w", id, err)
	}
	var area models.ProductArea
	if err := json.Unmarshal(data, &area); err != nil {
		return nil, fmt.Errorf("decode product area %s: %w", id, err)
	}
	return &area, nil
}

// areaName resolves a display name for an area, falling back to its id.
func (b *digestBuild) areaName(id string) string {
	if name, ok := b.areaNames[id]; ok {
		return name
	}
	name := id
	area, err := b.currentArea(id)
	if err != nil {
		b.log.Warn("failed to resolve product area name", zap.String("area", id), zap.Error(err))
	} else if area != nil && area.Name != "" {
		name = area.Name
	}
	b.areaNames[id] = name
	return name
}

func (b *digestBuild) memberDiff(prev, curr []string) (removed, added []models.Item) {
	removed, added = []models.Item{}, []models.Item{}
	for _, ident := range difference(prev, curr) {
		removed = append(removed, b.member(ident))
	}
	for _, ident := range difference(curr, prev) {
		added = append(added, b.member(ident))
	}
	return removed, added
}

func (b *digestBuild) member(ident string) models.Item {
	name, ok := b.names[ident]
	if !ok {
		name = ident
		data, err := b.objects.Get(b.ctx, models.EntityResource, ident)
		if err == nil {
			var r models.Resource
			if json.Unmarshal(data, &r) == nil && r.FullName != "" {
				name = r.FullName
			}
		} else if !errors.Is(err, models.ErrNotFound) {
			b.log.Warn("failed to resolve member name", zap.String("ident", ident), zap.Error(err))
		}
		b.names[ident] = name
	}
	return models.Item{URL: b.urls.Resource(ident), Name: name, Ident: ident}
}

// difference returns the elements of a missing from b, in a's order.
func difference(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, s := range b {
		in[s] = true
	}
	var out []string
	for _, s := range a {
		if !in[s] {
			out = append(out, s)
		}
	}
	return out
}

func decodeTeam(e *models.AuditEntry) (*models.Team, error) {
	if e == nil {
		return nil, nil
	}
	var t models.Team
	if err := json.Unmarshal(e.Payload, &t); err != nil {
		return nil, fmt.Errorf("decode team audit %d: %w", e.ID, err)
	}
	return &t, nil
}

func decodeArea(e *models.AuditEntry) (*models.ProductArea, error) {
	if e == nil {
		return nil, nil
	}
	var pa models.ProductArea
	if err := json.Unmarshal(e.Payload, &pa); err != nil {
		return nil, fmt.Errorf("decode product area audit %d: %w", e.ID, err)
	}
	return &pa, nil
}
