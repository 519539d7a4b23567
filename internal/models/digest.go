package models

// Item is a linked entity mentioned in a digest.
type Item struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted,omitempty"`
	Ident   string `json:"ident,omitempty"`
}

// TypedItem is an Item carrying its display type.
type TypedItem struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted,omitempty"`
}

// UpdateItem is the field-level change of one updated entity, including team
// membership deltas derived from related entities.
type UpdateItem struct {
	Item TypedItem `json:"item"`

	FromName string `json:"from_name"`
	ToName   string `json:"to_name"`
	FromType string `json:"from_type,omitempty"`
	ToType   string `json:"to_type,omitempty"`

	OldAreaName string `json:"old_area_name,omitempty"`
	OldAreaURL  string `json:"old_area_url,omitempty"`
	NewAreaName string `json:"new_area_name,omitempty"`
	NewAreaURL  string `json:"new_area_url,omitempty"`

	RemovedMembers []Item `json:"removed_members"`
	NewMembers     []Item `json:"new_members"`
	RemovedTeams   []Item `json:"removed_teams"`
	NewTeams       []Item `json:"new_teams"`
}

func (u UpdateItem) NameChanged() bool {
	return u.FromName != u.ToName
}

func (u UpdateItem) TypeChanged() bool {
	return u.FromType != u.ToType
}

func (u UpdateItem) AreaChanged() bool {
	return u.OldAreaURL != u.NewAreaURL
}

// HasChanges is false for updates that only touched fields the digest does not report.
func (u UpdateItem) HasChanges() bool {
	return u.NameChanged() || u.TypeChanged() || u.AreaChanged() ||
		len(u.RemovedMembers) > 0 || len(u.NewMembers) > 0 ||
		len(u.RemovedTeams) > 0 || len(u.NewTeams) > 0
}

type Digest struct {
	Cadence string       `json:"cadence"`
	Created []TypedItem  `json:"created"`
	Deleted []TypedItem  `json:"deleted"`
	Updated []UpdateItem `json:"updated"`
}

func (d *Digest) IsEmpty() bool {
	return len(d.Created) == 0 && len(d.Deleted) == 0 && len(d.Updated) == 0
}
