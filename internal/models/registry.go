package models

// Team types
const (
	TeamTypeIT             = "IT"
	TeamTypeProduct        = "PRODUCT"
	TeamTypeAdministration = "ADMINISTRATION"
	TeamTypeProject        = "PROJECT"
	TeamTypeOther          = "OTHER"
	TeamTypeUnknown        = "UNKNOWN"
)

var teamTypeLabels = map[string]string{
	TeamTypeIT:             "IT team",
	TeamTypeProduct:        "Product team",
	TeamTypeAdministration: "Administration team",
	TeamTypeProject:        "Project team",
	TeamTypeOther:          "Other",
	TeamTypeUnknown:        "Unknown",
}

// TeamTypeLabel returns the display label of a team type, or "" for an empty type.
func TeamTypeLabel(teamType string) string {
	if teamType == "" {
		return ""
	}
	if l, ok := teamTypeLabels[teamType]; ok {
		return l
	}
	return teamType
}

type TeamMember struct {
	Ident string   `json:"ident"`
	Roles []string `json:"roles,omitempty"`
}

// Team is the snapshot shape stored in audit payloads and the object store.
type Team struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	TeamType      string       `json:"team_type,omitempty"`
	ProductAreaID *string      `json:"product_area_id,omitempty"`
	Members       []TeamMember `json:"members,omitempty"`
}

func (t Team) MemberIdents() []string {
	idents := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		idents = append(idents, m.Ident)
	}
	return idents
}

func (t Team) AreaID() string {
	if t.ProductAreaID == nil {
		return ""
	}
	return *t.ProductAreaID
}

type AreaMember struct {
	Ident string   `json:"ident"`
	Roles []string `json:"roles,omitempty"`
}

type ProductArea struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Members     []AreaMember `json:"members,omitempty"`
}

func (pa ProductArea) MemberIdents() []string {
	idents := make([]string, 0, len(pa.Members))
	for _, m := range pa.Members {
		idents = append(idents, m.Ident)
	}
	return idents
}

// Resource is a person known to the registry. Ident doubles as recipient key.
type Resource struct {
	Ident    string `json:"ident"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
}
