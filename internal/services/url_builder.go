package services

import (
	"net/url"
	"strings"

	"github.com/danishnav/team-catalog/internal/models"
)

// URLBuilder links digest items to the registry frontend.
type URLBuilder struct {
	base string
}

func NewURLBuilder(baseURL string) *URLBuilder {
	return &URLBuilder{base: strings.TrimRight(baseURL, "/")}
}

func (b *URLBuilder) Team(id string) string {
	return b.base + "/team/" + url.PathEscape(id)
}

func (b *URLBuilder) ProductArea(id string) string {
	return b.base + "/productarea/" + url.PathEscape(id)
}

func (b *URLBuilder) Resource(ident string) string {
	return b.base + "/resource/" + url.PathEscape(ident)
}

func (b *URLBuilder) For(entityType, id string) string {
	switch entityType {
	case models.EntityTeam:
		return b.Team(id)
	case models.EntityProductArea:
		return b.ProductArea(id)
	case models.EntityResource:
		return b.Resource(id)
	}
	return b.base
}
