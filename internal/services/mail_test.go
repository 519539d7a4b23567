package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danishnav/team-catalog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleDigest() *models.Digest {
	return &models.Digest{
		Cadence: models.CadenceWeekly,
		Created: []models.TypedItem{{Type: TypeTeam, URL: baseURL + "/team/NEW", Name: "Brand new"}},
		Deleted: []models.TypedItem{{Type: TypeTeam, URL: baseURL + "/team/OLD", Name: "Old & gone", Deleted: true}},
		Updated: []models.UpdateItem{{
			Item:         models.TypedItem{Type: TypeProductArea, URL: baseURL + "/productarea/PA", Name: "Area"},
			FromName:     "Area",
			ToName:       "Area",
			NewMembers:   []models.Item{{URL: baseURL + "/resource/S1", Name: "Ola Nordmann", Ident: "S1"}},
			RemovedTeams: []models.Item{{URL: baseURL + "/team/OLD", Name: "Old & gone", Deleted: true}},
		}},
	}
}

func TestMailRendererRender(t *testing.T) {
	mail, err := NewMailRenderer().Render(sampleDigest())
	require.NoError(t, err)

	assert.Equal(t, "Team catalog: weekly summary", mail.Subject)
	assert.Contains(t, mail.HTML, `<a href="http://baseurl/team/NEW">Brand new</a>`)
	assert.Contains(t, mail.HTML, "Old &amp; gone", "names are escaped")
	assert.NotContains(t, mail.HTML, "Name changed")

	lines := strings.Split(mail.Text, "\n")
	assert.Equal(t, "Team catalog: weekly summary", lines[0])
	assert.Contains(t, lines, "- Team Brand new <http://baseurl/team/NEW>")
	assert.Contains(t, lines, "- New member Ola Nordmann <http://baseurl/resource/S1>")
	assert.Contains(t, lines, "- Removed team Old & gone (deleted) <http://baseurl/team/OLD>")
	assert.Contains(t, lines, "Product area Area <http://baseurl/productarea/PA>")
}

func TestMailRendererChangedFields(t *testing.T) {
	d := &models.Digest{
		Cadence: models.CadenceDaily,
		Updated: []models.UpdateItem{{
			Item:        models.TypedItem{Type: TypeTeam, URL: baseURL + "/team/T", Name: "New name"},
			FromName:    "Old name",
			ToName:      "New name",
			FromType:    "IT team",
			ToType:      "Product team",
			NewAreaName: "Area",
			NewAreaURL:  baseURL + "/productarea/PA",
		}},
	}
	mail, err := NewMailRenderer().Render(d)
	require.NoError(t, err)

	assert.True(t, containsAll(mail.Text,
		"- Name changed from Old name to New name",
		"- Type changed from IT team to Product team",
		"- Product area changed from none to Area",
	), mail.Text)
}

func TestMailClientSend(t *testing.T) {
	var got Mail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/mail", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewMailClient(srv.URL+"/", "noreply@nav.no", time.Second, zap.NewNop())
	err := client.Send(context.Background(), Mail{To: "a@nav.no", Subject: "s", HTML: "<p>h</p>", Text: "h"})
	require.NoError(t, err)

	assert.Equal(t, "a@nav.no", got.To)
	assert.Equal(t, "noreply@nav.no", got.From)
}

func TestMailClientGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mailbox full", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewMailClient(srv.URL, "", time.Second, zap.NewNop()).Send(context.Background(), Mail{To: "a@nav.no"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "mailbox full")
}

func TestURLBuilder(t *testing.T) {
	b := NewURLBuilder("http://baseurl/")
	tests := []struct {
		got, want string
	}{
		{b.Team("T1"), "http://baseurl/team/T1"},
		{b.ProductArea("P 1"), "http://baseurl/productarea/P%201"},
		{b.Resource("S123456"), "http://baseurl/resource/S123456"},
		{b.For(models.EntityProductArea, "P"), "http://baseurl/productarea/P"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
