package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/danishnav/team-catalog/internal/models"
)

type Mail struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

var cadenceSubjects = map[string]string{
	models.CadenceAll:     "Team catalog: new changes",
	models.CadenceDaily:   "Team catalog: daily summary",
	models.CadenceWeekly:  "Team catalog: weekly summary",
	models.CadenceMonthly: "Team catalog: monthly summary",
}

const digestTemplate = `<html><body>
<h1>{{.Subject}}</h1>
{{with .Digest.Created}}<h2>Created</h2>
<ul>{{range .}}<li>{{.Type}} <a href="{{.URL}}">{{.Name}}</a></li>{{end}}</ul>{{end}}
{{with .Digest.Deleted}}<h2>Deleted</h2>
<ul>{{range .}}<li>{{.Type}} <a href="{{.URL}}">{{.Name}}</a></li>{{end}}</ul>{{end}}
{{with .Digest.Updated}}<h2>Changed</h2>
{{range .}}<h3>{{.Item.Type}} <a href="{{.Item.URL}}">{{.Item.Name}}</a></h3>
<ul>
{{if .NameChanged}}<li>Name changed from {{.FromName}} to {{.ToName}}</li>{{end}}
{{if .TypeChanged}}<li>Type changed from {{or .FromType "none"}} to {{or .ToType "none"}}</li>{{end}}
{{if .AreaChanged}}<li>Product area changed from {{if .OldAreaURL}}<a href="{{.OldAreaURL}}">{{.OldAreaName}}</a>{{else}}none{{end}} to {{if .NewAreaURL}}<a href="{{.NewAreaURL}}">{{.NewAreaName}}</a>{{else}}none{{end}}</li>{{end}}
{{range .NewMembers}}<li>New member <a href="{{.URL}}">{{.Name}}</a></li>{{end}}
{{range .RemovedMembers}}<li>Removed member <a href="{{.URL}}">{{.Name}}</a></li>{{end}}
{{range .NewTeams}}<li>New team <a href="{{.URL}}">{{.Name}}</a></li>{{end}}
{{range .RemovedTeams}}<li>Removed team <a href="{{.URL}}">{{.Name}}</a>{{if .Deleted}} (deleted){{end}}</li>{{end}}
</ul>{{end}}{{end}}
</body></html>`

// MailRenderer renders digests to HTML mail with a plain text alternative.
type MailRenderer struct {
	tmpl *template.Template
}

func NewMailRenderer() *MailRenderer {
	return &MailRenderer{tmpl: template.Must(template.New("digest").Parse(digestTemplate))}
}

func (r *MailRenderer) Render(d *models.Digest) (Mail, error) {
	subject, ok := cadenceSubjects[d.Cadence]
	if !ok {
		subject = "Team catalog: changes"
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, struct {
		Subject string
		Digest  *models.Digest
	}{subject, d}); err != nil {
		return Mail{}, fmt.Errorf("render digest: %w", err)
	}

	text, err := plainText(buf.String())
	if err != nil {
		return Mail{}, err
	}
	return Mail{Subject: subject, HTML: buf.String(), Text: text}, nil
}

// plainText flattens the rendered mail to one line per heading or list item.
func plainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse rendered digest: %w", err)
	}

	var lines []string
	doc.Find("h1, h2, h3, li").Each(func(_ int, s *goquery.Selection) {
		line := strings.Join(strings.Fields(s.Text()), " ")
		if line == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1", "h2":
			if len(lines) > 0 {
				lines = append(lines, "")
			}
		case "li":
			line = "- " + line
		}
		if href, ok := s.Children().Filter("a").First().Attr("href"); ok && goquery.NodeName(s) != "h1" {
			line += " <" + href + ">"
		}
		lines = append(lines, line)
	})
	return strings.Join(lines, "\n"), nil
}
