package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"payments-authorizenet/models"
)

var pageTemplates = template.Must(template.New("layout").Parse(`
{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
</head>
<body>
  <main class="payment">
  {{- range .Flashes}}
    <p class="flash">{{.}}</p>
  {{- end}}
  {{template "content" .}}
  </main>
</body>
</html>{{end}}`))

func init() {
	template.Must(pageTemplates.New("payment_content").Parse(`
<h1>{{.Title}}</h1>
{{- with .Payment}}
<p class="description">{{.Description}}</p>
<p class="total">{{$.Amount}} {{.Currency}}</p>
{{- end}}
{{.Form}}`))
	template.Must(pageTemplates.New("result_content").Parse(`
<h1>{{.Title}}</h1>
{{- with .Payment}}
<p class="status">Status: {{.Status}}</p>
<p class="total">{{$.Amount}} {{.Currency}}</p>
{{- if .Message}}
<p class="message">{{.Message}}</p>
{{- end}}
{{- end}}`))
}

type pageData struct {
	Title   string
	Payment *models.Payment
	Amount  string
	Form    template.HTML
	Flashes []string
}

// renderPage executes layout with the named content block. Output is
// buffered so a template error never produces a half-written page.
func renderPage(w http.ResponseWriter, status int, content string, data pageData) error {
	t, err := pageTemplates.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone templates: %w", err)
	}
	if _, err := t.New("content").Parse(`{{template "` + content + `" .}}`); err != nil {
		return fmt.Errorf("failed to bind %s template: %w", content, err)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s page: %w", content, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
