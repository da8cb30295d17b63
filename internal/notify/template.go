// Package notify renders named notification templates and delivers
// them as multipart plain+HTML email over SMTP.
package notify

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	verr "vaulta/internal/errors"
)

// Template is a named email template. Body is HTML text using Go
// template syntax; {{.Domain}} is always available.
type Template struct {
	Name    string
	Subject string
	Body    string
}

// stripper removes every HTML element, leaving text content only.
var stripper = bluemonday.StrictPolicy()

// RenderHTML formats the body as HTML with the given data. The domain
// is merged into the data under the key "Domain".
func (t *Template) RenderHTML(domain string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(t.Name).Parse(t.Body)
	if err != nil {
		return "", verr.WrapDelivery("render", t.Name, err)
	}
	merged := map[string]interface{}{"Domain": domain}
	for k, v := range data {
		merged[k] = v
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, merged); err != nil {
		return "", verr.WrapDelivery("render", t.Name, err)
	}
	return buf.String(), nil
}

// RenderPlain formats the body as plain text: line breaks and
// paragraphs become newlines, every other tag is stripped.
func (t *Template) RenderPlain(domain string, data map[string]interface{}) (string, error) {
	rendered, err := t.RenderHTML(domain, data)
	if err != nil {
		return "", err
	}
	cleaned := strings.NewReplacer(
		"<br />", "\n",
		"<br/>", "\n",
		"<br>", "\n",
		"<p>", "\n",
		"</p>", "\n",
	).Replace(rendered)
	return html.UnescapeString(stripper.Sanitize(cleaned)), nil
}
