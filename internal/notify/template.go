// AngelaMos | 2026
// template.go

package notify

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const fallbackKey = "default"

// TemplateData is what every template executes against.
type TemplateData struct {
	OrgName  string
	Name     string
	Topic    string
	Kind     string
	Decision string
	Data     map[string]any
}

// Templates renders events using the most specific template available:
// topic.kind.decision, then topic.decision, then topic, then default.
type Templates struct {
	byKey map[string]*template.Template
}

func LoadTemplates() (*Templates, error) {
	files, err := fs.Glob(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	t := &Templates{byKey: make(map[string]*template.Template, len(files))}
	for _, name := range files {
		key := strings.TrimSuffix(strings.TrimPrefix(name, "templates/"), ".tmpl")

		parsed, err := template.New(key).
			Funcs(template.FuncMap{"label": label}).
			ParseFS(templateFS, name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", key, err)
		}
		if parsed.Lookup("subject") == nil || parsed.Lookup("body") == nil {
			return nil, fmt.Errorf("template %s must define subject and body", key)
		}
		t.byKey[key] = parsed
	}

	if _, ok := t.byKey[fallbackKey]; !ok {
		return nil, fmt.Errorf("missing %s template", fallbackKey)
	}

	return t, nil
}

func (t *Templates) lookup(ev Event) (string, *template.Template) {
	topic := string(ev.Topic)
	candidates := []string{
		join(topic, ev.Kind, ev.Decision),
		join(topic, ev.Decision),
		topic,
		fallbackKey,
	}
	for _, key := range candidates {
		if tpl, ok := t.byKey[key]; ok {
			return key, tpl
		}
	}
	return fallbackKey, t.byKey[fallbackKey]
}

func (t *Templates) Render(orgName string, ev Event) (Message, error) {
	key, tpl := t.lookup(ev)

	data := TemplateData{
		OrgName:  orgName,
		Name:     ev.To.Name,
		Topic:    string(ev.Topic),
		Kind:     ev.Kind,
		Decision: ev.Decision,
		Data:     ev.Data,
	}

	var subject, body bytes.Buffer
	if err := tpl.ExecuteTemplate(&subject, "subject", data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", key, err)
	}
	if err := tpl.ExecuteTemplate(&body, "body", data); err != nil {
		return Message{}, fmt.Errorf("render %s body: %w", key, err)
	}

	return Message{
		To:      ev.To,
		Subject: strings.TrimSpace(subject.String()),
		Body:    strings.TrimSpace(body.String()) + "\n",
	}, nil
}

func join(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}

// label turns snake_case identifiers into words for message text.
func label(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
