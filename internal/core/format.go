package core

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"mdx-assistant/internal/i18n"
	"mdx-assistant/pkg"
)

// SectionKind tells renderers how to lay out a section.
type SectionKind int

const (
	SectionHeadline SectionKind = iota
	SectionUnordered
	SectionOrdered
	SectionHighlight
)

// Section is one block of a rendered diagnosis.
type Section struct {
	Kind  SectionKind
	Title string
	Text  string
	Note  string
	Items []string
}

// Document is a display-ready diagnosis independent of markup dialect.
// Free-text answers live in Text and have no sections.
type Document struct {
	Text     string
	Sections []Section
}

// IsText reports whether the document is a free-text passthrough.
func (d Document) IsText() bool {
	return len(d.Sections) == 0
}

// Formatter renders diagnosis results with translated section titles.
type Formatter struct {
	Resolver i18n.Resolver
}

// NewFormatter returns a Formatter using res for labels.
func NewFormatter(res i18n.Resolver) *Formatter {
	return &Formatter{Resolver: res}
}

// Format turns a result into a Document.  A nil result gives an empty
// document.
func (f *Formatter) Format(result *pkg.DiagnosisResult, language string) Document {
	if result == nil {
		return Document{}
	}
	if !result.IsStructured() {
		return Document{Text: result.Text}
	}
	d := result.Structured
	t := func(key string) string { return f.Resolver.Resolve(language, key) }

	primary := Section{Kind: SectionHeadline, Title: t("section_primary"), Text: d.PrimaryDiagnosis}
	if d.ConfidenceLevel != "" {
		primary.Note = fmt.Sprintf("%s: %s", t("section_confidence"), t("confidence_"+string(d.ConfidenceLevel)))
	}
	sections := []Section{primary}
	appendList := func(kind SectionKind, key string, items []string) {
		if len(items) > 0 {
			sections = append(sections, Section{Kind: kind, Title: t(key), Items: items})
		}
	}
	appendList(SectionUnordered, "section_differential", d.DifferentialDiagnoses)
	appendList(SectionOrdered, "section_next_steps", d.RecommendedNextSteps)
	appendList(SectionUnordered, "section_considerations", d.ImportantConsiderations)
	if strings.TrimSpace(d.Reasoning) != "" {
		sections = append(sections, Section{Kind: SectionHighlight, Title: t("section_reasoning"), Text: d.Reasoning})
	}
	return Document{Sections: sections}
}

// Markdown renders the document as markdown.  Free text is returned
// unchanged.
func (d Document) Markdown() string {
	if d.IsText() {
		return d.Text
	}
	var b strings.Builder
	for i, s := range d.Sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### %s\n", s.Title)
		switch s.Kind {
		case SectionHeadline:
			fmt.Fprintf(&b, "**%s**", s.Text)
			if s.Note != "" {
				fmt.Fprintf(&b, " _(%s)_", s.Note)
			}
			b.WriteString("\n")
		case SectionUnordered:
			for _, item := range s.Items {
				fmt.Fprintf(&b, "- %s\n", item)
			}
		case SectionOrdered:
			for n, item := range s.Items {
				fmt.Fprintf(&b, "%d. %s\n", n+1, item)
			}
		case SectionHighlight:
			for _, line := range strings.Split(strings.TrimSpace(s.Text), "\n") {
				fmt.Fprintf(&b, "> %s\n", line)
			}
		}
	}
	return b.String()
}

var htmlTemplate = template.Must(template.New("diagnosis").Funcs(template.FuncMap{
	"lines": func(s string) []string { return strings.Split(strings.TrimSpace(s), "\n") },
}).Parse(`<div class="diagnosis">
{{- if not .Sections}}<p>{{range $i, $l := lines .Text}}{{if $i}}<br/>{{end}}{{$l}}{{end}}</p>
{{- else}}{{range .Sections}}
<h3>{{.Title}}</h3>
{{- if eq .Kind 0}}<p><strong>{{.Text}}</strong>{{if .Note}} <em>({{.Note}})</em>{{end}}</p>
{{- else if eq .Kind 1}}<ul>{{range .Items}}<li>{{.}}</li>{{end}}</ul>
{{- else if eq .Kind 2}}<ol>{{range .Items}}<li>{{.}}</li>{{end}}</ol>
{{- else}}<blockquote>{{range $i, $l := lines .Text}}{{if $i}}<br/>{{end}}{{$l}}{{end}}</blockquote>
{{- end}}{{end}}
{{end}}</div>`))

// RenderHTML renders the document as an escaped HTML fragment.
func RenderHTML(d Document) (string, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render diagnosis: %w", err)
	}
	return buf.String(), nil
}
