package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdx-assistant/pkg"
)

func sampleStructured() *pkg.DiagnosisResult {
	return &pkg.DiagnosisResult{Structured: &pkg.StructuredDiagnosis{
		PrimaryDiagnosis:        "Community-acquired pneumonia",
		DifferentialDiagnoses:   []string{"Acute bronchitis", "Pulmonary embolism"},
		RecommendedNextSteps:    []string{"Chest X-ray", "Sputum culture"},
		ImportantConsiderations: []string{"Check oxygen saturation"},
		ConfidenceLevel:         pkg.ConfidenceMedium,
		Reasoning:               "Fever and crackles.\nElevated CRP.",
	}}
}

func TestFormatFreeTextPassthrough(t *testing.T) {
	f := NewFormatter(catalog(t))
	text := "Likely viral infection.\n1. Rest\n2. Fluids"

	doc := f.Format(&pkg.DiagnosisResult{Text: text}, "English")
	assert.True(t, doc.IsText())
	assert.Equal(t, text, doc.Markdown())
}

func TestFormatNilResult(t *testing.T) {
	doc := NewFormatter(catalog(t)).Format(nil, "English")
	assert.True(t, doc.IsText())
	assert.Empty(t, doc.Markdown())
}

func TestFormatStructuredSectionOrder(t *testing.T) {
	doc := NewFormatter(catalog(t)).Format(sampleStructured(), "English")
	require.Len(t, doc.Sections, 5)

	kinds := make([]SectionKind, 0, len(doc.Sections))
	for _, s := range doc.Sections {
		kinds = append(kinds, s.Kind)
	}
	assert.Equal(t, []SectionKind{SectionHeadline, SectionUnordered, SectionOrdered, SectionUnordered, SectionHighlight}, kinds)
	assert.Equal(t, "Confidence: medium", doc.Sections[0].Note)

	md := doc.Markdown()
	assertInOrder(t, md,
		"### Primary Diagnosis\n**Community-acquired pneumonia** _(Confidence: medium)_\n",
		"### Differential Diagnoses\n- Acute bronchitis\n- Pulmonary embolism\n",
		"### Recommended Next Steps\n1. Chest X-ray\n2. Sputum culture\n",
		"### Important Considerations\n- Check oxygen saturation\n",
		"### Clinical Reasoning\n> Fever and crackles.\n> Elevated CRP.\n")
}

func TestFormatSkipsEmptySections(t *testing.T) {
	result := &pkg.DiagnosisResult{Structured: &pkg.StructuredDiagnosis{
		PrimaryDiagnosis: "Migraine",
		ConfidenceLevel:  pkg.ConfidenceHigh,
	}}

	doc := NewFormatter(catalog(t)).Format(result, "Français")
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "Diagnostic principal", doc.Sections[0].Title)
	assert.Equal(t, "Confiance: élevée", doc.Sections[0].Note)
}

func TestFormatTranslationFallback(t *testing.T) {
	doc := NewFormatter(catalog(t)).Format(sampleStructured(), "Italiano")
	// confidence labels are missing in Italian and fall back to English
	assert.Contains(t, doc.Sections[0].Note, "medium")
}

func TestRenderHTMLEscapes(t *testing.T) {
	doc := NewFormatter(catalog(t)).Format(&pkg.DiagnosisResult{Text: "<script>alert(1)</script>\nsecond line"}, "English")

	html, err := RenderHTML(doc)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "<br/>second line")
}

func TestRenderHTMLStructured(t *testing.T) {
	doc := NewFormatter(catalog(t)).Format(sampleStructured(), "English")

	html, err := RenderHTML(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(html, `<div class="diagnosis">`))
	assertInOrder(t, html,
		"<h3>Primary Diagnosis</h3>", "<strong>Community-acquired pneumonia</strong>",
		"<ul><li>Acute bronchitis</li>", "<ol><li>Chest X-ray</li><li>Sputum culture</li></ol>",
		"<blockquote>Fever and crackles.<br/>Elevated CRP.</blockquote>")
}
