package core

import (
	"fmt"
	"strings"

	"mdx-assistant/internal/i18n"
	"mdx-assistant/pkg"
)

// MinPromptWords is the number of canvas fragments the legacy composer needs
// before it stops using the built-in fallback template.
const MinPromptWords = 10

// Strategy selects a Composer implementation.
type Strategy string

const (
	StrategyLegacy     Strategy = "legacy"
	StrategyStructured Strategy = "structured"
)

// Composer turns a record into the prompt pair sent to the model.
// Implementations are pure: the same inputs always give the same pair.
type Composer interface {
	Compose(record PatientRecord, language string) pkg.PromptPair
}

// ComposerConfig configures NewComposer.
type ComposerConfig struct {
	Strategy         Strategy
	SystemPrompt     string
	PromptWords      []string
	StructuredOutput bool
}

// NewComposer returns the composer selected by cfg.Strategy.
func NewComposer(cfg ComposerConfig, res i18n.Resolver) (Composer, error) {
	switch cfg.Strategy {
	case StrategyLegacy, "":
		return &LegacyComposer{SystemPrompt: cfg.SystemPrompt, Words: cfg.PromptWords, Resolver: res}, nil
	case StrategyStructured:
		return &StructuredComposer{StructuredOutput: cfg.StructuredOutput, Resolver: res}, nil
	default:
		return nil, fmt.Errorf("unknown prompt strategy %q", cfg.Strategy)
	}
}

// CompleteCanvas reports whether words is enough for the positional
// template.
func CompleteCanvas(words []string) bool {
	return len(words) >= MinPromptWords
}

// LegacyComposer builds a single flat sentence from the configured canvas
// fragments interleaved with the record fields.
type LegacyComposer struct {
	SystemPrompt string
	Words        []string
	Resolver     i18n.Resolver
}

// Compose implements Composer.
func (c *LegacyComposer) Compose(record PatientRecord, language string) pkg.PromptPair {
	if language == "" {
		language = record.Language
	}
	res := c.Resolver
	gender := record.GenderLabel(res, language)
	pregnant := record.PregnancyLabel(res, language)
	yrsOld := res.Resolve(language, "vissum_yrsold")
	history := orNone(record.History, res, language)
	exam := orNone(record.ExamFindings, res, language)
	lab := orNone(record.LabResults, res, language)

	if !CompleteCanvas(c.Words) {
		return pkg.PromptPair{
			System: c.SystemPrompt,
			User: fmt.Sprintf(fallbackUserTemplate,
				gender, record.Age, yrsOld, pregnant, history, record.Symptoms, exam, lab, language),
		}
	}

	w := c.Words
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s, %d%s. ", w[0], gender, record.Age, yrsOld)
	fmt.Fprintf(&b, "%s%s. ", w[1], pregnant)
	fmt.Fprintf(&b, "%s%s. ", w[2], history)
	fmt.Fprintf(&b, "%s%s. ", w[3], record.Symptoms)
	fmt.Fprintf(&b, "%s%s. ", w[4], exam)
	fmt.Fprintf(&b, "%s%s. ", w[5], lab)
	fmt.Fprintf(&b, "%s%s%s%s%s.", w[6], w[7], w[8], w[9], language)

	return pkg.PromptPair{System: c.SystemPrompt, User: b.String()}
}

// StructuredComposer builds a markdown-sectioned prompt and a system prompt
// matching the requested output mode.
type StructuredComposer struct {
	StructuredOutput bool
	Resolver         i18n.Resolver
}

// Compose implements Composer.
func (c *StructuredComposer) Compose(record PatientRecord, language string) pkg.PromptPair {
	if language == "" {
		language = record.Language
	}
	res := c.Resolver

	system := fmt.Sprintf(freeTextSystemTemplate, language)
	if c.StructuredOutput {
		system = fmt.Sprintf(structuredSystemTemplate, language)
	}

	user := fmt.Sprintf(structuredUserTemplate,
		record.GenderLabel(res, language),
		record.Age,
		record.PregnancyLabel(res, language),
		c.provided(record.History, language, "history_not_provided"),
		record.Symptoms,
		c.provided(record.ExamFindings, language, "exam_not_provided"),
		c.provided(record.LabResults, language, "lab_not_provided"),
		language,
	)
	return pkg.PromptPair{System: system, User: user}
}

// provided returns value, or the explicit "not provided" phrase when value
// is empty or the "none" sentinel.
func (c *StructuredComposer) provided(value, language, key string) string {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, "none") || strings.EqualFold(v, c.Resolver.Resolve(language, "none")) {
		return c.Resolver.Resolve(language, key)
	}
	return v
}
