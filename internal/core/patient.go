package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"mdx-assistant/internal/i18n"
	"mdx-assistant/pkg"
)

// DefaultMaxFieldLength is the form limit for each free-text field.
const DefaultMaxFieldLength = 250

// LanguageSet reports which response languages are supported.
// *i18n.Catalog implements it.
type LanguageSet interface {
	HasLanguage(language string) bool
}

// Limits holds the configurable constraints applied when building a
// PatientRecord.  With no Languages set only DefaultLanguage is accepted.
type Limits struct {
	MaxFieldLength  int
	DefaultLanguage string
	Languages       LanguageSet
}

// DefaultLimits returns the limits used by the form.
func DefaultLimits() Limits {
	return Limits{MaxFieldLength: DefaultMaxFieldLength, DefaultLanguage: i18n.DefaultLanguage}
}

// FieldError names one violated constraint.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

// ValidationError is returned when raw patient input cannot form a record.
// It lists every offending field, not only the first.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid patient data: " + strings.Join(parts, "; ")
}

// Has reports whether field is among the offending fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// PatientRecord is the validated snapshot of one diagnostic request.  It is
// passed by value and never modified once built.
type PatientRecord struct {
	Gender       pkg.Gender
	Age          int
	Pregnant     pkg.PregnancyStatus
	History      string
	Symptoms     string
	ExamFindings string
	LabResults   string
	Language     string
}

var validate = validator.New()

// display strings accepted for each canonical value, lower-cased
var genderAliases = map[string]pkg.Gender{
	"male": pkg.GenderMale, "m": pkg.GenderMale, "man": pkg.GenderMale,
	"homme": pkg.GenderMale, "masculin": pkg.GenderMale,
	"hombre": pkg.GenderMale, "masculino": pkg.GenderMale,
	"männlich": pkg.GenderMale, "mann": pkg.GenderMale,
	"uomo": pkg.GenderMale, "maschio": pkg.GenderMale,

	"female": pkg.GenderFemale, "f": pkg.GenderFemale, "woman": pkg.GenderFemale,
	"femme": pkg.GenderFemale, "féminin": pkg.GenderFemale,
	"mujer": pkg.GenderFemale, "femenino": pkg.GenderFemale,
	"weiblich": pkg.GenderFemale, "frau": pkg.GenderFemale,
	"donna": pkg.GenderFemale, "femmina": pkg.GenderFemale,
}

var pregnancyAliases = map[string]pkg.PregnancyStatus{
	"": pkg.PregnantNo, "no": pkg.PregnantNo, "n": pkg.PregnantNo, "false": pkg.PregnantNo,
	"non": pkg.PregnantNo, "nein": pkg.PregnantNo,

	"yes": pkg.PregnantYes, "y": pkg.PregnantYes, "true": pkg.PregnantYes,
	"oui": pkg.PregnantYes, "sí": pkg.PregnantYes, "si": pkg.PregnantYes,
	"sì": pkg.PregnantYes, "ja": pkg.PregnantYes,
}

// ParseGender normalizes a canonical value or display string.
func ParseGender(raw string) (pkg.Gender, bool) {
	g, ok := genderAliases[strings.ToLower(strings.TrimSpace(raw))]
	return g, ok
}

// ParsePregnancy normalizes a canonical value or display string.  The empty
// string means "no".
func ParsePregnancy(raw string) (pkg.PregnancyStatus, bool) {
	p, ok := pregnancyAliases[strings.ToLower(strings.TrimSpace(raw))]
	return p, ok
}

// NewPatientRecord validates and normalizes raw form values.  A male patient
// marked as pregnant is silently corrected to not pregnant.  An empty
// language means limits.DefaultLanguage; any other language must be in
// limits.Languages.
func NewPatientRecord(in pkg.PatientInput, limits Limits) (PatientRecord, error) {
	if limits.MaxFieldLength <= 0 {
		limits.MaxFieldLength = DefaultMaxFieldLength
	}
	if limits.DefaultLanguage == "" {
		limits.DefaultLanguage = i18n.DefaultLanguage
	}

	var fields []FieldError
	check := func(field string, value interface{}, tag string) {
		if err := validate.Var(value, tag); err != nil {
			fields = append(fields, toFieldErrors(field, err)...)
		}
	}

	// raw values are never echoed back; they may be arbitrarily long
	gender, ok := ParseGender(in.Gender)
	if !ok {
		fields = append(fields, FieldError{Field: "gender", Rule: "oneof", Message: "unknown gender"})
	}
	pregnant, ok := ParsePregnancy(in.Pregnant)
	if !ok {
		fields = append(fields, FieldError{Field: "is_pregnant", Rule: "oneof", Message: "unknown pregnancy status"})
	}
	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = limits.DefaultLanguage
	} else if !limits.supports(language) {
		fields = append(fields, FieldError{Field: "language", Rule: "oneof", Message: "unsupported language"})
	}

	maxLen := fmt.Sprintf("max=%d", limits.MaxFieldLength)
	history := strings.TrimSpace(in.History)
	exam := strings.TrimSpace(in.ExamFindings)
	lab := strings.TrimSpace(in.LabResults)

	if in.Age == nil {
		fields = append(fields, FieldError{Field: "age", Rule: "required", Message: "is required"})
	} else {
		check("age", *in.Age, "min=0,max=150")
	}
	check("symptoms", in.Symptoms, "required,"+maxLen)
	check("history", history, maxLen)
	check("exam_findings", exam, maxLen)
	check("lab_results", lab, maxLen)

	if len(fields) > 0 {
		return PatientRecord{}, &ValidationError{Fields: fields}
	}

	if gender == pkg.GenderMale {
		pregnant = pkg.PregnantNo
	}

	return PatientRecord{
		Gender:       gender,
		Age:          *in.Age,
		Pregnant:     pregnant,
		History:      history,
		Symptoms:     strings.TrimSpace(in.Symptoms),
		ExamFindings: exam,
		LabResults:   lab,
		Language:     language,
	}, nil
}

func (l Limits) supports(language string) bool {
	if l.Languages == nil {
		return language == l.DefaultLanguage
	}
	return l.Languages.HasLanguage(language)
}

func toFieldErrors(field string, err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: field, Rule: "invalid", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: field, Rule: fe.Tag(), Message: ruleMessage(fe)})
	}
	return out
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind().String() == "string" {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be " + fe.Param() + " or less"
	case "min":
		return "must be at least " + fe.Param()
	}
	return "failed " + fe.Tag() + " rule"
}

// HasMinimumData reports whether the record carries enough information to
// request a diagnosis.
func (r PatientRecord) HasMinimumData() bool {
	return strings.TrimSpace(r.Symptoms) != ""
}

// GenderLabel returns the display string of the record's gender.
func (r PatientRecord) GenderLabel(res i18n.Resolver, language string) string {
	return res.Resolve(language, "gender_"+string(r.Gender))
}

// PregnancyLabel returns the display string of the record's pregnancy status.
func (r PatientRecord) PregnancyLabel(res i18n.Resolver, language string) string {
	return res.Resolve(language, "pregnant_"+string(r.Pregnant))
}

// orNone substitutes the language's "none" token for an absent field.
func orNone(value string, res i18n.Resolver, language string) string {
	if value == "" {
		return res.Resolve(language, "none")
	}
	return value
}

// Summary returns the translated visual summary of the record.
func (r PatientRecord) Summary(res i18n.Resolver, language string) []pkg.SummaryLine {
	return []pkg.SummaryLine{
		{Label: res.Resolve(language, "vissum_patient"), Value: fmt.Sprintf("%s, %d%s", r.GenderLabel(res, language), r.Age, res.Resolve(language, "vissum_yrsold"))},
		{Label: res.Resolve(language, "vissum_pregnancy"), Value: r.PregnancyLabel(res, language)},
		{Label: res.Resolve(language, "vissum_history"), Value: orNone(r.History, res, language)},
		{Label: res.Resolve(language, "vissum_symp"), Value: r.Symptoms},
		{Label: res.Resolve(language, "vissum_exam"), Value: orNone(r.ExamFindings, res, language)},
		{Label: res.Resolve(language, "vissum_lab"), Value: orNone(r.LabResults, res, language)},
	}
}
