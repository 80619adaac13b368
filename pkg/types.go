package pkg

import "time"

// Gender is the canonical gender value of a patient record.  Display strings
// in any interface language are normalised to one of these constants.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// PregnancyStatus is the canonical pregnancy value of a patient record.
type PregnancyStatus string

const (
	PregnantNo  PregnancyStatus = "no"
	PregnantYes PregnancyStatus = "yes"
)

// PatientInput carries the raw form values of one diagnostic request before
// validation.  Gender and Pregnant may be display strings.  Age is a pointer
// so a missing age is told apart from a newborn.
type PatientInput struct {
	Gender       string `json:"gender"`
	Age          *int   `json:"age"`
	Pregnant     string `json:"is_pregnant"`
	History      string `json:"history"`
	Symptoms     string `json:"symptoms"`
	ExamFindings string `json:"exam_findings"`
	LabResults   string `json:"lab_results"`
	Language     string `json:"language"`
}

// PromptPair is the system and user instruction pair sent to the model.
type PromptPair struct {
	System string `json:"system_prompt"`
	User   string `json:"user_prompt"`
}

// ConfidenceLevel is the model's self-assessed confidence in its primary
// diagnosis.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// StructuredDiagnosis is the six-field answer requested in structured
// output mode.
type StructuredDiagnosis struct {
	PrimaryDiagnosis        string          `json:"primary_diagnosis"`
	DifferentialDiagnoses   []string        `json:"differential_diagnoses"`
	RecommendedNextSteps    []string        `json:"recommended_next_steps"`
	ImportantConsiderations []string        `json:"important_considerations"`
	ConfidenceLevel         ConfidenceLevel `json:"confidence_level"`
	Reasoning               string          `json:"reasoning"`
}

// DiagnosisResult is the model's answer: either free text or a structured
// record.  Exactly one of Text and Structured is set.
type DiagnosisResult struct {
	Text       string               `json:"text,omitempty"`
	Structured *StructuredDiagnosis `json:"structured,omitempty"`
}

// IsStructured reports whether the result carries the structured record.
func (r *DiagnosisResult) IsStructured() bool {
	return r != nil && r.Structured != nil
}

// Usage is the token accounting reported by the model endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// DiagnosisMetadata wraps a result with the model actually used, its token
// usage and the finish reason.
type DiagnosisMetadata struct {
	Result       *DiagnosisResult `json:"result"`
	Model        string           `json:"model"`
	Usage        Usage            `json:"usage"`
	FinishReason string           `json:"finish_reason"`
}

// SummaryLine is one translated label/value pair of the visual patient
// summary shown before submission.
type SummaryLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Submission is the last successful diagnosis of a session.  It is kept only
// so a re-render does not need another model call.
type Submission struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Language  string           `json:"language"`
	Summary   []SummaryLine    `json:"summary"`
	Result    *DiagnosisResult `json:"result"`
	Model     string           `json:"model"`
	Usage     *Usage           `json:"usage,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// DiagnosisResponse is returned to the UI collaborator for one submission.
// Notice is set when no fresh diagnosis is available; Previous then carries
// the prior successful result of the session, if any.
type DiagnosisResponse struct {
	SessionID string        `json:"session_id"`
	Language  string        `json:"language"`
	Summary   []SummaryLine `json:"summary"`
	Notice    string        `json:"notice,omitempty"`
	Markdown  string        `json:"markdown,omitempty"`
	HTML      string        `json:"html,omitempty"`
	Current   *Submission   `json:"current,omitempty"`
	Previous  *Submission   `json:"previous,omitempty"`
}

// FieldErrorResponse is one entry of a validation failure returned to the UI.
type FieldErrorResponse struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}
