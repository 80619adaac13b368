package core

// prompts.go holds the built-in prompt texts.  Keeping them apart from the
// composer logic makes them easy to tweak without touching the rest of the
// code.  Deployments normally supply their own canvas through the prompt
// canvas file; these values are the shipped defaults.

// DefaultSystemPrompt is the system prompt paired with the legacy composer.
const DefaultSystemPrompt = "You are a medical diagnosis support assistant for healthcare professionals. " +
	"Given a short patient report, suggest the most likely diagnosis, the differential diagnoses " +
	"and the recommended next steps. Your answer is a preliminary assessment and must be confirmed " +
	"by a licensed medical professional."

// DefaultPromptWords is the ten-fragment canvas of the legacy composer.  The
// fragments are interleaved with the record fields in a fixed order:
// patient, pregnancy, history, symptoms, exam, labs, three closing
// instructions and the response language.
var DefaultPromptWords = []string{
	"Patient: ",
	"Pregnancy: ",
	"History: ",
	"Symptoms: ",
	"Examination findings: ",
	"Laboratory test results: ",
	"What is the likely diagnosis? ",
	"Then, list the differential diagnoses. ",
	"And, propose the recommended next steps formatted as an ordered list. ",
	"Answer in ",
}

// fallbackUserTemplate is used when the canvas has fewer than ten fragments.
// Arguments: gender, age, years-old suffix, pregnancy, history, symptoms,
// exam, lab, language.
const fallbackUserTemplate = `Patient Information:
- Gender: %s
- Age: %d%s
- Pregnant: %s
- History: %s
- Symptoms: %s
- Examination: %s
- Lab Results: %s

Please provide a medical diagnosis based on this information.
Respond in %s.
Include:
1. Most likely diagnosis
2. Differential diagnoses
3. Recommended next steps
4. Important considerations
`

// freeTextSystemTemplate is the structured composer's system prompt when the
// answer is rendered as free text.  Argument: language.
const freeTextSystemTemplate = `You are an experienced medical AI assistant designed to help healthcare professionals with preliminary diagnostic assessments.

Your role:
- Analyze patient information comprehensively
- Provide evidence-based diagnostic suggestions
- Consider differential diagnoses
- Recommend appropriate next steps
- Highlight important clinical considerations

Guidelines:
1. Base your diagnosis on the provided patient information
2. Consider age, gender, pregnancy status, history, symptoms, examination findings, and lab results
3. Provide clear, actionable recommendations
4. Include differential diagnoses when appropriate
5. Highlight any urgent or critical findings
6. Note important contraindications or considerations
7. Respond in %s

Important:
- This is a preliminary assessment tool
- All diagnoses should be confirmed by licensed medical professionals
- Consider patient safety as the top priority
- If information is insufficient, state what additional data is needed`

// structuredSystemTemplate is the system prompt used with machine-parseable
// output.  Argument: language.
const structuredSystemTemplate = `You are a medical diagnostic AI assistant providing structured diagnostic assessments.

Role: Analyze patient information and provide comprehensive diagnostic evaluations.

Output Requirements:
- Always provide a primary diagnosis
- Include 2-4 differential diagnoses
- List 3-5 recommended next steps
- Highlight 2-4 important clinical considerations
- Assess confidence level (high/medium/low)
- Provide clear clinical reasoning

Clinical Guidelines:
- Base assessments on evidence-based medicine
- Consider patient demographics (age, gender, pregnancy)
- Integrate all provided information (history, symptoms, exam, labs)
- Prioritize patient safety
- Note when information is insufficient
- Respond in %s

Safety:
- This is a preliminary assessment tool
- Final diagnosis requires licensed medical professional
- Highlight urgent findings
- Consider contraindications`

// structuredUserTemplate arguments: gender, age, pregnancy, history,
// symptoms, exam, lab, language.
const structuredUserTemplate = `Please provide a comprehensive medical diagnostic assessment for the following patient:

## Patient Demographics
- **Gender**: %s
- **Age**: %d years old
- **Pregnancy Status**: %s

## Clinical Information

### History and Context
%s

### Presenting Symptoms
%s

### Physical Examination Findings
%s

### Laboratory Results
%s

## Required Assessment

Please provide a structured diagnostic assessment including:

1. **Primary Diagnosis**: Most likely diagnosis based on the information
2. **Differential Diagnoses**: List 2-4 alternative diagnoses to consider
3. **Recommended Next Steps**: Specific tests, treatments, or consultations needed
4. **Important Considerations**: Warnings, contraindications, or critical factors
5. **Confidence Level**: Your confidence in the primary diagnosis (high/medium/low)
6. **Clinical Reasoning**: Brief explanation of your diagnostic thinking

Respond in %s. Be specific, evidence-based, and prioritize patient safety.`
