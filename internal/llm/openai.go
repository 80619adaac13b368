package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"mdx-assistant/pkg"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second

	// EndOfResponseToken is the marker some chat models leave at the end of
	// a truncated answer.
	EndOfResponseToken = "<|im_end|>"
)

// Mode selects how the model's answer is parsed.
type Mode int

const (
	ModeText Mode = iota
	ModeStructured
)

// Params are the sampling parameters forwarded to broad-profile models.
type Params struct {
	Temperature      float32
	MaxTokens        int
	FrequencyPenalty float32
	PresencePenalty  float32
}

// CallOption overrides a configured parameter for one call.
type CallOption func(*Params)

func WithTemperature(t float32) CallOption      { return func(p *Params) { p.Temperature = t } }
func WithMaxTokens(n int) CallOption            { return func(p *Params) { p.MaxTokens = n } }
func WithFrequencyPenalty(v float32) CallOption { return func(p *Params) { p.FrequencyPenalty = v } }
func WithPresencePenalty(v float32) CallOption  { return func(p *Params) { p.PresencePenalty = v } }

// Config configures NewGateway.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Params  Params
	// Modern selects the chat gateway (per-call overrides, structured
	// output); otherwise the legacy calling convention is used.
	Modern     bool
	HTTPClient *http.Client
}

// Gateway performs one model call per invocation.  Every error it returns
// is a *Failure.
type Gateway interface {
	Diagnose(ctx context.Context, pair pkg.PromptPair, mode Mode, opts ...CallOption) (*pkg.DiagnosisResult, error)
	DiagnoseWithMetadata(ctx context.Context, pair pkg.PromptPair, mode Mode, opts ...CallOption) (*pkg.DiagnosisMetadata, error)
	Model() string
	Profile() Profile
}

// NewGateway builds the gateway selected by cfg.Modern.  The model profile
// is fixed here from the model name.
func NewGateway(cfg Config, logger zerolog.Logger) (Gateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	} else {
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	profile := DetectProfile(cfg.Model)
	b := base{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		profile: profile,
		params:  cfg.Params,
		logger:  logger.With().Str("component", "gateway").Str("model", cfg.Model).Str("profile", profile.String()).Logger(),
	}
	if cfg.Modern {
		b.logger.Info().Msg("initialized chat gateway")
		return &chatGateway{base: b}, nil
	}
	b.logger.Info().Msg("initialized legacy gateway")
	return &legacyGateway{base: b}, nil
}

// base holds what both calling conventions share.
type base struct {
	client  *openai.Client
	model   string
	profile Profile
	params  Params
	logger  zerolog.Logger
}

func (b *base) Model() string    { return b.model }
func (b *base) Profile() Profile { return b.profile }

// buildRequest places only the parameters the model profile accepts.
func (b *base) buildRequest(pair pkg.PromptPair, p Params, structured bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: pair.System},
			{Role: openai.ChatMessageRoleUser, Content: pair.User},
		},
	}
	switch b.profile {
	case ProfileRestricted:
		req.MaxCompletionTokens = p.MaxTokens
	default:
		req.MaxTokens = p.MaxTokens
		req.Temperature = p.Temperature
		if req.Temperature == 0 {
			// zero is dropped by omitempty; keep the request deterministic
			req.Temperature = math.SmallestNonzeroFloat32
		}
		req.FrequencyPenalty = p.FrequencyPenalty
		req.PresencePenalty = p.PresencePenalty
	}
	if structured {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "diagnosis",
				Schema: &diagnosisSchema,
				Strict: true,
			},
		}
	}
	return req
}

// call executes one request and converts the answer.  It never panics out.
func (b *base) call(ctx context.Context, req openai.ChatCompletionRequest, structured bool) (meta *pkg.DiagnosisMetadata, err error) {
	start := time.Now()
	var tokens int
	defer func() {
		if r := recover(); r != nil {
			meta, err = nil, &Failure{Kind: FailureUnknown, Err: fmt.Errorf("panic during model call: %v", r)}
		}
		failure, _ := AsFailure(err)
		recordCall(ctx, b.model, b.profile, time.Since(start), tokens, failure)
		if failure != nil {
			b.logger.Error().Err(failure.Err).
				Str("kind", string(failure.Kind)).
				Int("status", failure.StatusCode).
				Dur("latency", time.Since(start)).
				Msg("diagnosis request failed")
			return
		}
		b.logger.Info().
			Int("total_tokens", tokens).
			Str("finish_reason", meta.FinishReason).
			Dur("latency", time.Since(start)).
			Msg("diagnosis received")
	}()

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	tokens = resp.Usage.TotalTokens
	if len(resp.Choices) == 0 {
		return nil, &Failure{Kind: FailureEmpty, Err: errors.New("response has no choices")}
	}

	content := CleanResponse(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, &Failure{Kind: FailureEmpty, Err: errors.New("response has no content")}
	}

	result := &pkg.DiagnosisResult{Text: content}
	if structured {
		parsed, perr := ParseStructured(content)
		if perr != nil {
			return nil, &Failure{Kind: FailureMalformed, Err: perr}
		}
		result = &pkg.DiagnosisResult{Structured: parsed}
	}

	return &pkg.DiagnosisMetadata{
		Result: result,
		Model:  resp.Model,
		Usage: pkg.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		FinishReason: string(resp.Choices[0].FinishReason),
	}, nil
}

// chatGateway is the current calling convention: per-call overrides and
// structured output.
type chatGateway struct {
	base
}

func (g *chatGateway) Diagnose(ctx context.Context, pair pkg.PromptPair, mode Mode, opts ...CallOption) (*pkg.DiagnosisResult, error) {
	meta, err := g.DiagnoseWithMetadata(ctx, pair, mode, opts...)
	if err != nil {
		return nil, err
	}
	return meta.Result, nil
}

func (g *chatGateway) DiagnoseWithMetadata(ctx context.Context, pair pkg.PromptPair, mode Mode, opts ...CallOption) (*pkg.DiagnosisMetadata, error) {
	p := g.params
	for _, opt := range opts {
		opt(&p)
	}
	structured := mode == ModeStructured
	return g.call(ctx, g.buildRequest(pair, p, structured), structured)
}

// legacyGateway reproduces the historical calling convention: configured
// parameters only and free-text answers.
type legacyGateway struct {
	base
}

func (g *legacyGateway) Diagnose(ctx context.Context, pair pkg.PromptPair, mode Mode, opts ...CallOption) (*pkg.DiagnosisResult, error) {
	meta, err := g.DiagnoseWithMetadata(ctx, pair, mode, opts...)
	if err != nil {
		return nil, err
	}
	return meta.Result, nil
}

func (g *legacyGateway) DiagnoseWithMetadata(ctx context.Context, pair pkg.PromptPair, mode Mode, opts ...CallOption) (*pkg.DiagnosisMetadata, error) {
	if len(opts) > 0 {
		g.logger.Debug().Int("overrides", len(opts)).Msg("legacy gateway ignores per-call overrides")
	}
	if mode == ModeStructured {
		g.logger.Warn().Msg("legacy gateway has no structured output, answering as free text")
	}
	return g.call(ctx, g.buildRequest(pair, g.params, false), false)
}

// CleanResponse strips the end-of-response marker and surrounding
// whitespace.
func CleanResponse(content string) string {
	return strings.TrimSpace(strings.ReplaceAll(content, EndOfResponseToken, ""))
}

// ParseStructured decodes a structured answer, tolerating a markdown code
// fence around the JSON.
func ParseStructured(content string) (*pkg.StructuredDiagnosis, error) {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	var d pkg.StructuredDiagnosis
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return nil, fmt.Errorf("decode structured diagnosis: %w", err)
	}
	if strings.TrimSpace(d.PrimaryDiagnosis) == "" {
		return nil, errors.New("structured diagnosis has no primary diagnosis")
	}
	d.ConfidenceLevel = pkg.ConfidenceLevel(strings.ToLower(strings.TrimSpace(string(d.ConfidenceLevel))))
	switch d.ConfidenceLevel {
	case pkg.ConfidenceHigh, pkg.ConfidenceMedium, pkg.ConfidenceLow:
	default:
		return nil, fmt.Errorf("unknown confidence level %q", d.ConfidenceLevel)
	}
	return &d, nil
}

var stringList = jsonschema.Definition{
	Type:  jsonschema.Array,
	Items: &jsonschema.Definition{Type: jsonschema.String},
}

var diagnosisSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"primary_diagnosis":        {Type: jsonschema.String, Description: "Most likely diagnosis"},
		"differential_diagnoses":   stringList,
		"recommended_next_steps":   stringList,
		"important_considerations": stringList,
		"confidence_level": {
			Type: jsonschema.String,
			Enum: []string{string(pkg.ConfidenceHigh), string(pkg.ConfidenceMedium), string(pkg.ConfidenceLow)},
		},
		"reasoning": {Type: jsonschema.String, Description: "Brief clinical reasoning"},
	},
	Required: []string{
		"primary_diagnosis", "differential_diagnoses", "recommended_next_steps",
		"important_considerations", "confidence_level", "reasoning",
	},
	AdditionalProperties: false,
}
