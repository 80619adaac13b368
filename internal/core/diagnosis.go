package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mdx-assistant/internal/i18n"
	"mdx-assistant/internal/llm"
	"mdx-assistant/internal/session"
	"mdx-assistant/pkg"
)

// DiagnosisService sequences composer, gateway and formatter for each form
// submission.  It holds no per-request state; the last good result of a
// session lives in the Store.
type DiagnosisService struct {
	composer  Composer
	gateway   llm.Gateway
	formatter *Formatter
	resolver  i18n.Resolver
	store     session.Store
	limits    Limits
	mode      llm.Mode
	logger    zerolog.Logger
	now       func() time.Time
}

// ServiceOptions tunes a DiagnosisService.
type ServiceOptions struct {
	Limits Limits
	Mode   llm.Mode
	Logger zerolog.Logger
}

// NewDiagnosisService constructs a DiagnosisService.  When opts.Limits has
// no language set, the languages of res are accepted.
func NewDiagnosisService(composer Composer, gateway llm.Gateway, res i18n.Resolver, store session.Store, opts ServiceOptions) *DiagnosisService {
	if opts.Limits.Languages == nil {
		if set, ok := res.(LanguageSet); ok {
			opts.Limits.Languages = set
		}
	}
	return &DiagnosisService{
		composer:  composer,
		gateway:   gateway,
		formatter: NewFormatter(res),
		resolver:  res,
		store:     store,
		limits:    opts.Limits,
		mode:      opts.Mode,
		logger:    opts.Logger.With().Str("component", "diagnosis").Logger(),
		now:       time.Now,
	}
}

// Preview validates the input and returns its translated summary without
// calling the model.
func (s *DiagnosisService) Preview(in pkg.PatientInput) ([]pkg.SummaryLine, error) {
	record, err := NewPatientRecord(in, s.limits)
	if err != nil {
		return nil, err
	}
	return record.Summary(s.resolver, record.Language), nil
}

// Submit runs one diagnosis.  Invalid input is returned as a
// *ValidationError.  Missing symptoms or a failed model call produce a
// response with a Notice and the session's previous result instead of an
// error.
func (s *DiagnosisService) Submit(ctx context.Context, sessionID string, in pkg.PatientInput) (*pkg.DiagnosisResponse, error) {
	record, err := NewPatientRecord(in, s.limits)
	if err != nil {
		return nil, err
	}
	language := record.Language
	resp := &pkg.DiagnosisResponse{
		SessionID: sessionID,
		Language:  language,
		Summary:   record.Summary(s.resolver, language),
	}
	previous := s.lookup(ctx, sessionID)

	if !record.HasMinimumData() {
		resp.Notice = s.resolver.Resolve(language, "notice_no_symptoms")
		resp.Previous = previous
		s.render(resp, previous)
		return resp, nil
	}

	pair := s.composer.Compose(record, language)
	meta, err := s.gateway.DiagnoseWithMetadata(ctx, pair, s.mode)
	if err != nil {
		// kinds are logged by the gateway; the user only needs to resubmit
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("no diagnosis available")
		resp.Notice = s.resolver.Resolve(language, "notice_no_diagnosis")
		resp.Previous = previous
		s.render(resp, previous)
		return resp, nil
	}

	usage := meta.Usage
	sub := &pkg.Submission{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Language:  language,
		Summary:   resp.Summary,
		Result:    meta.Result,
		Model:     meta.Model,
		Usage:     &usage,
		CreatedAt: s.now().UTC(),
	}
	if sessionID != "" {
		if err := s.store.Put(ctx, sub); err != nil {
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to cache session result")
		}
	}
	resp.Current = sub
	s.render(resp, sub)
	return resp, nil
}

// Last returns the cached result of a session for re-rendering.  It
// returns session.ErrNotFound when the session has none.
func (s *DiagnosisService) Last(ctx context.Context, sessionID string) (*pkg.DiagnosisResponse, error) {
	sub, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	resp := &pkg.DiagnosisResponse{
		SessionID: sessionID,
		Language:  sub.Language,
		Summary:   sub.Summary,
		Current:   sub,
	}
	s.render(resp, sub)
	return resp, nil
}

// Forget drops the cached result of a session.  Forgetting a session with
// no result is not an error.
func (s *DiagnosisService) Forget(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("forget session: %w", err)
	}
	return nil
}

func (s *DiagnosisService) lookup(ctx context.Context, sessionID string) *pkg.Submission {
	if sessionID == "" {
		return nil
	}
	sub, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to read session result")
		}
		return nil
	}
	return sub
}

func (s *DiagnosisService) render(resp *pkg.DiagnosisResponse, sub *pkg.Submission) {
	if sub == nil {
		return
	}
	doc := s.formatter.Format(sub.Result, sub.Language)
	resp.Markdown = doc.Markdown()
	html, err := RenderHTML(doc)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to render diagnosis")
		return
	}
	resp.HTML = html
}
