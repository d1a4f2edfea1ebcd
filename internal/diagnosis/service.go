package diagnosis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medassist/symptomcheck/internal/shared/auth"
	"github.com/medassist/symptomcheck/internal/shared/config"
	"github.com/medassist/symptomcheck/internal/shared/errors"
	"github.com/medassist/symptomcheck/internal/shared/metrics"
)

// Provider invokes the external generative AI model and returns its raw
// text payload.
type Provider interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// AuditLog records a compliance entry per processed provider response.
type AuditLog interface {
	Record(ctx context.Context, userID, model string, input, output []byte) error
}

// WearableSource supplies the optional 7-day wearable rollup for a user.
type WearableSource interface {
	Summary(ctx context.Context, userID string) (*WearableSummary, error)
}

// Service is the diagnosis orchestrator: it sequences validation, cache
// lookup, model selection, prompt construction, the deadline-bounded
// provider call, response parsing, the safety post-check, and the cache and
// audit writes.
type Service struct {
	cfg      config.AIConfig
	cache    *Cache
	provider Provider
	audit    AuditLog
	wearable WearableSource
	logger   zerolog.Logger
}

// NewService creates the orchestrator. The wearable source may be nil when
// wearable enrichment is disabled.
func NewService(cfg config.AIConfig, cache *Cache, provider Provider, audit AuditLog, wearable WearableSource, logger zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		cache:    cache,
		provider: provider,
		audit:    audit,
		wearable: wearable,
		logger:   logger.With().Str("component", "diagnosis").Logger(),
	}
}

// Diagnose runs the request pipeline. userID is a verified subject or the
// anonymous sentinel. The returned error, if any, is always an
// *errors.AppError carrying the caller-facing code/message/suggestion
// triple.
func (s *Service) Diagnose(ctx context.Context, userID string, req DiagnosisRequest) (*DiagnosisResponse, error) {
	// 1. Vitals plausibility, before anything else.
	if appErr := ValidateVitals(req.Vitals); appErr != nil {
		metrics.RecordDiagnosisRequest("conflicting_vitals")
		return nil, appErr
	}

	// 2. Symptoms non-empty.
	req.Symptoms = NormalizeSymptoms(req.Symptoms)
	if len(req.Symptoms) == 0 {
		metrics.RecordDiagnosisRequest("inconclusive")
		return nil, errors.InconclusiveSymptoms(
			"At least one symptom is required for an assessment.",
			"Select your symptoms from the list or the body map and resubmit.",
			http.StatusBadRequest,
		)
	}

	// 3. Cache lookup. Requests carrying an addendum are request-specific
	// and bypass the cache entirely, but still count toward the miss rate.
	key := Fingerprint(req.Symptoms, req.Vitals, req.Demographics)
	if req.Addendum == "" {
		if cached, ok := s.cache.Get(key); ok {
			metrics.RecordDiagnosisRequest("cache_hit")
			return cached, nil
		}
	} else {
		s.cache.Miss()
	}

	// 4. Miss path: select tier, build prompt, invoke under the deadline.
	model := SelectModel(s.cfg, req.Symptoms, req.Addendum, req.Demographics)
	metrics.RecordModelSelection(model)

	prompt := BuildPrompt(req, s.fetchWearable(ctx, userID))

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	raw, err := s.provider.Generate(callCtx, model, prompt)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			metrics.RecordDiagnosisRequest("timeout")
			return nil, errors.APITimeout("The assessment service took too long to respond.")
		}
		s.logger.Error().Err(err).Str("model", model).Msg("provider call failed")
		metrics.RecordDiagnosisRequest("error")
		return nil, errors.ServerError(err)
	}

	resp, err := parseModelOutput(raw)
	if err != nil {
		s.logger.Error().Err(err).Str("model", model).Msg("unparseable provider response")
		metrics.RecordDiagnosisRequest("error")
		return nil, errors.ServerError(err)
	}

	// A response was received from the provider, so it is audited, even a
	// self-reported-inconclusive one. A failed audit write never blocks the
	// answer.
	inputPayload, _ := json.Marshal(req)
	if err := s.audit.Record(ctx, userID, model, inputPayload, []byte(raw)); err != nil {
		s.logger.Warn().Err(err).Msg("audit write failed")
	}

	if resp.Inconclusive {
		metrics.RecordDiagnosisRequest("inconclusive")
		return nil, errors.InconclusiveSymptoms(
			"The reported symptoms were too vague or contradictory for a confident assessment.",
			"Add more detail about when the symptoms started and how they feel, then resubmit.",
			http.StatusUnprocessableEntity,
		)
	}

	// 5. Success: safety post-check, cache write, return.
	SanitizeResponse(resp)

	if req.Addendum == "" {
		s.cache.Set(key, resp)
	}

	metrics.RecordDiagnosisRequest("success")
	return resp, nil
}

// Stats exposes the advisory cache counters.
func (s *Service) Stats() CacheStats {
	return s.cache.Stats()
}

// fetchWearable retrieves the 7-day rollup on a best-effort basis. A
// missing connection, a revoked grant or a slow provider all degrade to
// "not provided" framing in the prompt.
func (s *Service) fetchWearable(ctx context.Context, userID string) *WearableSummary {
	if s.wearable == nil || userID == auth.AnonymousUser {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	summary, err := s.wearable.Summary(fetchCtx, userID)
	if err != nil {
		s.logger.Debug().Err(err).Str("user", userID).Msg("wearable summary unavailable")
		metrics.RecordWearableFetch("unavailable")
		return nil
	}
	metrics.RecordWearableFetch("ok")
	return summary
}

// modelPayload mirrors the response schema the prompt demands.
type modelPayload struct {
	Summary      string              `json:"summary"`
	Inconclusive bool                `json:"inconclusive"`
	Conditions   []PossibleCondition `json:"conditions"`
}

// parseModelOutput decodes the provider's text payload. Code fences are
// tolerated; anything else unparseable is a provider error, never a crash.
func parseModelOutput(raw string) (*DiagnosisResponse, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var payload modelPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, err
	}

	return &DiagnosisResponse{
		Summary:      payload.Summary,
		Inconclusive: payload.Inconclusive,
		Conditions:   payload.Conditions,
		Disclaimer:   Disclaimer,
	}, nil
}
