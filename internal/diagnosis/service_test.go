package diagnosis

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medassist/symptomcheck/internal/shared/config"
	"github.com/medassist/symptomcheck/internal/shared/errors"
)

const conclusiveOutput = `{
	"summary": "Most consistent with a viral upper respiratory infection.",
	"inconclusive": false,
	"conditions": [{
		"name": "Common cold",
		"probability": "high",
		"urgency": "Routine",
		"specialty": "General practice",
		"next_steps": ["Rest and fluids"],
		"otc_suggestions": ["Saline nasal spray"]
	}]
}`

const inconclusiveOutput = `{"summary": "", "inconclusive": true, "conditions": []}`

// fakeProvider returns canned output and counts invocations.
type fakeProvider struct {
	calls  atomic.Int64
	output string
	err    error
	// block makes Generate wait for ctx cancellation, simulating a slow
	// upstream.
	block      bool
	lastModel  string
	lastPrompt string
}

func (f *fakeProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	f.calls.Add(1)
	f.lastModel = model
	f.lastPrompt = prompt
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

// fakeAudit counts entries and remembers the last one.
type fakeAudit struct {
	calls     atomic.Int64
	err       error
	lastUser  string
	lastModel string
}

func (f *fakeAudit) Record(ctx context.Context, userID, model string, input, output []byte) error {
	f.calls.Add(1)
	f.lastUser = userID
	f.lastModel = model
	return f.err
}

type fakeWearable struct {
	calls   atomic.Int64
	summary *WearableSummary
	err     error
}

func (f *fakeWearable) Summary(ctx context.Context, userID string) (*WearableSummary, error) {
	f.calls.Add(1)
	return f.summary, f.err
}

func newTestService(provider Provider, audit AuditLog, wearable WearableSource) *Service {
	cfg := config.AIConfig{
		BaselineModel: "model-baseline",
		AdvancedModel: "model-advanced",
		Timeout:       100 * time.Millisecond,
	}
	cache := NewCache(config.CacheConfig{TTL: time.Hour, Capacity: 16})
	return NewService(cfg, cache, provider, audit, wearable, zerolog.Nop())
}

func appErrFrom(t *testing.T, err error) *errors.AppError {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *errors.AppError, got %T", err)
	}
	return appErr
}

// TestDiagnoseSuccess tests the full happy path
func TestDiagnoseSuccess(t *testing.T) {
	provider := &fakeProvider{output: conclusiveOutput}
	audit := &fakeAudit{}
	svc := newTestService(provider, audit, nil)

	resp, err := svc.Diagnose(context.Background(), "user-1", DiagnosisRequest{
		Symptoms: []string{"Runny nose", "Sore throat"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Conditions) != 1 || resp.Conditions[0].Name != "Common cold" {
		t.Errorf("unexpected conditions: %+v", resp.Conditions)
	}
	if resp.Disclaimer == "" {
		t.Error("response must carry the disclaimer")
	}
	if got := audit.calls.Load(); got != 1 {
		t.Errorf("expected 1 audit entry, got %d", got)
	}
	if audit.lastUser != "user-1" || audit.lastModel != "model-baseline" {
		t.Errorf("audit recorded user=%q model=%q", audit.lastUser, audit.lastModel)
	}
}

// TestDiagnoseCacheHit tests that identical requests reach the provider once
func TestDiagnoseCacheHit(t *testing.T) {
	provider := &fakeProvider{output: conclusiveOutput}
	svc := newTestService(provider, &fakeAudit{}, nil)

	req := DiagnosisRequest{Symptoms: []string{"Fever", "Cough"}}

	if _, err := svc.Diagnose(context.Background(), "user-1", req); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if _, err := svc.Diagnose(context.Background(), "user-1", req); err != nil {
		t.Fatalf("second request failed: %v", err)
	}

	if got := provider.calls.Load(); got != 1 {
		t.Errorf("expected 1 provider call across both requests, got %d", got)
	}

	stats := svc.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %+v", stats)
	}
}

// TestDiagnoseCacheSharedAcrossUsers tests that the cache key ignores identity
func TestDiagnoseCacheSharedAcrossUsers(t *testing.T) {
	provider := &fakeProvider{output: conclusiveOutput}
	svc := newTestService(provider, &fakeAudit{}, nil)

	req := DiagnosisRequest{Symptoms: []string{"Fever"}}

	if _, err := svc.Diagnose(context.Background(), "user-1", req); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if _, err := svc.Diagnose(context.Background(), "user-2", req); err != nil {
		t.Fatalf("second request failed: %v", err)
	}

	if got := provider.calls.Load(); got != 1 {
		t.Errorf("cache should be shared across users, got %d provider calls", got)
	}
}

// TestDiagnoseAddendumBypassesCache tests that an addendum forces a fresh call
// and suppresses the cache write
func TestDiagnoseAddendumBypassesCache(t *testing.T) {
	provider := &fakeProvider{output: conclusiveOutput}
	svc := newTestService(provider, &fakeAudit{}, nil)

	// Warm the cache with the plain variant of the same symptoms.
	plain := DiagnosisRequest{Symptoms: []string{"Fever"}}
	if _, err := svc.Diagnose(context.Background(), "user-1", plain); err != nil {
		t.Fatalf("warmup failed: %v", err)
	}

	withNote := DiagnosisRequest{Symptoms: []string{"Fever"}, Addendum: "worse at night"}
	if _, err := svc.Diagnose(context.Background(), "user-1", withNote); err != nil {
		t.Fatalf("addendum request failed: %v", err)
	}
	if _, err := svc.Diagnose(context.Background(), "user-1", withNote); err != nil {
		t.Fatalf("repeat addendum request failed: %v", err)
	}

	// One warmup call plus one per addendum request; the addendum results
	// never enter the cache.
	if got := provider.calls.Load(); got != 3 {
		t.Errorf("expected 3 provider calls, got %d", got)
	}
	if svc.Stats().Entries != 1 {
		t.Errorf("addendum responses must not be cached, have %d entries", svc.Stats().Entries)
	}
}

// TestDiagnoseConflictingVitals tests rejection before any provider work
func TestDiagnoseConflictingVitals(t *testing.T) {
	provider := &fakeProvider{output: conclusiveOutput}
	audit := &fakeAudit{}
	svc := newTestService(provider, audit, nil)

	_, err := svc.Diagnose(context.Background(), "user-1", DiagnosisRequest{
		Symptoms: []string{"Fever"},
		Vitals:   &Vitals{Temperature: "52"},
	})

	appErr := appErrFrom(t, err)
	if appErr.Code != "CONFLICTING_VITALS" {
		t.Errorf("expected CONFLICTING_VITALS, got %s", appErr.Code)
	}
	if appErr.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", appErr.HTTPStatus)
	}
	if provider.calls.Load() != 0 {
		t.Error("provider must not be called for implausible vitals")
	}
	if audit.calls.Load() != 0 {
		t.Error("rejected requests must not be audited")
	}
}

// TestDiagnoseEmptySymptoms tests the zero-symptom rejection
func TestDiagnoseEmptySymptoms(t *testing.T) {
	provider := &fakeProvider{output: conclusiveOutput}
	audit := &fakeAudit{}
	svc := newTestService(provider, audit, nil)

	tests := []struct {
		name     string
		symptoms []string
	}{
		{"Nil slice", nil},
		{"Empty slice", []string{}},
		{"Whitespace only", []string{"  ", "\t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Diagnose(context.Background(), "user-1", DiagnosisRequest{Symptoms: tt.symptoms})

			appErr := appErrFrom(t, err)
			if appErr.Code != "INCONCLUSIVE_SYMPTOMS" {
				t.Errorf("expected INCONCLUSIVE_SYMPTOMS, got %s", appErr.Code)
			}
			if appErr.HTTPStatus != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", appErr.HTTPStatus)
			}
		})
	}

	if provider.calls.Load() != 0 {
		t.Error("provider must not be called without symptoms")
	}
	if audit.calls.Load() != 0 {
		t.Error("empty submissions must not be audited")
	}
}

// TestDiagnoseInconclusiveModel tests that a self-reported inconclusive
// response is audited and surfaced as 422
func TestDiagnoseInconclusiveModel(t *testing.T) {
	provider := &fakeProvider{output: inconclusiveOutput}
	audit := &fakeAudit{}
	svc := newTestService(provider, audit, nil)

	req := DiagnosisRequest{Symptoms: []string{"Feeling off"}}

	_, err := svc.Diagnose(context.Background(), "user-1", req)

	appErr := appErrFrom(t, err)
	if appErr.Code != "INCONCLUSIVE_SYMPTOMS" {
		t.Errorf("expected INCONCLUSIVE_SYMPTOMS, got %s", appErr.Code)
	}
	if appErr.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", appErr.HTTPStatus)
	}

	// The provider did answer, so the exchange is audited.
	if got := audit.calls.Load(); got != 1 {
		t.Errorf("inconclusive response must be audited, got %d entries", got)
	}

	// And never cached: the same request consults the provider again.
	if _, err := svc.Diagnose(context.Background(), "user-1", req); err == nil {
		t.Fatal("expected second request to fail the same way")
	}
	if got := provider.calls.Load(); got != 2 {
		t.Errorf("inconclusive result must not be cached, got %d provider calls", got)
	}
}

// TestDiagnoseTimeout tests deadline mapping and the audit exclusion
func TestDiagnoseTimeout(t *testing.T) {
	provider := &fakeProvider{block: true}
	audit := &fakeAudit{}
	svc := newTestService(provider, audit, nil)

	_, err := svc.Diagnose(context.Background(), "user-1", DiagnosisRequest{Symptoms: []string{"Fever"}})

	appErr := appErrFrom(t, err)
	if appErr.Code != "API_TIMEOUT" {
		t.Errorf("expected API_TIMEOUT, got %s", appErr.Code)
	}
	if appErr.HTTPStatus != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", appErr.HTTPStatus)
	}
	if audit.calls.Load() != 0 {
		t.Error("timed-out calls must not be audited")
	}
}

// TestDiagnoseProviderError tests transport failure mapping
func TestDiagnoseProviderError(t *testing.T) {
	provider := &fakeProvider{err: context.Canceled}
	audit := &fakeAudit{}
	svc := newTestService(provider, audit, nil)

	_, err := svc.Diagnose(context.Background(), "user-1", DiagnosisRequest{Symptoms: []string{"Fever"}})

	appErr := appErrFrom(t, err)
	if appErr.Code != "SERVER_ERROR" {
		t.Errorf("expected SERVER_ERROR, got %s", appErr.Code)
	}
	if audit.calls.Load() != 0 {
		t.Error("failed calls must not be audited")
	}
}

// TestDiagnoseMalformedOutput tests that unparseable provider text maps to a
// server error without an audit entry
func TestDiagnoseMalformedOutput(t *testing.T) {
	provider := &fakeProvider{output: "I think it might be a cold?"}
	audit := &fakeAudit{}
	svc := newTestService(provider, audit, nil)

	_, err := svc.Diagnose(context.Background(), "user-1", DiagnosisRequest{Symptoms: []string{"Fever"}})

	appErr := appErrFrom(t, err)
	if appErr.Code != "SERVER_ERROR" {
		t.Errorf("expected SERVER_ERROR, got %s", appErr.Code)
	}
	if audit.calls.Load() != 0 {
		t.Error("unparseable responses must not be audited")
	}
}

// TestDiagnoseAuditFailureNonBlocking tests that a failed audit write does
// not fail the request
func TestDiagnoseAuditFailureNonBlocking(t *testing.T) {
	provider := &fakeProvider{output: conclusiveOutput}
	audit := &fakeAudit{err: context.Canceled}
	svc := newTestService(provider, audit, nil)

	resp, err := svc.Diagnose(context.Background(), "user-1", DiagnosisRequest{Symptoms: []string{"Fever"}})
	if err != nil {
		t.Fatalf("audit failure must not surface to the caller: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response despite audit failure")
	}
}

// TestDiagnoseModelEscalation tests that the advanced tier reaches the provider
func TestDiagnoseModelEscalation(t *testing.T) {
	provider := &fakeProvider{output: conclusiveOutput}
	svc := newTestService(provider, &fakeAudit{}, nil)

	_, err := svc.Diagnose(context.Background(), "user-1", DiagnosisRequest{
		Symptoms: []string{"a", "b", "c", "d", "e", "f"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.lastModel != "model-advanced" {
		t.Errorf("expected advanced model, provider saw %q", provider.lastModel)
	}
}

// TestDiagnoseWearableEnrichment tests wearable data flow into the prompt
func TestDiagnoseWearableEnrichment(t *testing.T) {
	steps := 9100.0
	provider := &fakeProvider{output: conclusiveOutput}
	wearable := &fakeWearable{summary: &WearableSummary{AvgDailySteps: &steps}}
	svc := newTestService(provider, &fakeAudit{}, wearable)

	if _, err := svc.Diagnose(context.Background(), "user-1", DiagnosisRequest{Symptoms: []string{"Fatigue"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wearable.calls.Load() != 1 {
		t.Error("wearable source should be consulted for signed-in users")
	}
	if !strings.Contains(provider.lastPrompt, "Daily steps: 9100") {
		t.Error("prompt missing wearable steps line")
	}
}

// TestDiagnoseWearableSkippedForAnonymous tests the anonymous short-circuit
func TestDiagnoseWearableSkippedForAnonymous(t *testing.T) {
	provider := &fakeProvider{output: conclusiveOutput}
	wearable := &fakeWearable{}
	svc := newTestService(provider, &fakeAudit{}, wearable)

	if _, err := svc.Diagnose(context.Background(), "anonymous", DiagnosisRequest{Symptoms: []string{"Fever"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wearable.calls.Load() != 0 {
		t.Error("wearable source must not be consulted for anonymous callers")
	}
}

// TestDiagnoseWearableFailureDegrades tests best-effort wearable behavior
func TestDiagnoseWearableFailureDegrades(t *testing.T) {
	provider := &fakeProvider{output: conclusiveOutput}
	wearable := &fakeWearable{err: context.Canceled}
	svc := newTestService(provider, &fakeAudit{}, wearable)

	if _, err := svc.Diagnose(context.Background(), "user-1", DiagnosisRequest{Symptoms: []string{"Fever"}}); err != nil {
		t.Fatalf("wearable failure must not fail the diagnosis: %v", err)
	}
}

// TestParseModelOutputFences tests tolerance for fenced payloads
func TestParseModelOutputFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"Bare JSON", conclusiveOutput},
		{"Json fence", "```json\n" + conclusiveOutput + "\n```"},
		{"Plain fence", "```\n" + conclusiveOutput + "\n```"},
		{"Surrounding whitespace", "\n\n  " + conclusiveOutput + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := parseModelOutput(tt.raw)
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if len(resp.Conditions) != 1 {
				t.Errorf("expected 1 condition, got %d", len(resp.Conditions))
			}
		})
	}
}
