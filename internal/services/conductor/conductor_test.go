package conductor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkschrei/ai-research-agent/internal/models"
	"github.com/dkschrei/ai-research-agent/internal/services/ollama"
)

func benchmarkCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(models.ConductorConfig{
		DefaultComplexModel: "gemma2:9b",
		Models: []models.ModelEntry{
			{Name: "llama3.1:8b", Strength: models.StrengthGeneral, BaselineLatencyMs: 1850, QualityScore: 7, SizeGB: 4.9},
			{Name: "gemma2:9b", Strength: models.StrengthReasoning, BaselineLatencyMs: 15630, QualityScore: 9, SizeGB: 5.4},
			{Name: "qwen2.5:7b", Strength: models.StrengthWriting, BaselineLatencyMs: 14560, QualityScore: 8, SizeGB: 4.7},
		},
	})
	require.NoError(t, err)
	return catalog
}

type fakeRuntime struct {
	mu       sync.Mutex
	chatErr  error
	response string
	loaded   []ollama.LoadedModel
	calls    int
}

func (f *fakeRuntime) Chat(_ context.Context, model string, _ []ollama.Message) (*ollama.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &ollama.ChatResponse{
		Model:   model,
		Message: ollama.Message{Role: "assistant", Content: f.response},
		Done:    true,
	}, nil
}

func (f *fakeRuntime) LoadedModels(_ context.Context) ([]ollama.LoadedModel, error) {
	return f.loaded, nil
}

type fakeSink struct {
	mu        sync.Mutex
	appended  []*models.ExecutionRecord
	completed []*models.ExecutionRecord
}

func (f *fakeSink) Append(_ context.Context, r *models.ExecutionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, r)
	return nil
}

func (f *fakeSink) Complete(_ context.Context, r *models.ExecutionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, r)
	return nil
}

func newTestConductor(t *testing.T, runtime Runtime, sink RecordSink) *Conductor {
	t.Helper()
	if runtime == nil {
		runtime = &fakeRuntime{response: "ok"}
	}
	if sink == nil {
		sink = &fakeSink{}
	}
	return New(benchmarkCatalog(t), runtime, sink, nil, 0)
}

func TestNewCatalogEmpty(t *testing.T) {
	_, err := NewCatalog(models.ConductorConfig{})

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeConfiguration, appErr.Type)
}

func TestNewCatalogRejectsUnknownDefault(t *testing.T) {
	_, err := NewCatalog(models.ConductorConfig{
		DefaultComplexModel: "missing-model",
		Models: []models.ModelEntry{
			{Name: "llama3.1:8b", Strength: models.StrengthGeneral, BaselineLatencyMs: 1850},
		},
	})

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeConfiguration, appErr.Type)
}

func TestSelectSimpleChoosesFastest(t *testing.T) {
	cond := newTestConductor(t, nil, nil)

	for _, hint := range []string{"simple", ""} {
		decision := cond.Select(SelectInput{Complexity: hint})
		assert.Equal(t, "llama3.1:8b", decision.Model)
		assert.Equal(t, models.ComplexitySimple, decision.Complexity)
		assert.False(t, decision.Fallback)
	}
}

func TestSelectComplexUsesDefaultModel(t *testing.T) {
	cond := newTestConductor(t, nil, nil)

	decision := cond.Select(SelectInput{Complexity: "complex"})
	assert.Equal(t, "gemma2:9b", decision.Model)
	assert.Equal(t, models.ComplexityComplex, decision.Complexity)
}

func TestSelectComplexWritingTask(t *testing.T) {
	cond := newTestConductor(t, nil, nil)

	decision := cond.Select(SelectInput{Complexity: "complex", TaskType: models.TaskWriting})
	assert.Equal(t, "qwen2.5:7b", decision.Model)
}

func TestSelectStandardPrefersGeneral(t *testing.T) {
	cond := newTestConductor(t, nil, nil)

	decision := cond.Select(SelectInput{Complexity: "standard"})
	assert.Equal(t, "llama3.1:8b", decision.Model)
	assert.Equal(t, models.ComplexityStandard, decision.Complexity)
}

func TestSelectCriticalPrefersQuality(t *testing.T) {
	cond := newTestConductor(t, nil, nil)

	decision := cond.Select(SelectInput{Complexity: "critical"})
	assert.Equal(t, "gemma2:9b", decision.Model)
}

func TestSelectUnknownHintFallsBackToSimple(t *testing.T) {
	cond := newTestConductor(t, nil, nil)

	decision := cond.Select(SelectInput{Complexity: "urgent"})
	assert.Equal(t, "llama3.1:8b", decision.Model)
	assert.Equal(t, models.ComplexitySimple, decision.Complexity)
	assert.True(t, decision.Fallback)
}

func TestSelectManualOverride(t *testing.T) {
	cond := newTestConductor(t, nil, nil)

	decision := cond.Select(SelectInput{Model: "qwen2.5:7b", Complexity: "simple"})
	assert.Equal(t, "qwen2.5:7b", decision.Model)

	// Unknown override falls through to routed selection.
	decision = cond.Select(SelectInput{Model: "missing", Complexity: "simple"})
	assert.Equal(t, "llama3.1:8b", decision.Model)
}

func TestSelectIsDeterministic(t *testing.T) {
	cond := newTestConductor(t, nil, nil)

	first := cond.Select(SelectInput{Complexity: "complex"})
	for range 50 {
		assert.Equal(t, first, cond.Select(SelectInput{Complexity: "complex"}))
	}
}

func TestSelectDoesNotMutateCatalog(t *testing.T) {
	cond := newTestConductor(t, nil, nil)
	before := cond.Catalog().List()

	for _, hint := range []string{"simple", "standard", "complex", "critical", "bogus", ""} {
		cond.Select(SelectInput{Complexity: hint})
	}

	assert.Equal(t, before, cond.Catalog().List())
}

func TestDispatchSuccessAppendsOneRecord(t *testing.T) {
	runtime := &fakeRuntime{response: "hello"}
	sink := &fakeSink{}
	cond := newTestConductor(t, runtime, sink)

	decision := cond.Select(SelectInput{Complexity: "simple"})
	resp, record, err := cond.Dispatch(context.Background(), DispatchInput{
		RequestID: "req_test",
		TaskType:  models.TaskChat,
		Messages:  []ollama.Message{{Role: "user", Content: "hi"}},
	}, decision)

	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Message.Content)
	require.Len(t, sink.appended, 1)
	assert.Same(t, record, sink.appended[0])
	assert.True(t, record.Success)
	assert.Equal(t, "llama3.1:8b", record.Model)
	assert.Equal(t, models.TaskChat, record.TaskType)
	assert.Empty(t, record.ErrorType)
}

func TestDispatchFailureRecordsAndSurfaces(t *testing.T) {
	runtime := &fakeRuntime{chatErr: errors.New("connection refused")}
	sink := &fakeSink{}
	cond := newTestConductor(t, runtime, sink)

	decision := cond.Select(SelectInput{Complexity: "simple"})
	_, record, err := cond.Dispatch(context.Background(), DispatchInput{
		RequestID: "req_test",
		TaskType:  models.TaskChat,
		Messages:  []ollama.Message{{Role: "user", Content: "hi"}},
	}, decision)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeDispatch, appErr.Type)

	require.Len(t, sink.appended, 1)
	assert.False(t, record.Success)
	assert.Equal(t, models.ErrorTypeDispatch, record.ErrorType)
	assert.Contains(t, record.ErrorMessage, "connection refused")
	// No retry: exactly one runtime call.
	assert.Equal(t, 1, runtime.calls)
}

func TestDispatchJobCompletesRecordInPlace(t *testing.T) {
	runtime := &fakeRuntime{response: "report"}
	sink := &fakeSink{}
	cond := newTestConductor(t, runtime, sink)

	decision := cond.Select(SelectInput{Complexity: "complex", TaskType: models.TaskResearch})
	record := cond.Begin(context.Background(), "job-1", DispatchInput{
		RequestID: "req_test",
		TaskType:  models.TaskResearch,
	}, decision)

	require.Len(t, sink.appended, 1)
	assert.Equal(t, "job-1", record.JobID)
	assert.False(t, record.Success)

	resp, err := cond.DispatchJob(context.Background(), record, []ollama.Message{{Role: "user", Content: "go"}})
	require.NoError(t, err)
	assert.Equal(t, "report", resp.Message.Content)

	// The same record is completed in place, not appended again.
	require.Len(t, sink.appended, 1)
	require.Len(t, sink.completed, 1)
	assert.Same(t, record, sink.completed[0])
	assert.True(t, record.Success)
}

func TestCanLoadRespectsMemoryBudget(t *testing.T) {
	runtime := &fakeRuntime{
		loaded: []ollama.LoadedModel{{Name: "gemma2:9b", Size: 5_400_000_000}},
	}
	sink := &fakeSink{}
	cond := New(benchmarkCatalog(t), runtime, sink, nil, 8)

	// gemma2 (5.4GB) already resident; llama3.1 (4.9GB) would exceed 8GB.
	ok, err := cond.CanLoad(context.Background(), "llama3.1:8b")
	require.NoError(t, err)
	assert.False(t, ok)

	// A resident model can always be "loaded" again.
	ok, err = cond.CanLoad(context.Background(), "gemma2:9b")
	require.NoError(t, err)
	assert.True(t, ok)

	// Unknown model is a not-found error.
	_, err = cond.CanLoad(context.Background(), "missing")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeNotFound, appErr.Type)
}

func TestCanLoadDisabledWithoutBudget(t *testing.T) {
	runtime := &fakeRuntime{
		loaded: []ollama.LoadedModel{{Name: "gemma2:9b"}, {Name: "qwen2.5:7b"}},
	}
	cond := New(benchmarkCatalog(t), runtime, &fakeSink{}, nil, 0)

	ok, err := cond.CanLoad(context.Background(), "llama3.1:8b")
	require.NoError(t, err)
	assert.True(t, ok)
}
