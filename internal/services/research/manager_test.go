package research

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkschrei/ai-research-agent/internal/models"
	"github.com/dkschrei/ai-research-agent/internal/services/conductor"
	"github.com/dkschrei/ai-research-agent/internal/services/ollama"
)

type fakeRuntime struct {
	mu      sync.Mutex
	chatErr error
	prompts []string
}

func (f *fakeRuntime) Chat(_ context.Context, model string, messages []ollama.Message) (*ollama.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(messages) > 0 {
		f.prompts = append(f.prompts, messages[0].Content)
	}
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &ollama.ChatResponse{
		Model:   model,
		Message: ollama.Message{Role: "assistant", Content: "research findings"},
		Done:    true,
	}, nil
}

func (f *fakeRuntime) LoadedModels(_ context.Context) ([]ollama.LoadedModel, error) {
	return nil, nil
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

func newTestManager(t *testing.T, runtime conductor.Runtime, sink conductor.RecordSink) *Manager {
	t.Helper()

	catalog, err := conductor.NewCatalog(models.ConductorConfig{
		DefaultComplexModel: "gemma2:9b",
		Models: []models.ModelEntry{
			{Name: "llama3.1:8b", Strength: models.StrengthGeneral, BaselineLatencyMs: 1850},
			{Name: "gemma2:9b", Strength: models.StrengthReasoning, BaselineLatencyMs: 15630},
		},
	})
	require.NoError(t, err)

	cond := conductor.New(catalog, runtime, sink, nil, 0)
	m := NewManager(cond, models.ResearchConfig{Workers: 1, QueueSize: 4, MaxSources: 3})
	t.Cleanup(m.Stop)
	return m
}

func waitForTerminal(t *testing.T, m *Manager, jobID string) *models.ResearchJob {
	t.Helper()

	var job *models.ResearchJob
	require.Eventually(t, func() bool {
		var err error
		job, err = m.Get(jobID)
		if err != nil {
			return false
		}
		return job.Status.Terminal()
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestSubmitReturnsHandleImmediately(t *testing.T) {
	sink := &fakeSink{}
	m := newTestManager(t, &fakeRuntime{}, sink)

	job, err := m.Submit(context.Background(), models.ResearchRequest{Topic: "local llms"}, "req_1")
	require.NoError(t, err)
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, "local llms", job.Topic)

	done := waitForTerminal(t, m, job.JobID)
	assert.Equal(t, models.JobCompleted, done.Status)
	assert.Equal(t, 100, done.Progress)
	require.NotNil(t, done.Result)
	assert.Equal(t, "research findings", done.Result.Report)
	// Research requests without a hint route to the complex tier.
	assert.Equal(t, "gemma2:9b", done.Result.ModelUsed)
	assert.NotNil(t, done.CompletedAt)

	// Exactly one record, appended at submit and completed once.
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.appended, 1)
	assert.Len(t, sink.completed, 1)
	assert.True(t, sink.completed[0].Success)
	assert.Equal(t, job.JobID, sink.completed[0].JobID)
}

func TestSubmitRequiresTopic(t *testing.T) {
	m := newTestManager(t, &fakeRuntime{}, &fakeSink{})

	_, err := m.Submit(context.Background(), models.ResearchRequest{}, "req_1")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeValidation, appErr.Type)
}

func TestFailedJobRecordsError(t *testing.T) {
	sink := &fakeSink{}
	m := newTestManager(t, &fakeRuntime{chatErr: errors.New("runtime down")}, sink)

	job, err := m.Submit(context.Background(), models.ResearchRequest{Topic: "anything"}, "req_1")
	require.NoError(t, err)

	done := waitForTerminal(t, m, job.JobID)
	assert.Equal(t, models.JobFailed, done.Status)
	assert.Contains(t, done.Error, "runtime down")
	assert.Nil(t, done.Result)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.completed, 1)
	assert.False(t, sink.completed[0].Success)
	assert.Equal(t, models.ErrorTypeDispatch, sink.completed[0].ErrorType)
}

func TestTerminalStateIsImmutable(t *testing.T) {
	m := newTestManager(t, &fakeRuntime{}, &fakeSink{})

	job, err := m.Submit(context.Background(), models.ResearchRequest{Topic: "stability"}, "req_1")
	require.NoError(t, err)
	done := waitForTerminal(t, m, job.JobID)
	require.Equal(t, models.JobCompleted, done.Status)

	// Illegal transitions out of a terminal state are rejected.
	assert.False(t, m.transition(job.JobID, models.JobRunning, 0))
	m.fail(job.JobID, "should not apply")

	again, err := m.Get(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, again.Status)
	assert.Empty(t, again.Error)
}

func TestStatusTransitionsForwardOnly(t *testing.T) {
	assert.True(t, models.JobSubmitted.CanTransition(models.JobRunning))
	assert.True(t, models.JobSubmitted.CanTransition(models.JobFailed))
	assert.True(t, models.JobRunning.CanTransition(models.JobCompleted))
	assert.True(t, models.JobRunning.CanTransition(models.JobFailed))

	assert.False(t, models.JobSubmitted.CanTransition(models.JobCompleted))
	assert.False(t, models.JobRunning.CanTransition(models.JobSubmitted))
	assert.False(t, models.JobCompleted.CanTransition(models.JobRunning))
	assert.False(t, models.JobCompleted.CanTransition(models.JobFailed))
	assert.False(t, models.JobFailed.CanTransition(models.JobCompleted))
}

func TestGetUnknownJob(t *testing.T) {
	m := newTestManager(t, &fakeRuntime{}, &fakeSink{})

	_, err := m.Get("nope")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeNotFound, appErr.Type)
}

func TestListAndCounts(t *testing.T) {
	m := newTestManager(t, &fakeRuntime{}, &fakeSink{})

	first, err := m.Submit(context.Background(), models.ResearchRequest{Topic: "one"}, "req_1")
	require.NoError(t, err)
	second, err := m.Submit(context.Background(), models.ResearchRequest{Topic: "two"}, "req_2")
	require.NoError(t, err)

	waitForTerminal(t, m, first.JobID)
	waitForTerminal(t, m, second.JobID)

	assert.Len(t, m.List(), 2)
	assert.Equal(t, 2, m.TotalCount())
	assert.Equal(t, 0, m.ActiveCount())
}

func TestResearchPromptIncludesTopicAndSources(t *testing.T) {
	prompt := buildResearchPrompt("quantum error correction", 4)
	assert.Contains(t, prompt, "quantum error correction")
	assert.Contains(t, prompt, "Up to 4 Important Sources")
}
