package research

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/dkschrei/ai-research-agent/internal/models"
	"github.com/dkschrei/ai-research-agent/internal/services/conductor"
	"github.com/dkschrei/ai-research-agent/internal/services/ollama"
	"github.com/dkschrei/ai-research-agent/internal/utils"
)

const (
	defaultWorkers    = 2
	defaultQueueSize  = 32
	defaultMaxSources = 5
)

// Manager runs research jobs in the background. Submit returns a handle
// immediately; a worker pool performs the actual inference and publishes
// state transitions the caller polls by handle. Transitions only move
// forward, and terminal states never change.
type Manager struct {
	conductor *conductor.Conductor
	cfg       models.ResearchConfig

	mu   sync.RWMutex
	jobs map[string]*jobState

	tasks    chan string
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

type jobState struct {
	job    models.ResearchJob
	record *models.ExecutionRecord
	topic  string
}

// NewManager starts the worker pool.
func NewManager(cond *conductor.Conductor, cfg models.ResearchConfig) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = defaultMaxSources
	}

	m := &Manager{
		conductor: cond,
		cfg:       cfg,
		jobs:      make(map[string]*jobState),
		tasks:     make(chan string, cfg.QueueSize),
		stopped:   make(chan struct{}),
	}

	for range cfg.Workers {
		m.wg.Add(1)
		go m.run()
	}

	return m
}

// Submit accepts a research request, selects a model, appends a pending
// execution record, and enqueues the job. The returned job carries the
// handle the caller polls.
func (m *Manager) Submit(ctx context.Context, req models.ResearchRequest, requestID string) (*models.ResearchJob, error) {
	if req.Topic == "" {
		return nil, models.NewValidationError("research topic is required", nil)
	}

	complexity := req.Complexity
	if complexity == "" {
		complexity = string(models.TaskResearch.DefaultComplexity())
	}

	decision := m.conductor.Select(conductor.SelectInput{
		RequestID:  requestID,
		Complexity: complexity,
		TaskType:   models.TaskResearch,
	})

	jobID := uuid.NewString()
	record := m.conductor.Begin(ctx, jobID, conductor.DispatchInput{
		RequestID: requestID,
		TaskType:  models.TaskResearch,
	}, decision)

	state := &jobState{
		job: models.ResearchJob{
			JobID:     jobID,
			Topic:     req.Topic,
			Status:    models.JobSubmitted,
			CreatedAt: time.Now(),
		},
		record: record,
		topic:  req.Topic,
	}

	m.mu.Lock()
	m.jobs[jobID] = state
	m.mu.Unlock()

	select {
	case <-m.stopped:
		m.fail(jobID, "research manager is shutting down")
		return nil, models.NewInternalError("research manager is shutting down", nil)
	case m.tasks <- jobID:
	default:
		m.fail(jobID, "research queue is full")
		return nil, models.NewInternalError("research queue is full", nil)
	}

	fiberlog.Infof("[%s] Research: job %s submitted for topic %q, routed to %s",
		requestID, jobID, req.Topic, decision.Model)

	job := state.job
	return &job, nil
}

// Get returns a snapshot of the job with the given handle.
func (m *Manager) Get(jobID string) (*models.ResearchJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.jobs[jobID]
	if !ok {
		return nil, models.NewNotFoundError(fmt.Sprintf("research job %s not found", jobID))
	}
	job := state.job
	return &job, nil
}

// List returns snapshots of all known jobs.
func (m *Manager) List() []models.ResearchJob {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ResearchJob, 0, len(m.jobs))
	for _, state := range m.jobs {
		out = append(out, state.job)
	}
	return out
}

// ActiveCount returns the number of jobs not yet in a terminal state.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, state := range m.jobs {
		if !state.job.Status.Terminal() {
			count++
		}
	}
	return count
}

// TotalCount returns the number of jobs ever submitted.
func (m *Manager) TotalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

func (m *Manager) run() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopped:
			return
		case jobID := <-m.tasks:
			m.execute(jobID)
		}
	}
}

func (m *Manager) execute(jobID string) {
	m.mu.RLock()
	state, ok := m.jobs[jobID]
	m.mu.RUnlock()
	if !ok {
		fiberlog.Errorf("Research: job %s dequeued but unknown", jobID)
		return
	}

	if !m.transition(jobID, models.JobRunning, 10) {
		return
	}

	prompt := buildResearchPrompt(state.topic, m.cfg.MaxSources)
	resp, err := m.conductor.DispatchJob(context.Background(), state.record, []ollama.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		fiberlog.Errorf("Research: job %s failed: %v", jobID, err)
		m.fail(jobID, err.Error())
		return
	}

	result := &models.ResearchResult{
		Report:         resp.Message.Content,
		ModelUsed:      state.record.Model,
		Complexity:     state.record.Complexity,
		ProcessingTime: float64(state.record.LatencyMs) / 1000.0,
		Timestamp:      time.Now(),
	}
	m.complete(jobID, result)
	fiberlog.Infof("Research: job %s completed in %dms on %s", jobID, state.record.LatencyMs, state.record.Model)
}

// transition applies a forward state transition. Illegal transitions,
// including any attempt to leave a terminal state, are rejected.
func (m *Manager) transition(jobID string, next models.JobStatus, progress int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.jobs[jobID]
	if !ok {
		return false
	}
	if !state.job.Status.CanTransition(next) {
		fiberlog.Warnf("Research: job %s illegal transition %s -> %s ignored", jobID, state.job.Status, next)
		return false
	}
	state.job.Status = next
	if progress > state.job.Progress {
		state.job.Progress = progress
	}
	return true
}

func (m *Manager) complete(jobID string, result *models.ResearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.jobs[jobID]
	if !ok || !state.job.Status.CanTransition(models.JobCompleted) {
		return
	}
	now := time.Now()
	state.job.Status = models.JobCompleted
	state.job.Progress = 100
	state.job.CompletedAt = &now
	state.job.Result = result
}

func (m *Manager) fail(jobID, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.jobs[jobID]
	if !ok || !state.job.Status.CanTransition(models.JobFailed) {
		return
	}
	now := time.Now()
	state.job.Status = models.JobFailed
	state.job.CompletedAt = &now
	state.job.Error = errMsg
}

// Stop shuts the worker pool down. Queued jobs that never ran stay in the
// submitted state.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopped)
		m.wg.Wait()
	})
}

// buildResearchPrompt assembles the inference prompt through the shared
// buffer pool.
func buildResearchPrompt(topic string, maxSources int) string {
	buf := utils.Get()
	defer utils.Put(buf)

	buf.WriteString("Conduct research on the topic: ")
	buf.WriteString(topic)
	buf.WriteString("\n\nPlease provide:\n")
	buf.WriteString("1. Executive Summary\n")
	buf.WriteString("2. Key Findings\n")
	buf.WriteString("3. Up to ")
	buf.WriteString(strconv.Itoa(maxSources))
	buf.WriteString(" Important Sources\n")
	buf.WriteString("4. Recommendations\n\n")
	buf.WriteString("Keep it concise but informative.")

	return buf.String()
}
