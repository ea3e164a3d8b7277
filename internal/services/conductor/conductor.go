package conductor

import (
	"context"
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/dkschrei/ai-research-agent/internal/models"
	"github.com/dkschrei/ai-research-agent/internal/services/circuitbreaker"
	"github.com/dkschrei/ai-research-agent/internal/services/ollama"
)

// Runtime is the local inference service the conductor dispatches to.
type Runtime interface {
	Chat(ctx context.Context, model string, messages []ollama.Message) (*ollama.ChatResponse, error)
	LoadedModels(ctx context.Context) ([]ollama.LoadedModel, error)
}

// RecordSink receives execution records for analytics. Append adds a new
// record; Complete updates a previously appended record in place.
type RecordSink interface {
	Append(ctx context.Context, record *models.ExecutionRecord) error
	Complete(ctx context.Context, record *models.ExecutionRecord) error
}

// SelectInput is everything Select needs: the raw complexity hint as the
// caller sent it, an optional manual model override, and the task type for
// bookkeeping. RequestID is only used to prefix log lines.
type SelectInput struct {
	RequestID  string
	Complexity string
	Model      string
	TaskType   models.TaskType
}

// DispatchInput carries the content of one dispatch alongside its routing
// decision.
type DispatchInput struct {
	RequestID string
	TaskType  models.TaskType
	Messages  []ollama.Message
}

// Conductor routes requests to the most latency-appropriate local model and
// records every dispatch outcome. The catalog is read-only after
// construction; Select never touches the network.
type Conductor struct {
	catalog     *Catalog
	runtime     Runtime
	sink        RecordSink
	breakers    map[string]*circuitbreaker.CircuitBreaker
	maxMemoryGB float64
}

// New creates a conductor over an already-validated catalog. Breakers may be
// nil when redis is not configured; the sink must not be nil.
func New(catalog *Catalog, runtime Runtime, sink RecordSink, breakers map[string]*circuitbreaker.CircuitBreaker, maxMemoryGB float64) *Conductor {
	return &Conductor{
		catalog:     catalog,
		runtime:     runtime,
		sink:        sink,
		breakers:    breakers,
		maxMemoryGB: maxMemoryGB,
	}
}

// Catalog exposes the immutable model catalog.
func (c *Conductor) Catalog() *Catalog {
	return c.catalog
}

// Select maps a complexity hint to exactly one catalog model. It is pure
// with respect to the catalog: deterministic, side-effect free, and total.
// Unknown hints fall back to the simple tier and are logged so the fallback
// is observable.
func (c *Conductor) Select(in SelectInput) models.SelectionDecision {
	if in.Model != "" {
		if _, ok := c.catalog.Get(in.Model); ok {
			return models.SelectionDecision{
				Model:      in.Model,
				Complexity: c.resolveHint(in).Complexity,
				Reason:     "manual model override",
			}
		}
		fiberlog.Warnf("[%s] Conductor: override model %s not in catalog, routing by complexity", in.RequestID, in.Model)
	}

	resolved := c.resolveHint(in)

	switch resolved.Complexity {
	case models.ComplexitySimple:
		d := c.catalog.Fastest()
		return models.SelectionDecision{
			Model:      d.Name,
			Complexity: models.ComplexitySimple,
			Reason:     "simple tier: lowest baseline latency",
			Fallback:   resolved.Fallback,
		}
	case models.ComplexityStandard:
		if d, ok := c.catalog.FastestByStrength(models.StrengthGeneral); ok {
			return models.SelectionDecision{
				Model:      d.Name,
				Complexity: models.ComplexityStandard,
				Reason:     "standard tier: general-strength model",
			}
		}
		d := c.catalog.Fastest()
		return models.SelectionDecision{
			Model:      d.Name,
			Complexity: models.ComplexityStandard,
			Reason:     "standard tier: no general model, lowest baseline latency",
		}
	case models.ComplexityCritical:
		d := c.catalog.BestQuality()
		return models.SelectionDecision{
			Model:      d.Name,
			Complexity: models.ComplexityCritical,
			Reason:     "critical tier: highest quality score",
		}
	default: // complex
		if strength, ok := strengthForTask(in.TaskType); ok {
			if d, found := c.catalog.FastestByStrength(strength); found {
				return models.SelectionDecision{
					Model:      d.Name,
					Complexity: models.ComplexityComplex,
					Reason:     fmt.Sprintf("complex tier: %s-strength model for %s task", strength, in.TaskType),
				}
			}
		}
		d := c.catalog.DefaultComplex()
		return models.SelectionDecision{
			Model:      d.Name,
			Complexity: models.ComplexityComplex,
			Reason:     "complex tier: designated default complex model",
		}
	}
}

type resolvedHint struct {
	Complexity models.Complexity
	Fallback   bool
}

// resolveHint normalizes the raw hint. Absent hints select the simple tier;
// hints outside the enumerated set also select simple but are flagged and
// logged as a fallback.
func (c *Conductor) resolveHint(in SelectInput) resolvedHint {
	if in.Complexity == "" {
		return resolvedHint{Complexity: models.ComplexitySimple}
	}
	hint := models.Complexity(in.Complexity)
	if !hint.IsValid() {
		fiberlog.Warnf("[%s] Conductor: unknown complexity hint %q, falling back to simple", in.RequestID, in.Complexity)
		return resolvedHint{Complexity: models.ComplexitySimple, Fallback: true}
	}
	return resolvedHint{Complexity: hint}
}

// strengthForTask maps a task type to the model strength it benefits from,
// used to disambiguate the complex tier.
func strengthForTask(t models.TaskType) (models.Strength, bool) {
	switch t {
	case models.TaskWriting:
		return models.StrengthWriting, true
	case models.TaskAnalysis, models.TaskReport:
		return models.StrengthReasoning, true
	default:
		return "", false
	}
}

// Dispatch delegates the request to the runtime under the chosen model,
// measures wall-clock latency, and appends exactly one execution record
// whose success flag mirrors the runtime outcome. Failures surface as a
// dispatch error; there is no retry.
func (c *Conductor) Dispatch(ctx context.Context, in DispatchInput, decision models.SelectionDecision) (*ollama.ChatResponse, *models.ExecutionRecord, error) {
	record := &models.ExecutionRecord{
		RequestID:  in.RequestID,
		TaskType:   in.TaskType,
		Complexity: decision.Complexity,
		Model:      decision.Model,
		Reason:     decision.Reason,
		StartedAt:  time.Now(),
	}

	if !c.canExecute(decision.Model) {
		c.finishRecord(record, models.ErrorTypeDispatch, "circuit breaker open")
		c.append(ctx, in.RequestID, record)
		return nil, record, models.NewDispatchError(decision.Model, "circuit breaker open", nil)
	}

	resp, err := c.runtime.Chat(ctx, decision.Model, in.Messages)
	if err != nil {
		c.finishRecord(record, models.ErrorTypeDispatch, err.Error())
		c.append(ctx, in.RequestID, record)
		c.recordBreaker(decision.Model, false)
		fiberlog.Errorf("[%s] Conductor: dispatch to %s failed after %dms: %v",
			in.RequestID, decision.Model, record.LatencyMs, err)
		return nil, record, models.NewDispatchError(decision.Model, "runtime invocation failed", err)
	}

	record.Success = true
	record.FinishedAt = time.Now()
	record.LatencyMs = int(record.FinishedAt.Sub(record.StartedAt).Milliseconds())
	c.append(ctx, in.RequestID, record)
	c.recordBreaker(decision.Model, true)

	fiberlog.Debugf("[%s] Conductor: %s answered in %dms", in.RequestID, decision.Model, record.LatencyMs)
	return resp, record, nil
}

// Begin appends a pending execution record for a research job at submission
// time. The record is later updated in place by DispatchJob.
func (c *Conductor) Begin(ctx context.Context, jobID string, in DispatchInput, decision models.SelectionDecision) *models.ExecutionRecord {
	record := &models.ExecutionRecord{
		RequestID:  in.RequestID,
		JobID:      jobID,
		TaskType:   in.TaskType,
		Complexity: decision.Complexity,
		Model:      decision.Model,
		Reason:     decision.Reason,
		StartedAt:  time.Now(),
	}
	c.append(ctx, in.RequestID, record)
	return record
}

// DispatchJob runs the inference for a research job whose execution record
// was appended at submission, then updates that record in place.
func (c *Conductor) DispatchJob(ctx context.Context, record *models.ExecutionRecord, messages []ollama.Message) (*ollama.ChatResponse, error) {
	record.StartedAt = time.Now()

	if !c.canExecute(record.Model) {
		c.finishRecord(record, models.ErrorTypeDispatch, "circuit breaker open")
		c.complete(ctx, record)
		return nil, models.NewDispatchError(record.Model, "circuit breaker open", nil)
	}

	resp, err := c.runtime.Chat(ctx, record.Model, messages)
	if err != nil {
		c.finishRecord(record, models.ErrorTypeDispatch, err.Error())
		c.complete(ctx, record)
		c.recordBreaker(record.Model, false)
		return nil, models.NewDispatchError(record.Model, "runtime invocation failed", err)
	}

	record.Success = true
	record.FinishedAt = time.Now()
	record.LatencyMs = int(record.FinishedAt.Sub(record.StartedAt).Milliseconds())
	c.complete(ctx, record)
	c.recordBreaker(record.Model, true)
	return resp, nil
}

// CanLoad reports whether loading the named model would keep resident model
// weight within the configured memory budget. A zero budget disables gating.
// Never called from Select, which must stay off the network.
func (c *Conductor) CanLoad(ctx context.Context, model string) (bool, error) {
	desc, ok := c.catalog.Get(model)
	if !ok {
		return false, models.NewNotFoundError(fmt.Sprintf("model %s is not in the catalog", model))
	}
	if c.maxMemoryGB <= 0 {
		return true, nil
	}

	loaded, err := c.runtime.LoadedModels(ctx)
	if err != nil {
		return false, models.NewDispatchError(model, "failed to query loaded models", err)
	}

	var residentGB float64
	for _, lm := range loaded {
		if lm.Name == model {
			// Already resident, loading is a no-op.
			return true, nil
		}
		if d, known := c.catalog.Get(lm.Name); known {
			residentGB += d.SizeGB
		} else {
			residentGB += float64(lm.Size) / (1 << 30)
		}
	}

	return residentGB+desc.SizeGB <= c.maxMemoryGB, nil
}

func (c *Conductor) canExecute(model string) bool {
	if c.breakers == nil {
		return true
	}
	cb, ok := c.breakers[model]
	if !ok {
		return true
	}
	return cb.CanExecute()
}

func (c *Conductor) recordBreaker(model string, success bool) {
	if c.breakers == nil {
		return
	}
	cb, ok := c.breakers[model]
	if !ok {
		return
	}
	if success {
		cb.RecordSuccess()
	} else {
		cb.RecordFailure()
	}
}

func (c *Conductor) finishRecord(record *models.ExecutionRecord, errType models.ErrorType, msg string) {
	record.Success = false
	record.ErrorType = errType
	record.ErrorMessage = msg
	record.FinishedAt = time.Now()
	record.LatencyMs = int(record.FinishedAt.Sub(record.StartedAt).Milliseconds())
}

func (c *Conductor) append(ctx context.Context, requestID string, record *models.ExecutionRecord) {
	if err := c.sink.Append(ctx, record); err != nil {
		// Analytics must never break the request path.
		fiberlog.Errorf("[%s] Conductor: failed to append execution record: %v", requestID, err)
	}
}

func (c *Conductor) complete(ctx context.Context, record *models.ExecutionRecord) {
	if err := c.sink.Complete(ctx, record); err != nil {
		fiberlog.Errorf("Conductor: failed to complete execution record for job %s: %v", record.JobID, err)
	}
}
