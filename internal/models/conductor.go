package models

import "time"

// Complexity classifies how demanding a task is expected to be.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityStandard Complexity = "standard"
	ComplexityComplex  Complexity = "complex"
	ComplexityCritical Complexity = "critical"
)

// IsValid reports whether the complexity is one of the enumerated tiers.
func (c Complexity) IsValid() bool {
	switch c {
	case ComplexitySimple, ComplexityStandard, ComplexityComplex, ComplexityCritical:
		return true
	}
	return false
}

// Strength is a model's declared specialty category.
type Strength string

const (
	StrengthGeneral   Strength = "general"
	StrengthReasoning Strength = "reasoning"
	StrengthWriting   Strength = "writing"
)

// TaskType names the kind of work a request represents. It maps onto a
// default complexity tier when the caller does not supply one.
type TaskType string

const (
	TaskChat     TaskType = "chat"
	TaskResearch TaskType = "research"
	TaskAnalysis TaskType = "analysis"
	TaskWriting  TaskType = "writing"
	TaskReport   TaskType = "executive_report"
)

// DefaultComplexity returns the complexity tier a task type implies.
func (t TaskType) DefaultComplexity() Complexity {
	switch t {
	case TaskChat:
		return ComplexitySimple
	case TaskAnalysis, TaskWriting, TaskResearch:
		return ComplexityComplex
	case TaskReport:
		return ComplexityCritical
	default:
		return ComplexityStandard
	}
}

// ModelDescriptor describes one local model in the catalog. Descriptors are
// populated from static configuration at startup and never mutated afterwards.
type ModelDescriptor struct {
	Name            string        `yaml:"name" json:"name"`
	Strength        Strength      `yaml:"strength" json:"strength"`
	BaselineLatency time.Duration `yaml:"-" json:"baseline_latency"`
	QualityScore    int           `yaml:"quality_score" json:"quality_score"`
	SizeGB          float64       `yaml:"size_gb" json:"size_gb"`
	MaxContext      int           `yaml:"max_context" json:"max_context"`
}

// SelectionDecision is the conductor's routing output for a single request.
type SelectionDecision struct {
	Model      string     `json:"model"`
	Complexity Complexity `json:"complexity"`
	Reason     string     `json:"reason"`
	// Fallback is set when the request carried an unrecognized complexity
	// hint and the simple tier was used instead.
	Fallback bool `json:"fallback,omitzero"`
}

// Recommendation is the response to a task description recommendation query.
type Recommendation struct {
	Primary      string     `json:"primary_recommendation"`
	Alternatives []string   `json:"alternatives"`
	TaskType     TaskType   `json:"task_type"`
	Complexity   Complexity `json:"complexity"`
	Reasoning    string     `json:"reasoning"`
}
