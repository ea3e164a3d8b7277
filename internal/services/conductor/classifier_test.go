package conductor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkschrei/ai-research-agent/internal/models"
)

func TestClassifyTask(t *testing.T) {
	tests := []struct {
		description    string
		wantTask       models.TaskType
		wantComplexity models.Complexity
	}{
		{"give me a quick summary", models.TaskChat, models.ComplexitySimple},
		{"parse this log file", models.TaskChat, models.ComplexitySimple},
		{"analyze the quarterly numbers", models.TaskAnalysis, models.ComplexityComplex},
		{"research local LLM benchmarks", models.TaskAnalysis, models.ComplexityComplex},
		{"write a blog post about Go", models.TaskWriting, models.ComplexityComplex},
		{"generate release notes", models.TaskWriting, models.ComplexityComplex},
		{"executive briefing for the board", models.TaskReport, models.ComplexityCritical},
		{"what is the weather", "", models.ComplexityStandard},
	}

	for _, tt := range tests {
		task, complexity := ClassifyTask(tt.description)
		assert.Equal(t, tt.wantTask, task, tt.description)
		assert.Equal(t, tt.wantComplexity, complexity, tt.description)
	}
}

func TestRecommend(t *testing.T) {
	cond := newTestConductor(t, nil, nil)

	rec := cond.Recommend("analyze our churn data")
	assert.Equal(t, "gemma2:9b", rec.Primary)
	assert.Equal(t, models.TaskAnalysis, rec.TaskType)
	assert.Equal(t, models.ComplexityComplex, rec.Complexity)
	assert.Len(t, rec.Alternatives, 2)
	assert.NotContains(t, rec.Alternatives, rec.Primary)
	assert.NotEmpty(t, rec.Reasoning)
}

func TestRecommendWritingTask(t *testing.T) {
	cond := newTestConductor(t, nil, nil)

	rec := cond.Recommend("write a detailed report")
	assert.Equal(t, "qwen2.5:7b", rec.Primary)
}
