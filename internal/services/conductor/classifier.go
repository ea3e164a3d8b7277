package conductor

import (
	"fmt"
	"strings"

	"github.com/dkschrei/ai-research-agent/internal/models"
)

// Keyword groups for task classification, checked in order. The first group
// with a hit wins.
var (
	simpleKeywords   = []string{"quick", "simple", "fast", "parse"}
	analysisKeywords = []string{"analyze", "research", "investigate"}
	writingKeywords  = []string{"write", "report", "create", "generate"}
	criticalKeywords = []string{"executive", "critical", "important", "final"}
)

// ClassifyTask infers a task type and complexity tier from a free-text task
// description using keyword matching.
func ClassifyTask(description string) (models.TaskType, models.Complexity) {
	lower := strings.ToLower(description)

	switch {
	case containsAny(lower, simpleKeywords):
		return models.TaskChat, models.ComplexitySimple
	case containsAny(lower, analysisKeywords):
		return models.TaskAnalysis, models.ComplexityComplex
	case containsAny(lower, writingKeywords):
		return models.TaskWriting, models.ComplexityComplex
	case containsAny(lower, criticalKeywords):
		return models.TaskReport, models.ComplexityCritical
	default:
		return "", models.ComplexityStandard
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Recommend classifies a task description and recommends a primary model
// plus up to two alternatives from the catalog.
func (c *Conductor) Recommend(description string) models.Recommendation {
	taskType, complexity := ClassifyTask(description)

	decision := c.Select(SelectInput{
		Complexity: string(complexity),
		TaskType:   taskType,
	})

	alternatives := make([]string, 0, 2)
	for _, d := range c.catalog.List() {
		if d.Name == decision.Model {
			continue
		}
		alternatives = append(alternatives, d.Name)
		if len(alternatives) == 2 {
			break
		}
	}

	displayType := taskType
	if displayType == "" {
		displayType = "general"
	}

	return models.Recommendation{
		Primary:      decision.Model,
		Alternatives: alternatives,
		TaskType:     taskType,
		Complexity:   complexity,
		Reasoning:    fmt.Sprintf("based on task type %q with %q complexity", displayType, complexity),
	}
}
