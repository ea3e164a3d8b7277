package conductor

import (
	"fmt"
	"sort"
	"time"

	"github.com/dkschrei/ai-research-agent/internal/models"
)

// Catalog is the immutable set of local models the conductor routes over.
// It is built once at startup from configuration and safely shared across
// concurrent requests without locking.
type Catalog struct {
	descriptors    []models.ModelDescriptor
	byName         map[string]models.ModelDescriptor
	defaultComplex string
}

// NewCatalog builds a catalog from configuration. An empty or malformed
// catalog is a configuration error: the conductor cannot initialize without
// at least one model.
func NewCatalog(cfg models.ConductorConfig) (*Catalog, error) {
	if len(cfg.Models) == 0 {
		return nil, models.NewConfigurationError("model catalog is empty", nil)
	}

	c := &Catalog{
		descriptors: make([]models.ModelDescriptor, 0, len(cfg.Models)),
		byName:      make(map[string]models.ModelDescriptor, len(cfg.Models)),
	}

	for i, entry := range cfg.Models {
		if entry.Name == "" {
			return nil, models.NewConfigurationError(
				fmt.Sprintf("model catalog entry %d has no name", i), nil)
		}
		if entry.BaselineLatencyMs <= 0 {
			return nil, models.NewConfigurationError(
				fmt.Sprintf("model %s has no baseline latency", entry.Name), nil)
		}
		if _, dup := c.byName[entry.Name]; dup {
			return nil, models.NewConfigurationError(
				fmt.Sprintf("model %s appears twice in the catalog", entry.Name), nil)
		}

		desc := models.ModelDescriptor{
			Name:            entry.Name,
			Strength:        entry.Strength,
			BaselineLatency: time.Duration(entry.BaselineLatencyMs) * time.Millisecond,
			QualityScore:    entry.QualityScore,
			SizeGB:          entry.SizeGB,
			MaxContext:      entry.MaxContext,
		}
		c.descriptors = append(c.descriptors, desc)
		c.byName[entry.Name] = desc
	}

	// Deterministic iteration order regardless of config ordering.
	sort.Slice(c.descriptors, func(i, j int) bool {
		return c.descriptors[i].Name < c.descriptors[j].Name
	})

	if cfg.DefaultComplexModel != "" {
		if _, ok := c.byName[cfg.DefaultComplexModel]; !ok {
			return nil, models.NewConfigurationError(
				fmt.Sprintf("default complex model %s is not in the catalog", cfg.DefaultComplexModel), nil)
		}
		c.defaultComplex = cfg.DefaultComplexModel
	}

	return c, nil
}

// Get returns the descriptor for a model name.
func (c *Catalog) Get(name string) (models.ModelDescriptor, bool) {
	desc, ok := c.byName[name]
	return desc, ok
}

// List returns a copy of all descriptors, ordered by name.
func (c *Catalog) List() []models.ModelDescriptor {
	out := make([]models.ModelDescriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Fastest returns the model with the lowest baseline latency. Ties break by
// name so the result is stable.
func (c *Catalog) Fastest() models.ModelDescriptor {
	best := c.descriptors[0]
	for _, d := range c.descriptors[1:] {
		if d.BaselineLatency < best.BaselineLatency {
			best = d
		}
	}
	return best
}

// FastestByStrength returns the lowest-latency model with the given strength.
func (c *Catalog) FastestByStrength(s models.Strength) (models.ModelDescriptor, bool) {
	var best models.ModelDescriptor
	found := false
	for _, d := range c.descriptors {
		if d.Strength != s {
			continue
		}
		if !found || d.BaselineLatency < best.BaselineLatency {
			best = d
			found = true
		}
	}
	return best, found
}

// BestQuality returns the model with the highest quality score, preferring
// reasoning-strength models on ties.
func (c *Catalog) BestQuality() models.ModelDescriptor {
	best := c.descriptors[0]
	for _, d := range c.descriptors[1:] {
		if d.QualityScore > best.QualityScore ||
			(d.QualityScore == best.QualityScore && d.Strength == models.StrengthReasoning && best.Strength != models.StrengthReasoning) {
			best = d
		}
	}
	return best
}

// DefaultComplex returns the designated model for complex requests with no
// disambiguating category. When none is configured, the lowest-latency
// reasoning model is designated; a catalog with no reasoning model falls
// back to the highest quality score.
func (c *Catalog) DefaultComplex() models.ModelDescriptor {
	if c.defaultComplex != "" {
		return c.byName[c.defaultComplex]
	}
	if d, ok := c.FastestByStrength(models.StrengthReasoning); ok {
		return d
	}
	return c.BestQuality()
}

// Names returns all catalog model names, ordered.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.descriptors))
	for i, d := range c.descriptors {
		names[i] = d.Name
	}
	return names
}
