// Package config handles loading and managing Sprintpulse configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sprintpulse/sprintpulse/pkg/analytics"
)

// Config is the top-level configuration for Sprintpulse.
type Config struct {
	StoryPoints StoryPointsConfig `yaml:"story_points"`
	Velocity    VelocityConfig    `yaml:"velocity"`
	Burndown    BurndownConfig    `yaml:"burndown"`
	Quality     QualityConfig     `yaml:"quality"`
	Synonyms    VocabularyConfig  `yaml:"vocabulary"`
}

// StoryPointsConfig controls effort extraction. Pointer fields tell an
// explicit zero apart from an unset value.
type StoryPointsConfig struct {
	Default *float64 `yaml:"default"`
	Fields  []string `yaml:"fields"`
}

// VelocityConfig controls the sprint goal.
type VelocityConfig struct {
	GoalThreshold *float64 `yaml:"goal_threshold"`
}

// BurndownConfig controls the burndown chart and its health figures.
type BurndownConfig struct {
	MaxSprintDays          int                `yaml:"max_sprint_days"`
	ScopeModel             string             `yaml:"scope_model"` // tracked | simulated
	SimulatedScopeDay      int                `yaml:"simulated_scope_day"`
	SimulatedScopeFraction *float64           `yaml:"simulated_scope_fraction"`
	Weights                map[string]float64 `yaml:"weights"`
}

// QualityConfig controls quality scoring and gates.
type QualityConfig struct {
	Weights map[string]float64 `yaml:"weights"`
	Gates   GatesConfig        `yaml:"gates"`
}

// GatesConfig holds the quality gate thresholds.
type GatesConfig struct {
	MaxDefectDensity  *float64 `yaml:"max_defect_density"`
	MaxEscapeRate     *float64 `yaml:"max_escape_rate"`
	MaxCriticalRatio  *float64 `yaml:"max_critical_ratio"`
	MaxResolutionDays *float64 `yaml:"max_resolution_days"`
}

// VocabularyConfig extends classification. Non-empty lists replace the
// built-in synonyms for that class.
type VocabularyConfig struct {
	Resolved     []string `yaml:"resolved"`
	Defect       []string `yaml:"defect"`
	Critical     []string `yaml:"critical"`
	High         []string `yaml:"high"`
	Medium       []string `yaml:"medium"`
	Requirements []string `yaml:"requirements"`
	Design       []string `yaml:"design"`
	Coding       []string `yaml:"coding"`
	Testing      []string `yaml:"testing"`
}

// DefaultConfig returns an empty Config; every unset value falls back to the
// engine defaults.
func DefaultConfig() *Config {
	return &Config{
		Burndown: BurndownConfig{Weights: map[string]float64{}},
		Quality:  QualityConfig{Weights: map[string]float64{}},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects values the engine cannot use.
func (c *Config) Validate() error {
	switch analytics.ScopeModel(c.Burndown.ScopeModel) {
	case "", analytics.ScopeTracked, analytics.ScopeSimulated:
	default:
		return fmt.Errorf("burndown.scope_model %q: want tracked or simulated", c.Burndown.ScopeModel)
	}
	if t := c.Velocity.GoalThreshold; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("velocity.goal_threshold %v: want a fraction in [0, 1]", *t)
	}
	if c.Burndown.MaxSprintDays < 0 {
		return fmt.Errorf("burndown.max_sprint_days %d: must not be negative", c.Burndown.MaxSprintDays)
	}
	if d := c.StoryPoints.Default; d != nil && *d < 0 {
		return fmt.Errorf("story_points.default %v: must not be negative", *d)
	}
	if f := c.Burndown.SimulatedScopeFraction; f != nil && (*f < 0 || *f > 1) {
		return fmt.Errorf("burndown.simulated_scope_fraction %v: want a fraction in [0, 1]", *f)
	}
	g := c.Quality.Gates
	for name, v := range map[string]*float64{
		"max_defect_density":  g.MaxDefectDensity,
		"max_escape_rate":     g.MaxEscapeRate,
		"max_critical_ratio":  g.MaxCriticalRatio,
		"max_resolution_days": g.MaxResolutionDays,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("quality.gates.%s %v: must not be negative", name, *v)
		}
	}
	if err := validateWeights("burndown", burndownWeights, c.Burndown.Weights); err != nil {
		return err
	}
	return validateWeights("quality", qualityWeights, c.Quality.Weights)
}

func validateWeights(section string, fields map[string]func(*analytics.Policy) *float64, weights map[string]float64) error {
	for name, v := range weights {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("unknown %s weight %q", section, name)
		}
		if v < 0 {
			return fmt.Errorf("%s weight %q %v: must not be negative", section, name, v)
		}
	}
	return nil
}

var burndownWeights = map[string]func(*analytics.Policy) *float64{
	"variance":      func(p *analytics.Policy) *float64 { return &p.VariancePenaltyWeight },
	"max_variance":  func(p *analytics.Policy) *float64 { return &p.MaxVariancePenalty },
	"time_pressure": func(p *analytics.Policy) *float64 { return &p.TimePressureWeight },
	"max_pressure":  func(p *analytics.Policy) *float64 { return &p.MaxTimePressurePenalty },
	"early_finish":  func(p *analytics.Policy) *float64 { return &p.EarlyFinishWeight },
	"late_finish":   func(p *analytics.Policy) *float64 { return &p.LateFinishWeight },
	"scope_impact":  func(p *analytics.Policy) *float64 { return &p.ScopeImpactWeight },
	"consistent":    func(p *analytics.Policy) *float64 { return &p.ConsistentVarianceRatio },
	"bursty":        func(p *analytics.Policy) *float64 { return &p.BurstyPeakRatio },
}

var qualityWeights = map[string]func(*analytics.Policy) *float64{
	"density":        func(p *analytics.Policy) *float64 { return &p.DensityWeight },
	"max_density":    func(p *analytics.Policy) *float64 { return &p.MaxDensityPenalty },
	"escape":         func(p *analytics.Policy) *float64 { return &p.EscapeWeight },
	"max_escape":     func(p *analytics.Policy) *float64 { return &p.MaxEscapePenalty },
	"grace_days":     func(p *analytics.Policy) *float64 { return &p.ResolutionGraceDays },
	"resolution":     func(p *analytics.Policy) *float64 { return &p.ResolutionWeight },
	"max_resolution": func(p *analytics.Policy) *float64 { return &p.MaxResolutionPenalty },
	"critical":       func(p *analytics.Policy) *float64 { return &p.CriticalWeight },
	"max_critical":   func(p *analytics.Policy) *float64 { return &p.MaxCriticalPenalty },
	"gate_points":    func(p *analytics.Policy) *float64 { return &p.Gates.PointsPerGate },
}

// Policy overlays every configured value on the default policy. Set
// pointer fields and listed weights apply even when zero.
func (c *Config) Policy() analytics.Policy {
	p := analytics.DefaultPolicy()

	overlay(&p.DefaultStoryPoints, c.StoryPoints.Default)
	if len(c.StoryPoints.Fields) > 0 {
		p.StoryPointFields = append([]string(nil), c.StoryPoints.Fields...)
	}
	overlay(&p.GoalThreshold, c.Velocity.GoalThreshold)

	b := c.Burndown
	if b.MaxSprintDays > 0 {
		p.MaxSprintDays = b.MaxSprintDays
	}
	if b.ScopeModel != "" {
		p.ScopeModel = analytics.ScopeModel(b.ScopeModel)
	}
	if b.SimulatedScopeDay > 0 {
		p.SimulatedScopeDay = b.SimulatedScopeDay
	}
	overlay(&p.SimulatedScopeFraction, b.SimulatedScopeFraction)
	overlayWeights(&p, burndownWeights, b.Weights)
	overlayWeights(&p, qualityWeights, c.Quality.Weights)

	g := c.Quality.Gates
	overlay(&p.Gates.MaxDefectDensity, g.MaxDefectDensity)
	overlay(&p.Gates.MaxEscapeRate, g.MaxEscapeRate)
	overlay(&p.Gates.MaxCriticalRatio, g.MaxCriticalRatio)
	overlay(&p.Gates.MaxResolutionDays, g.MaxResolutionDays)

	return p
}

func overlay(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func overlayWeights(p *analytics.Policy, fields map[string]func(*analytics.Policy) *float64, weights map[string]float64) {
	for name, v := range weights {
		if field, ok := fields[name]; ok {
			*field(p) = v
		}
	}
}

// Vocabulary overlays the configured synonym lists on the built-in table.
func (c *Config) Vocabulary() analytics.Vocabulary {
	v := analytics.DefaultVocabulary()
	cv := c.Synonyms

	replace := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = append([]string(nil), src...)
		}
	}
	replace(&v.Resolved, cv.Resolved)
	replace(&v.Defect, cv.Defect)
	replace(&v.Critical, cv.Critical)
	replace(&v.High, cv.High)
	replace(&v.Medium, cv.Medium)
	replace(&v.Requirements, cv.Requirements)
	replace(&v.Design, cv.Design)
	replace(&v.Coding, cv.Coding)
	replace(&v.Testing, cv.Testing)
	return v
}

// Engine builds an analytics engine from this configuration.
func (c *Config) Engine() *analytics.Engine {
	return analytics.NewEngine(c.Policy(), analytics.NewClassifier(c.Vocabulary()))
}

// FindConfigFile looks for .sprintpulse/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".sprintpulse", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
