package analytics

import (
	"strings"

	"github.com/sprintpulse/sprintpulse/pkg/sprint"
)

// ResolvedState is the canonical completion state of an issue.
type ResolvedState string

const (
	StateOpen     ResolvedState = "open"
	StateResolved ResolvedState = "resolved"
)

// PriorityTier is the canonical priority bucket of an issue.
type PriorityTier string

const (
	TierCritical PriorityTier = "critical"
	TierHigh     PriorityTier = "high"
	TierMedium   PriorityTier = "medium"
	TierLow      PriorityTier = "low"
)

// IssueCategory separates defects from all other work.
type IssueCategory string

const (
	CategoryDefect    IssueCategory = "defect"
	CategoryNonDefect IssueCategory = "non_defect"
)

// Vocabulary is the synonym table behind classification. Every entry is
// matched case-insensitively as a substring of the source field, because
// tracker taxonomies differ between projects.
type Vocabulary struct {
	Resolved []string `yaml:"resolved"`
	Defect   []string `yaml:"defect"`
	Critical []string `yaml:"critical"`
	High     []string `yaml:"high"`
	Medium   []string `yaml:"medium"`

	// Lifecycle phases a defect is attributed to, tested in this order.
	Requirements []string `yaml:"requirements"`
	Design       []string `yaml:"design"`
	Coding       []string `yaml:"coding"`
	Testing      []string `yaml:"testing"`
}

// DefaultVocabulary returns the built-in synonym table.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Resolved: []string{"done", "closed", "resolved"},
		Defect:   []string{"bug", "defect", "issue"},
		Critical: []string{"critical", "highest", "blocker"},
		High:     []string{"high"},
		Medium:   []string{"medium"},

		Requirements: []string{"story", "epic"},
		Design:       []string{"task", "subtask"},
		Coding:       []string{"bug", "defect"},
		Testing:      []string{"test", "qa"},
	}
}

// Classifier maps free-text issue fields onto the canonical enums.
type Classifier struct {
	vocab Vocabulary
}

// NewClassifier creates a classifier over a vocabulary. Terms are
// lower-cased once here.
func NewClassifier(v Vocabulary) *Classifier {
	return &Classifier{vocab: Vocabulary{
		Resolved: lowerAll(v.Resolved),
		Defect:   lowerAll(v.Defect),
		Critical: lowerAll(v.Critical),
		High:     lowerAll(v.High),
		Medium:   lowerAll(v.Medium),

		Requirements: lowerAll(v.Requirements),
		Design:       lowerAll(v.Design),
		Coding:       lowerAll(v.Coding),
		Testing:      lowerAll(v.Testing),
	}}
}

// State reports whether the status or the resolution names a resolved state.
func (c *Classifier) State(is sprint.Issue) ResolvedState {
	if containsAny(is.Status, c.vocab.Resolved) || containsAny(is.Resolution, c.vocab.Resolved) {
		return StateResolved
	}
	return StateOpen
}

// IsResolved is shorthand for State(is) == StateResolved.
func (c *Classifier) IsResolved(is sprint.Issue) bool {
	return c.State(is) == StateResolved
}

// Category classifies the issue type.
func (c *Classifier) Category(is sprint.Issue) IssueCategory {
	if containsAny(is.IssueType, c.vocab.Defect) {
		return CategoryDefect
	}
	return CategoryNonDefect
}

// IsDefect is shorthand for Category(is) == CategoryDefect.
func (c *Classifier) IsDefect(is sprint.Issue) bool {
	return c.Category(is) == CategoryDefect
}

// Tier maps a priority string to a tier. A blank priority is medium;
// anything unrecognised is low.
func (c *Classifier) Tier(priority string) PriorityTier {
	switch {
	case strings.TrimSpace(priority) == "":
		return TierMedium
	case containsAny(priority, c.vocab.Critical):
		return TierCritical
	case containsAny(priority, c.vocab.High):
		return TierHigh
	case containsAny(priority, c.vocab.Medium):
		return TierMedium
	default:
		return TierLow
	}
}

// Phase is a lifecycle phase a defect can be attributed to.
type Phase string

const (
	PhaseRequirements Phase = "requirements"
	PhaseDesign       Phase = "design"
	PhaseCoding       Phase = "coding"
	PhaseTesting      Phase = "testing"
	PhaseUnknown      Phase = ""
)

// Phase attributes an issue type to the first matching lifecycle phase.
func (c *Classifier) Phase(issueType string) Phase {
	switch {
	case containsAny(issueType, c.vocab.Requirements):
		return PhaseRequirements
	case containsAny(issueType, c.vocab.Design):
		return PhaseDesign
	case containsAny(issueType, c.vocab.Coding):
		return PhaseCoding
	case containsAny(issueType, c.vocab.Testing):
		return PhaseTesting
	default:
		return PhaseUnknown
	}
}

func containsAny(field string, terms []string) bool {
	if field == "" {
		return false
	}
	lower := strings.ToLower(field)
	for _, term := range terms {
		if term != "" && strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func lowerAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
