// Package goal defines the declarative target of an agent run.
//
// A Goal is a value object: every mutation (WithStatus, MarkCriterionMet, ...)
// returns a new Goal rather than mutating the receiver, mirroring the
// reducer-based state discipline used throughout the rest of this module.
package goal

import "time"

// Status is the lifecycle state of a Goal.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ConstraintType distinguishes constraints that must never be violated
// (hard) from ones that are advisory (soft).
type ConstraintType string

const (
	ConstraintHard ConstraintType = "hard"
	ConstraintSoft ConstraintType = "soft"
)

// SuccessCriterion is one measurable condition for goal completion.
type SuccessCriterion struct {
	ID          string  `json:"id" yaml:"id"`
	Description string  `json:"description" yaml:"description"`
	Metric      string  `json:"metric" yaml:"metric"`
	Target      float64 `json:"target" yaml:"target"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Met         bool    `json:"met" yaml:"met"`
}

// Constraint is a boundary the run must (hard) or should (soft) respect.
type Constraint struct {
	ID          string         `json:"id" yaml:"id"`
	Description string         `json:"description" yaml:"description"`
	Type        ConstraintType `json:"type" yaml:"type"`
	Category    string         `json:"category" yaml:"category"`
}

// Goal is the declarative target of a run.
type Goal struct {
	ID                string             `json:"id" yaml:"id"`
	Name              string             `json:"name" yaml:"name"`
	Description       string             `json:"description" yaml:"description"`
	SuccessCriteria   []SuccessCriterion `json:"success_criteria" yaml:"success_criteria"`
	Constraints       []Constraint       `json:"constraints" yaml:"constraints"`
	Status            Status             `json:"status" yaml:"status"`
	CreatedAt         time.Time          `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" yaml:"updated_at"`
}

// New creates a draft Goal with both timestamps set to now.
func New(id, name, description string, now time.Time) Goal {
	return Goal{
		ID:          id,
		Name:        name,
		Description: description,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// clone returns a deep copy so callers cannot mutate shared slices through
// the returned Goal.
func (g Goal) clone() Goal {
	out := g
	if g.SuccessCriteria != nil {
		out.SuccessCriteria = append([]SuccessCriterion(nil), g.SuccessCriteria...)
	}
	if g.Constraints != nil {
		out.Constraints = append([]Constraint(nil), g.Constraints...)
	}
	return out
}

// WithStatus returns a new Goal with Status and UpdatedAt changed.
func (g Goal) WithStatus(status Status, now time.Time) Goal {
	out := g.clone()
	out.Status = status
	out.UpdatedAt = now
	return out
}

// WithCriterion returns a new Goal with the named success criterion appended.
func (g Goal) WithCriterion(c SuccessCriterion, now time.Time) Goal {
	out := g.clone()
	out.SuccessCriteria = append(out.SuccessCriteria, c)
	out.UpdatedAt = now
	return out
}

// WithConstraint returns a new Goal with the given constraint appended.
func (g Goal) WithConstraint(c Constraint, now time.Time) Goal {
	out := g.clone()
	out.Constraints = append(out.Constraints, c)
	out.UpdatedAt = now
	return out
}

// MarkCriterionMet returns a new Goal with the named criterion's Met flag set.
// It is a no-op (returns g unchanged, aside from UpdatedAt) if no criterion
// with that ID exists.
func (g Goal) MarkCriterionMet(criterionID string, met bool, now time.Time) Goal {
	out := g.clone()
	for i := range out.SuccessCriteria {
		if out.SuccessCriteria[i].ID == criterionID {
			out.SuccessCriteria[i].Met = met
			break
		}
	}
	out.UpdatedAt = now
	return out
}

// AllCriteriaMet reports whether every success criterion is satisfied.
// A goal with no criteria is considered met vacuously.
func (g Goal) AllCriteriaMet() bool {
	for _, c := range g.SuccessCriteria {
		if !c.Met {
			return false
		}
	}
	return true
}

// WeightedScore returns the sum of weights for met criteria divided by the
// sum of all weights. Returns 0 if there are no criteria or all weights are 0.
func (g Goal) WeightedScore() float64 {
	var total, met float64
	for _, c := range g.SuccessCriteria {
		total += c.Weight
		if c.Met {
			met += c.Weight
		}
	}
	if total == 0 {
		return 0
	}
	return met / total
}

// HardConstraints returns only the constraints of type ConstraintHard.
func (g Goal) HardConstraints() []Constraint {
	var out []Constraint
	for _, c := range g.Constraints {
		if c.Type == ConstraintHard {
			out = append(out, c)
		}
	}
	return out
}
