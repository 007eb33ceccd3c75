package service

import (
	"time"

	"go-attack-planner/internal/direction"
	"go-attack-planner/internal/marker"
	"go-attack-planner/pkg/models"
)

// PhaseView is one phase with the markers derived from its text.
type PhaseView struct {
	Index      int             `json:"index"`
	PhaseName  string          `json:"phaseName"`
	Directions direction.Set   `json:"directions"`
	Markers    []marker.Marker `json:"markers"`
}

// PlanView is what the results screen renders: the plan as returned by the
// model plus per-phase markers. A new view is built for every generation.
type PlanView struct {
	Plan        *models.PlanResponse `json:"plan"`
	Phases      []PhaseView          `json:"phases"`
	Goal        string               `json:"goal"`
	GeneratedAt time.Time            `json:"generatedAt"`
}

// BuildView derives markers for each phase. Phases are parsed independently
// of each other; the plan itself is copied so the view owns its data.
func BuildView(plan *models.PlanResponse, goal string) *PlanView {
	plan = plan.Clone()
	view := &PlanView{
		Plan:        plan,
		Phases:      make([]PhaseView, 0, len(plan.Steps)),
		Goal:        goal,
		GeneratedAt: time.Now().UTC(),
	}

	for i, step := range plan.Steps {
		dirs := direction.ExtractPhase(step)
		view.Phases = append(view.Phases, PhaseView{
			Index:      i,
			PhaseName:  step.PhaseName,
			Directions: dirs,
			Markers:    marker.Place(dirs),
		})
	}
	return view
}

// Phase returns the phase at index n.
func (v *PlanView) Phase(n int) (PhaseView, bool) {
	if v == nil || n < 0 || n >= len(v.Phases) {
		return PhaseView{}, false
	}
	return v.Phases[n], true
}
