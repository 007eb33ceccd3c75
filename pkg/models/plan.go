package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"go-attack-planner/internal/imaging"

	"github.com/go-playground/validator/v10"
)

// PlanRequest is built fresh for every submission
type PlanRequest struct {
	ArmyImage imaging.Image
	BaseImage imaging.Image
	Goal      string
}

// PlanResponse is the structured attack plan returned by the model.
// It is never mutated once decoded; callers that need to change it Clone it.
type PlanResponse struct {
	ArmyAnalysis   string  `json:"armyAnalysis"`
	BaseWeaknesses string  `json:"baseWeaknesses"`
	CriticalAdvice string  `json:"criticalAdvice"`
	Steps          []Phase `json:"steps"`
}

// Phase is one discrete step of the plan
type Phase struct {
	PhaseName   string   `json:"phaseName"`
	Description string   `json:"description"`
	TroopsUsed  []string `json:"troopsUsed"`
}

// Clone returns a deep copy.
func (p *PlanResponse) Clone() *PlanResponse {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Steps = make([]Phase, len(p.Steps))
	for i, step := range p.Steps {
		cp.Steps[i] = Phase{
			PhaseName:   step.PhaseName,
			Description: step.Description,
			TroopsUsed:  append([]string{}, step.TroopsUsed...),
		}
	}
	return &cp
}

// wirePlan mirrors the output schema. Pointers and nil-able slices let the
// validator tell a missing field apart from an empty one.
type wirePlan struct {
	ArmyAnalysis   *string     `json:"armyAnalysis" validate:"required"`
	BaseWeaknesses *string     `json:"baseWeaknesses" validate:"required"`
	CriticalAdvice *string     `json:"criticalAdvice" validate:"required"`
	Steps          []wirePhase `json:"steps" validate:"required,dive"`
}

type wirePhase struct {
	PhaseName   *string  `json:"phaseName" validate:"required"`
	Description *string  `json:"description" validate:"required"`
	TroopsUsed  []string `json:"troopsUsed" validate:"required"`
}

var planValidator = validator.New()

// DecodePlanResponse decodes a serialized plan. Malformed JSON, trailing data
// and missing required fields are all reported as errors.
func DecodePlanResponse(payload []byte) (*PlanResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))

	var wire wirePlan
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("invalid plan payload: %w", err)
	}
	// More() reports false before a stray ']' or '}', so require a clean EOF.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("invalid plan payload: unexpected data after plan object")
	}
	if err := planValidator.Struct(&wire); err != nil {
		return nil, fmt.Errorf("plan payload does not match schema: %w", err)
	}

	plan := &PlanResponse{
		ArmyAnalysis:   *wire.ArmyAnalysis,
		BaseWeaknesses: *wire.BaseWeaknesses,
		CriticalAdvice: *wire.CriticalAdvice,
		Steps:          make([]Phase, 0, len(wire.Steps)),
	}
	for _, step := range wire.Steps {
		plan.Steps = append(plan.Steps, Phase{
			PhaseName:   *step.PhaseName,
			Description: *step.Description,
			TroopsUsed:  append([]string{}, step.TroopsUsed...),
		})
	}
	return plan, nil
}
