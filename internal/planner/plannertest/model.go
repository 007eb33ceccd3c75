// Package plannertest provides a scripted Model for tests of packages that
// drive the planner.
package plannertest

import (
	"context"
	"sync"

	"go-attack-planner/internal/planner"
)

// ValidPlan is a well-formed model payload with two phases.
const ValidPlan = `{
	"armyAnalysis": "Balanced air army with strong spells.",
	"baseWeaknesses": "Air defenses are clustered on the east side.",
	"criticalAdvice": "Do not deploy the Queen before the funnel is set.",
	"steps": [
		{"phaseName": "Phase 1: Funnel", "description": "Deploy 2 Balloons at 3 o'clock (east).", "troopsUsed": ["Balloon"]},
		{"phaseName": "Phase 2: Main Push", "description": "Send 8 Dragons from the north west.", "troopsUsed": ["Dragon", "Rage Spell"]}
	]
}`

// Model returns Text or Err for every call. When Gate is non-nil each call
// blocks until a value is received from it or ctx is done.
type Model struct {
	Text string
	Err  error
	Gate chan struct{}

	mu    sync.Mutex
	calls []planner.StructuredCall
}

// GenerateStructured records call and returns the scripted result.
func (m *Model) GenerateStructured(ctx context.Context, call planner.StructuredCall) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Text, m.Err
}

// Calls returns the calls received so far.
func (m *Model) Calls() []planner.StructuredCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]planner.StructuredCall(nil), m.calls...)
}

// Set changes the scripted result for later calls.
func (m *Model) Set(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Text, m.Err = text, err
}
