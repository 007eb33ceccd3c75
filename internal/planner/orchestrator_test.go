package planner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "go-attack-planner/internal/errors"
	"go-attack-planner/internal/imaging"
	"go-attack-planner/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPlan = `{
	"armyAnalysis": "Strong air army.",
	"baseWeaknesses": "Air defenses clustered.",
	"criticalAdvice": "Do not lure the clan castle late.",
	"steps": [
		{"phaseName": "Phase 1: Funnel", "description": "Deploy 2 Balloons at 3 o'clock (east)", "troopsUsed": ["Balloon"]},
		{"phaseName": "Phase 2: Main Push", "description": "Deploy 8 Dragons north west", "troopsUsed": ["Dragon", "Rage Spell"]}
	]
}`

type fakeModel struct {
	text  string
	err   error
	calls []StructuredCall
	mu    sync.Mutex
}

func (m *fakeModel) GenerateStructured(ctx context.Context, call StructuredCall) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	return m.text, m.err
}

func testRequest() models.PlanRequest {
	return models.PlanRequest{
		ArmyImage: imaging.Image{Name: "army", MIMEType: "image/png", Data: []byte("army-bytes")},
		BaseImage: imaging.Image{Name: "base", MIMEType: "image/jpeg", Data: []byte("base-bytes")},
		Goal:      "Loot Resources",
	}
}

func recordStages() (*[]Stage, ProgressFunc) {
	var stages []Stage
	return &stages, func(s Stage) { stages = append(stages, s) }
}

func TestGeneratePlan_Success(t *testing.T) {
	model := &fakeModel{text: validPlan}
	o := NewOrchestrator(model)
	stages, onProgress := recordStages()

	plan, err := o.GeneratePlan(context.Background(), testRequest(), onProgress)
	require.NoError(t, err)

	assert.Equal(t, []Stage{0, 1, 2, 3, 4}, *stages)
	assert.Equal(t, "Strong air army.", plan.ArmyAnalysis)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, []string{"Dragon", "Rage Spell"}, plan.Steps[1].TroopsUsed)

	require.Len(t, model.calls, 1)
	call := model.calls[0]
	assert.Contains(t, call.Prompt, `Goal: "Loot Resources".`)
	assert.Contains(t, call.Prompt, "3 to 5 distinct phases")
	assert.Contains(t, call.Prompt, "explicit numeric counts")
	assert.Contains(t, call.Prompt, "clock position and cardinal direction")

	require.Len(t, call.Images, 2)
	assert.Equal(t, "image/png", call.Images[0].MIMEType)
	raw, err := call.Images[0].Bytes()
	require.NoError(t, err)
	assert.Equal(t, "army-bytes", string(raw))
	assert.Equal(t, "image/jpeg", call.Images[1].MIMEType)

	require.NotNil(t, call.Schema)
	assert.ElementsMatch(t, []string{"armyAnalysis", "baseWeaknesses", "criticalAdvice", "steps"}, call.Schema.Required)
	assert.ElementsMatch(t, []string{"phaseName", "description", "troopsUsed"}, call.Schema.Properties["steps"].Items.Required)
}

func TestGeneratePlan_NilProgress(t *testing.T) {
	o := NewOrchestrator(&fakeModel{text: validPlan})
	_, err := o.GeneratePlan(context.Background(), testRequest(), nil)
	assert.NoError(t, err)
}

func TestGeneratePlan_Failures(t *testing.T) {
	tests := []struct {
		name       string
		model      *fakeModel
		req        func() models.PlanRequest
		wantMsg    string
		wantStages []Stage
	}{
		{
			name:       "model error",
			model:      &fakeModel{err: errors.New("quota exceeded")},
			wantMsg:    "Failed to analyze strategy: quota exceeded",
			wantStages: []Stage{0, 1},
		},
		{
			name:       "empty payload",
			model:      &fakeModel{text: ""},
			wantMsg:    "Failed to analyze strategy: No response text generated",
			wantStages: []Stage{0, 1},
		},
		{
			name:       "whitespace payload",
			model:      &fakeModel{text: "  \n"},
			wantMsg:    "Failed to analyze strategy: No response text generated",
			wantStages: []Stage{0, 1},
		},
		{
			name:       "malformed payload",
			model:      &fakeModel{text: `{"armyAnalysis": "x"`},
			wantMsg:    "Failed to analyze strategy: invalid plan payload",
			wantStages: []Stage{0, 1},
		},
		{
			name:       "missing required field",
			model:      &fakeModel{text: `{"armyAnalysis": "a", "baseWeaknesses": "b", "steps": []}`},
			wantMsg:    "Failed to analyze strategy: plan payload does not match schema",
			wantStages: []Stage{0, 1},
		},
		{
			name:  "missing base image",
			model: &fakeModel{text: validPlan},
			req: func() models.PlanRequest {
				r := testRequest()
				r.BaseImage = imaging.Image{}
				return r
			},
			wantMsg:    "Failed to analyze strategy: ",
			wantStages: []Stage{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(tt.model)
			stages, onProgress := recordStages()

			req := testRequest()
			if tt.req != nil {
				req = tt.req()
			}

			plan, err := o.GeneratePlan(context.Background(), req, onProgress)
			require.Error(t, err)
			assert.Nil(t, plan)

			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeGeneration))
			appErr, _ := apperrors.As(err)
			assert.True(t, strings.HasPrefix(appErr.Message, tt.wantMsg), "message %q", appErr.Message)
			assert.Equal(t, tt.wantStages, *stages)
		})
	}
}

func TestGeneratePlan_ModelErrorIsWrapped(t *testing.T) {
	cause := errors.New("connection reset")
	o := NewOrchestrator(&fakeModel{err: cause})

	_, err := o.GeneratePlan(context.Background(), testRequest(), nil)
	assert.ErrorIs(t, err, cause)
}

func TestGeneratePlan_PacingDelay(t *testing.T) {
	var slept []time.Duration
	o := NewOrchestrator(&fakeModel{text: validPlan},
		WithStageDelay(2*time.Second),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}),
	)

	_, err := o.GeneratePlan(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, slept)
}

func TestGeneratePlan_CancelledDuringPacing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := NewOrchestrator(&fakeModel{text: validPlan}, WithStageDelay(time.Hour))
	stages, onProgress := recordStages()

	cancel()
	_, err := o.GeneratePlan(ctx, testRequest(), onProgress)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []Stage{0, 1}, *stages)
}

type blockingModel struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	release  chan struct{}
}

func (m *blockingModel) GenerateStructured(ctx context.Context, call StructuredCall) (string, error) {
	n := m.inFlight.Add(1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-m.release
	m.inFlight.Add(-1)
	return validPlan, nil
}

func TestGeneratePlan_ConcurrencyCap(t *testing.T) {
	model := &blockingModel{release: make(chan struct{})}
	o := NewOrchestrator(model, WithMaxConcurrent(2))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = o.GeneratePlan(context.Background(), testRequest(), nil)
		}()
	}

	// Let the first calls pile up on the semaphore before releasing them.
	require.Eventually(t, func() bool { return model.inFlight.Load() == 2 }, time.Second, time.Millisecond)
	close(model.release)
	wg.Wait()

	assert.Equal(t, int32(2), model.peak.Load())
}

func TestNoModelConfigured(t *testing.T) {
	o := NewOrchestrator(nil)
	_, err := o.GeneratePlan(context.Background(), testRequest(), nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeGeneration))
}

func TestStageLabels(t *testing.T) {
	assert.Equal(t, 5, StageCount)
	assert.Equal(t, "Preparing images...", StagePreparing.Label())
	assert.Equal(t, "Analyzing with AI...", StageAnalyzing.Label())
	assert.Equal(t, "Building step-by-step plan...", StageBuilding.Label())
	assert.Equal(t, "Formatting instructions...", StageFormatting.Label())
	assert.Equal(t, "Finalizing results...", StageFinalizing.Label())
	assert.Equal(t, "", Stage(9).Label())
	assert.True(t, StageFinalizing.Last())
	assert.False(t, StageBuilding.Last())
}

func TestPlanSchema_FreshCopy(t *testing.T) {
	a := PlanSchema()
	a.Required = nil
	assert.Len(t, PlanSchema().Required, 4)
}
