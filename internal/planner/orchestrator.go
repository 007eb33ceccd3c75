// Package planner drives a single plan generation: it encodes the inputs,
// calls the structured-generation model, decodes the result and reports
// progress along the way.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "go-attack-planner/internal/errors"
	"go-attack-planner/internal/imaging"
	"go-attack-planner/internal/logger"
	"go-attack-planner/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// ErrNoResponseText is returned when the model produced an empty payload.
var ErrNoResponseText = errors.New("No response text generated")

// StructuredCall is everything the model receives for one plan.
type StructuredCall struct {
	Prompt string
	Images []imaging.EncodedImage
	Schema *Schema
}

// Model is the external structured-generation collaborator. It returns the
// raw textual payload of the response, which may be empty.
type Model interface {
	GenerateStructured(ctx context.Context, call StructuredCall) (string, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithStageDelay sets the pacing delay before each post-decode stage.
func WithStageDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.stageDelay = d
	}
}

// WithSleep replaces the pacing sleeper, mostly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithMaxConcurrent caps the number of model calls in flight across all
// callers of the orchestrator. Non-positive values leave it uncapped.
func WithMaxConcurrent(n int64) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.sem = semaphore.NewWeighted(n)
		} else {
			o.sem = nil
		}
	}
}

// Orchestrator runs plan generations. It is safe for concurrent use; it does
// not itself enforce one request per session.
type Orchestrator struct {
	model      Model
	stageDelay time.Duration
	sleep      SleepFunc
	sem        *semaphore.Weighted
}

// NewOrchestrator creates an orchestrator around model.
func NewOrchestrator(model Model, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		model: model,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GeneratePlan produces a new plan for req. Stages are reported in order
// 0 through 4; stages already reported stay reported when a later step
// fails. Every failure is a generation error whose message starts with
// "Failed to analyze strategy: ".
func (o *Orchestrator) GeneratePlan(ctx context.Context, req models.PlanRequest, onProgress ProgressFunc) (*models.PlanResponse, error) {
	startTime := time.Now()
	report := func(s Stage) {
		if onProgress != nil {
			onProgress(s)
		}
	}

	report(StagePreparing)

	army, err := imaging.Encode(req.ArmyImage)
	if err != nil {
		return nil, o.fail(err)
	}
	base, err := imaging.Encode(req.BaseImage)
	if err != nil {
		return nil, o.fail(err)
	}

	report(StageAnalyzing)

	text, err := o.call(ctx, StructuredCall{
		Prompt: BuildPrompt(req.Goal),
		Images: []imaging.EncodedImage{army, base},
		Schema: PlanSchema(),
	})
	if err != nil {
		return nil, o.fail(err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, o.fail(ErrNoResponseText)
	}

	plan, err := models.DecodePlanResponse([]byte(text))
	if err != nil {
		return nil, o.fail(err)
	}

	for _, s := range []Stage{StageBuilding, StageFormatting, StageFinalizing} {
		if err := o.sleep(ctx, o.stageDelay); err != nil {
			return nil, o.fail(err)
		}
		report(s)
	}

	logger.WithFields(logrus.Fields{
		"phases":             len(plan.Steps),
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}).Debug("Plan generated")

	return plan, nil
}

func (o *Orchestrator) call(ctx context.Context, call StructuredCall) (string, error) {
	if o.model == nil {
		return "", errors.New("no generation model configured")
	}
	if o.sem != nil {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer o.sem.Release(1)
	}
	return o.model.GenerateStructured(ctx, call)
}

func (o *Orchestrator) fail(err error) error {
	msg := err.Error()
	if appErr, ok := apperrors.As(err); ok {
		msg = appErr.Message
	}

	genErr := apperrors.NewGenerationError(fmt.Sprintf("Failed to analyze strategy: %s", msg), err)
	logger.WithError(err).Error("Error generating attack plan")
	return genErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
