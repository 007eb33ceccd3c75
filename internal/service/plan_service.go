package service

import (
	"context"
	"time"

	apperrors "go-attack-planner/internal/errors"
	"go-attack-planner/internal/goal"
	"go-attack-planner/internal/observer"
	"go-attack-planner/internal/planner"
	"go-attack-planner/pkg/models"
)

// MissingImagesMessage is returned when either screenshot is absent.
const MissingImagesMessage = "Please upload both an Army image and an Enemy Base image."

// Generator produces a plan from a request; *planner.Orchestrator is the
// production implementation.
type Generator interface {
	GeneratePlan(ctx context.Context, req models.PlanRequest, onProgress planner.ProgressFunc) (*models.PlanResponse, error)
}

// PlanService defines the plan generation use case
type PlanService interface {
	// Check reports why req would be refused without calling the model.
	Check(ctx context.Context, sessionID string, req models.PlanRequest) error
	// Plan checks req, generates a plan and derives the per-phase markers.
	Plan(ctx context.Context, sessionID string, req models.PlanRequest, onProgress planner.ProgressFunc) (*PlanView, error)
}

// planService implements PlanService
type planService struct {
	generator Generator
	events    observer.Subject
}

// NewPlanService creates a new plan service. events may be nil.
func NewPlanService(generator Generator, events observer.Subject) PlanService {
	return &planService{
		generator: generator,
		events:    events,
	}
}

func (s *planService) Check(ctx context.Context, sessionID string, req models.PlanRequest) error {
	if req.ArmyImage.IsZero() || req.BaseImage.IsZero() {
		return apperrors.NewInputError(MissingImagesMessage, nil)
	}

	if err := goal.Validate(req.Goal); err != nil {
		appErr, _ := apperrors.As(err)
		if appErr.Reason == goal.ReasonOffTopic {
			if suggestion, ok := goal.Suggest(req.Goal); ok {
				appErr = appErr.WithDetails(suggestion)
			}
		}
		s.publish(ctx, observer.PlanEvent{
			EventType:    observer.GoalRejected,
			SessionID:    sessionID,
			Goal:         req.Goal,
			Reason:       appErr.Reason,
			ErrorMessage: appErr.Message,
		})
		return appErr
	}
	return nil
}

func (s *planService) Plan(ctx context.Context, sessionID string, req models.PlanRequest, onProgress planner.ProgressFunc) (*PlanView, error) {
	if err := s.Check(ctx, sessionID, req); err != nil {
		return nil, err
	}

	startTime := time.Now()
	s.publish(ctx, observer.PlanEvent{
		EventType: observer.PlanRequested,
		SessionID: sessionID,
		Goal:      req.Goal,
		Metadata: map[string]interface{}{
			"army_bytes": req.ArmyImage.Size(),
			"base_bytes": req.BaseImage.Size(),
		},
	})

	plan, err := s.generator.GeneratePlan(ctx, req, func(stage planner.Stage) {
		s.publish(ctx, observer.PlanEvent{
			EventType: observer.StageAdvanced,
			SessionID: sessionID,
			Stage:     int(stage),
		})
		if onProgress != nil {
			onProgress(stage)
		}
	})
	if err != nil {
		s.publish(ctx, observer.PlanEvent{
			EventType:      observer.PlanFailed,
			SessionID:      sessionID,
			Goal:           req.Goal,
			ProcessingTime: time.Since(startTime),
			ErrorMessage:   errorMessage(err),
		})
		return nil, err
	}

	view := BuildView(plan, req.Goal)
	markers := 0
	for _, p := range view.Phases {
		markers += len(p.Markers)
	}

	s.publish(ctx, observer.PlanEvent{
		EventType:      observer.PlanCompleted,
		SessionID:      sessionID,
		Goal:           req.Goal,
		ProcessingTime: time.Since(startTime),
		Success:        true,
		Metadata: map[string]interface{}{
			"phases":  len(view.Phases),
			"markers": markers,
		},
	})
	return view, nil
}

func (s *planService) publish(ctx context.Context, event observer.PlanEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}

func errorMessage(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}
