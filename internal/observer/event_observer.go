package observer

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"go-attack-planner/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// PlanEvent represents a plan lifecycle event
type PlanEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	SessionID      string                 `json:"session_id,omitempty"`
	Goal           string                 `json:"goal,omitempty"`
	Stage          int                    `json:"stage"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of plan event
type EventType string

const (
	// PlanRequested when a validated request is handed to the planner
	PlanRequested EventType = "plan_requested"
	// StageAdvanced when the planner reports a progress stage
	StageAdvanced EventType = "stage_advanced"
	// PlanCompleted when a plan was generated and decoded
	PlanCompleted EventType = "plan_completed"
	// PlanFailed when generation failed
	PlanFailed EventType = "plan_failed"
	// GoalRejected when validation stopped a request before generation
	GoalRejected EventType = "goal_rejected"
)

// Observer receives plan events. Names identify observers for Unsubscribe.
type Observer interface {
	OnEvent(ctx context.Context, event PlanEvent)
	GetObserverName() string
}

// Subject is what the plan service publishes to.
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PlanEvent)
}

// LoggingObserver writes one structured line per plan event.
type LoggingObserver struct {
	log *logrus.Logger
}

func NewLoggingObserver(log *logrus.Logger) Observer {
	return &LoggingObserver{log: log}
}

func (o *LoggingObserver) OnEvent(ctx context.Context, event PlanEvent) {
	fields := logrus.Fields{
		"event_type":         event.EventType,
		"stage":              event.Stage,
		"processing_time_ms": event.ProcessingTime.Milliseconds(),
		"success":            event.Success,
	}
	if event.SessionID != "" {
		fields[logger.FieldSession] = event.SessionID
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	if event.Reason != "" {
		fields["reason"] = event.Reason
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.log.WithFields(fields)
	switch event.EventType {
	case PlanRequested:
		entry.Info("Plan generation started")
	case StageAdvanced:
		entry.Debug("Plan generation advanced")
	case PlanCompleted:
		entry.Info("Plan generation completed")
	case PlanFailed:
		entry.Error("Plan generation failed")
	case GoalRejected:
		entry.Warn("Goal rejected")
	default:
		entry.Info("Plan event occurred")
	}
}

func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver exports plan events as Prometheus metrics and keeps a
// small in-process summary for the stats endpoint.
type MetricsObserver struct {
	requested prometheus.Counter
	completed prometheus.Counter
	failed    prometheus.Counter
	rejected  *prometheus.CounterVec
	stages    *prometheus.CounterVec
	duration  prometheus.Histogram

	mu                  sync.RWMutex
	totalPlans          int64
	successfulPlans     int64
	failedPlans         int64
	rejectedGoals       int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver registers the planner metrics with reg. A nil reg uses
// a private registry, which keeps repeated construction in tests safe.
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &MetricsObserver{
		requested: factory.NewCounter(prometheus.CounterOpts{
			Name: "attack_planner_plans_requested_total",
			Help: "Total number of plan generations started.",
		}),
		completed: factory.NewCounter(prometheus.CounterOpts{
			Name: "attack_planner_plans_completed_total",
			Help: "Total number of plans generated successfully.",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "attack_planner_plans_failed_total",
			Help: "Total number of failed plan generations.",
		}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attack_planner_goals_rejected_total",
			Help: "Total number of goals rejected before generation, partitioned by reason.",
		}, []string{"reason"}),
		stages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attack_planner_stages_total",
			Help: "Progress stages reported, partitioned by stage number.",
		}, []string{"stage"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "attack_planner_generation_duration_seconds",
			Help:    "Duration of successful plan generations.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 90, 120},
		}),
	}
}

func (o *MetricsObserver) OnEvent(ctx context.Context, event PlanEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case PlanRequested:
		o.totalPlans++
		o.requested.Inc()
	case StageAdvanced:
		o.stages.WithLabelValues(strconv.Itoa(event.Stage)).Inc()
	case PlanCompleted:
		o.successfulPlans++
		o.totalProcessingTime += event.ProcessingTime
		o.completed.Inc()
		o.duration.Observe(event.ProcessingTime.Seconds())
	case PlanFailed:
		o.failedPlans++
		o.failed.Inc()
	case GoalRejected:
		o.rejectedGoals++
		o.rejected.WithLabelValues(event.Reason).Inc()
	}
}

func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics is the plan section of GET /stats.
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var avg time.Duration
	if o.successfulPlans > 0 {
		avg = o.totalProcessingTime / time.Duration(o.successfulPlans)
	}

	return map[string]interface{}{
		"total_plans":           o.totalPlans,
		"successful_plans":      o.successfulPlans,
		"failed_plans":          o.failedPlans,
		"rejected_goals":        o.rejectedGoals,
		"total_processing_time": o.totalProcessingTime,
		"avg_processing_time":   avg,
	}
}

// EventPublisher fans plan events out to its observers, each on its own
// goroutine, so a slow metrics sink never holds up a generation.
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	pending   sync.WaitGroup
}

func NewEventPublisher() *EventPublisher {
	return &EventPublisher{}
}

func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	p.observers = append(p.observers, observer)
	p.mu.Unlock()
}

// Unsubscribe drops the first observer registered under the same name.
func (p *EventPublisher) Unsubscribe(observer Observer) {
	name := observer.GetObserverName()

	p.mu.Lock()
	defer p.mu.Unlock()
	if i := slices.IndexFunc(p.observers, func(o Observer) bool { return o.GetObserverName() == name }); i >= 0 {
		p.observers = slices.Delete(p.observers, i, i+1)
	}
}

// NotifyObservers hands event to every observer without waiting for them.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PlanEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	targets := slices.Clone(p.observers)
	p.mu.RUnlock()

	// Observers must not see a cancelled request context after it returns.
	ctx = context.WithoutCancel(ctx)

	p.pending.Add(len(targets))
	for _, obs := range targets {
		go p.deliver(ctx, obs, event)
	}
}

func (p *EventPublisher) deliver(ctx context.Context, obs Observer, event PlanEvent) {
	defer p.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"observer":   obs.GetObserverName(),
				"event_type": event.EventType,
				"panic":      r,
			}).Error("Plan event observer panicked")
		}
	}()
	obs.OnEvent(ctx, event)
}

// Flush waits for every notification issued so far to be handled.
func (p *EventPublisher) Flush() {
	p.pending.Wait()
}
