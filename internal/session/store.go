// Package session keeps the per-user planning state on the server: the two
// uploaded screenshots, the goal, the progress of the current generation and
// the last result.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "go-attack-planner/internal/errors"
	"go-attack-planner/internal/goal"
	"go-attack-planner/internal/imaging"
	"go-attack-planner/internal/logger"
	"go-attack-planner/internal/planner"
	"go-attack-planner/internal/service"
	"go-attack-planner/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Status is the presentation state of a session
type Status string

const (
	StatusIdle      Status = "idle"
	StatusAnalyzing Status = "analyzing"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// Slot names one of the two image inputs
type Slot string

const (
	SlotArmy Slot = "army"
	SlotBase Slot = "base"
)

// ParseSlot validates a slot name taken from a request path.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotArmy, SlotBase:
		return Slot(s), nil
	}
	return "", apperrors.NewNotFoundError(fmt.Sprintf("Unknown image slot %q", s), nil)
}

// Runner executes generation jobs in the background; *worker.Pool is the
// production implementation.
type Runner interface {
	Submit(job func()) bool
}

// ImageInfo describes a stored image without its bytes.
type ImageInfo struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Snapshot is a copy of a session's state at one point in time.
type Snapshot struct {
	ID         string            `json:"id"`
	Status     Status            `json:"status"`
	Stage      int               `json:"stage"`
	StageLabel string            `json:"stageLabel,omitempty"`
	Goal       string            `json:"goal"`
	ArmyImage  *ImageInfo        `json:"armyImage,omitempty"`
	BaseImage  *ImageInfo        `json:"baseImage,omitempty"`
	Result     *service.PlanView `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
	Generating bool              `json:"generating"`
	CanSubmit  bool              `json:"canSubmit"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Stats summarizes the store
type Stats struct {
	Sessions   int   `json:"sessions"`
	InFlight   int   `json:"in_flight"`
	ImageBytes int64 `json:"image_bytes"`
}

// Options tunes a Store; zero values use defaults.
type Options struct {
	TTL               time.Duration
	GenerationTimeout time.Duration
	JanitorInterval   time.Duration
	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

type session struct {
	id       string
	images   map[Slot]imaging.Image
	goal     string
	status   Status
	stage    planner.Stage
	result   *service.PlanView
	err      string
	inFlight bool
	// epoch changes on reset so a generation that finishes afterwards is ignored.
	epoch       uint64
	lastSeen    time.Time
	updated     time.Time
	subscribers map[chan Snapshot]struct{}
}

// Store holds sessions in memory. It is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*session
	imageBytes int64

	plans  service.PlanService
	runner Runner
	opts   Options

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewStore creates a store and starts its expiry janitor. Close stops it.
func NewStore(plans service.PlanService, runner Runner, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 2 * time.Minute
	}
	if opts.JanitorInterval <= 0 {
		opts.JanitorInterval = opts.TTL / 4
		if opts.JanitorInterval > time.Minute {
			opts.JanitorInterval = time.Minute
		}
		if opts.JanitorInterval < time.Second {
			opts.JanitorInterval = time.Second
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		sessions: make(map[string]*session),
		plans:    plans,
		runner:   runner,
		opts:     opts,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Create starts a new idle session with the default goal.
func (s *Store) Create() Snapshot {
	now := s.opts.Now()
	sess := &session{
		id:          uuid.NewString(),
		images:      make(map[Slot]imaging.Image, 2),
		goal:        goal.DefaultGoal(),
		status:      StatusIdle,
		lastSeen:    now,
		updated:     now,
		subscribers: make(map[chan Snapshot]struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
	return s.snapshotLocked(sess)
}

// Get returns the current state of a session.
func (s *Store) Get(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshotLocked(sess), nil
}

// SetImage stores img in slot, releasing whatever was there before.
func (s *Store) SetImage(id string, slot Slot, img imaging.Image) (Snapshot, error) {
	if img.IsZero() {
		return Snapshot{}, apperrors.NewInputError(fmt.Sprintf("%s image is empty", slot), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.releaseLocked(sess, slot)
	sess.images[slot] = img
	s.imageBytes += img.Size()
	return s.changedLocked(sess), nil
}

// ClearImage removes the image in slot.
func (s *Store) ClearImage(id string, slot Slot) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.releaseLocked(sess, slot)
	return s.changedLocked(sess), nil
}

// Image returns the stored image for previews.
func (s *Store) Image(id string, slot Slot) (imaging.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(id)
	if err != nil {
		return imaging.Image{}, err
	}
	img, ok := sess.images[slot]
	if !ok {
		return imaging.Image{}, apperrors.NewNotFoundError(fmt.Sprintf("No %s image uploaded", slot), nil)
	}
	return img, nil
}

// SetGoal replaces the goal text. It is validated on Generate, not here.
func (s *Store) SetGoal(id, goalText string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.goal = goalText
	return s.changedLocked(sess), nil
}

// Generate starts a plan generation in the background and returns the
// analyzing snapshot. It is refused while a generation for the same session
// is still running, including one whose result a Reset already discarded.
func (s *Store) Generate(ctx context.Context, id string) (Snapshot, error) {
	s.mu.Lock()
	sess, err := s.lookupLocked(id)
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	if sess.inFlight {
		s.mu.Unlock()
		return Snapshot{}, apperrors.NewConflictError("A plan is already being generated for this session.", nil)
	}

	req := models.PlanRequest{
		ArmyImage: sess.images[SlotArmy],
		BaseImage: sess.images[SlotBase],
		Goal:      sess.goal,
	}
	if err := s.plans.Check(ctx, id, req); err != nil {
		s.rejectLocked(sess, err)
		s.mu.Unlock()
		return Snapshot{}, err
	}

	sess.inFlight = true
	sess.status = StatusAnalyzing
	sess.stage = planner.StagePreparing
	sess.result = nil
	sess.err = ""
	epoch := sess.epoch
	snap := s.changedLocked(sess)
	s.mu.Unlock()

	// Generation outlives the request that started it.
	genCtx := context.WithoutCancel(ctx)
	accepted := s.runner.Submit(func() {
		s.run(genCtx, id, epoch, req)
	})
	if !accepted {
		err := apperrors.NewInternalError("Plan generation is unavailable while the service shuts down", nil)
		s.finish(id, epoch, nil, err)
		return Snapshot{}, err
	}
	return snap, nil
}

// Reset clears the images, result and error and returns the session to idle.
// The goal is kept. A generation still running is not aborted; its result is
// dropped when it arrives.
func (s *Store) Reset(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.releaseLocked(sess, SlotArmy)
	s.releaseLocked(sess, SlotBase)
	sess.result = nil
	sess.err = ""
	sess.status = StatusIdle
	sess.stage = planner.StagePreparing
	sess.epoch++
	return s.changedLocked(sess), nil
}

// Delete removes a session and releases its images.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(id)
	if err != nil {
		return err
	}
	s.removeLocked(sess)
	return nil
}

// Subscribe returns a channel receiving a snapshot after every change, plus a
// cancel func. The channel is closed when the session goes away. Slow
// readers only miss intermediate snapshots, never the latest one.
func (s *Store) Subscribe(id string) (<-chan Snapshot, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookupLocked(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan Snapshot, 8)
	sess.subscribers[ch] = struct{}{}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := sess.subscribers[ch]; ok {
			delete(sess.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

// Stats returns counts for the stats endpoint.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Sessions: len(s.sessions), ImageBytes: s.imageBytes}
	for _, sess := range s.sessions {
		if sess.inFlight {
			st.InFlight++
		}
	}
	return st
}

// Close stops the janitor and releases every session.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done

		s.mu.Lock()
		defer s.mu.Unlock()
		for _, sess := range s.sessions {
			s.removeLocked(sess)
		}
	})
}

func (s *Store) run(ctx context.Context, id string, epoch uint64, req models.PlanRequest) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()

	view, err := s.plans.Plan(ctx, id, req, func(stage planner.Stage) {
		s.progress(id, epoch, stage)
	})
	s.finish(id, epoch, view, err)
}

func (s *Store) progress(id string, epoch uint64, stage planner.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.epoch != epoch || stage < sess.stage {
		return
	}
	sess.stage = stage
	s.changedLocked(sess)
}

func (s *Store) finish(id string, epoch uint64, view *service.PlanView, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.inFlight = false

	if sess.epoch != epoch {
		logger.ForSession(id).Debug("Discarding result of a reset session")
		s.changedLocked(sess)
		return
	}

	if err != nil {
		sess.status = StatusError
		sess.err = errorMessage(err)
		sess.result = nil
	} else {
		sess.status = StatusSuccess
		sess.result = view
		sess.err = ""
	}
	s.changedLocked(sess)
}

// rejectLocked records a refused submission the way the form shows it: the
// message is always kept, and the keyword filters also flip the status.
func (s *Store) rejectLocked(sess *session, err error) {
	sess.err = errorMessage(err)
	if appErr, ok := apperrors.As(err); ok {
		switch appErr.Reason {
		case goal.ReasonContentPolicy, goal.ReasonOffTopic:
			sess.status = StatusError
		}
	}
	s.changedLocked(sess)
}

func (s *Store) lookupLocked(id string) (*session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Session not found", nil)
	}
	sess.lastSeen = s.opts.Now()
	return sess, nil
}

func (s *Store) releaseLocked(sess *session, slot Slot) {
	if old, ok := sess.images[slot]; ok {
		s.imageBytes -= old.Size()
		delete(sess.images, slot)
	}
}

func (s *Store) removeLocked(sess *session) {
	s.releaseLocked(sess, SlotArmy)
	s.releaseLocked(sess, SlotBase)
	for ch := range sess.subscribers {
		close(ch)
	}
	sess.subscribers = map[chan Snapshot]struct{}{}
	delete(s.sessions, sess.id)
}

// changedLocked stamps the session, notifies subscribers and returns the new snapshot.
func (s *Store) changedLocked(sess *session) Snapshot {
	sess.updated = s.opts.Now()
	snap := s.snapshotLocked(sess)
	for ch := range sess.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest queued snapshot to make room for the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	return snap
}

func (s *Store) snapshotLocked(sess *session) Snapshot {
	snap := Snapshot{
		ID:         sess.id,
		Status:     sess.status,
		Goal:       sess.goal,
		Result:     sess.result,
		Error:      sess.err,
		Generating: sess.inFlight,
		UpdatedAt:  sess.updated,
	}
	if sess.status == StatusAnalyzing {
		snap.Stage = int(sess.stage)
		snap.StageLabel = sess.stage.Label()
	}
	if img, ok := sess.images[SlotArmy]; ok {
		snap.ArmyImage = &ImageInfo{Name: img.Name, MIMEType: img.MIMEType, Size: img.Size()}
	}
	if img, ok := sess.images[SlotBase]; ok {
		snap.BaseImage = &ImageInfo{Name: img.Name, MIMEType: img.MIMEType, Size: img.Size()}
	}
	snap.CanSubmit = snap.ArmyImage != nil && snap.BaseImage != nil && !sess.inFlight
	return snap
}

func (s *Store) janitor() {
	defer close(s.done)
	ticker := time.NewTicker(s.opts.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.expire()
		}
	}
}

// expire drops idle sessions; sessions with a running generation are kept
// until it finishes.
func (s *Store) expire() int {
	now := s.opts.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for _, sess := range s.sessions {
		if sess.inFlight || now.Sub(sess.lastSeen) < s.opts.TTL {
			continue
		}
		s.removeLocked(sess)
		expired++
	}
	if expired > 0 {
		logger.WithFields(logrus.Fields{
			"expired":  expired,
			"sessions": len(s.sessions),
		}).Info("Expired idle sessions")
	}
	return expired
}

func errorMessage(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return "An unexpected error occurred."
}
