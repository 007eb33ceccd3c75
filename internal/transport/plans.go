package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-attack-planner/internal/direction"
	apperrors "go-attack-planner/internal/errors"
	"go-attack-planner/internal/goal"
	"go-attack-planner/internal/imaging"
	"go-attack-planner/internal/logger"
	"go-attack-planner/internal/marker"
	"go-attack-planner/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type GoalRequest struct {
	Goal string `json:"goal"`
}

// GoalCheckResponse reports the outcome of the goal filters without
// generating anything.
type GoalCheckResponse struct {
	Valid      bool   `json:"valid"`
	Goal       string `json:"goal"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

type DirectionsRequest struct {
	Text string `json:"text" binding:"required"`
}

type DirectionsResponse struct {
	Directions direction.Set   `json:"directions"`
	Markers    []marker.Marker `json:"markers"`
}

func listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"presets": goal.Presets(),
		"default": goal.DefaultGoal(),
	})
}

func validateGoal(c *gin.Context) {
	var req GoalRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	resp := GoalCheckResponse{Valid: true, Goal: req.Goal}
	if err := goal.Validate(req.Goal); err != nil {
		resp.Valid = false
		if appErr, ok := apperrors.As(err); ok {
			resp.Reason = appErr.Reason
			resp.Message = appErr.Message
		}
		if resp.Reason == goal.ReasonOffTopic {
			resp.Suggestion, _ = goal.Suggest(req.Goal)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func parseDirections(c *gin.Context) {
	var req DirectionsRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}

	dirs := direction.Extract(req.Text)
	c.JSON(http.StatusOK, DirectionsResponse{
		Directions: dirs,
		Markers:    marker.Place(dirs),
	})
}

// createPlan runs a whole generation inside the request. Images come as
// multipart files named army and base, or as army_url and base_url references.
func (h *handler) createPlan(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	army, err := h.formImage(ctx, c, "army")
	if err != nil {
		c.Error(err)
		return
	}
	base, err := h.formImage(ctx, c, "base")
	if err != nil {
		c.Error(err)
		return
	}

	goalText, ok := c.GetPostForm("goal")
	if !ok {
		goalText = goal.DefaultGoal()
	}

	requestID := uuid.NewString()
	logger.ForRequest(requestID).WithFields(logrus.Fields{
		"goal": goalText,
		"ip":   c.ClientIP(),
	}).Info("Processing plan request")

	view, err := h.plans.Plan(ctx, requestID, models.PlanRequest{
		ArmyImage: army,
		BaseImage: base,
		Goal:      goalText,
	}, nil)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// formImage reads an uploaded file or, failing that, the matching _url field.
// A missing image is not an error here; the plan service reports it.
func (h *handler) formImage(ctx context.Context, c *gin.Context, name string) (imaging.Image, error) {
	fh, err := c.FormFile(name)
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return imaging.Image{}, apperrors.NewInputError("failed to read "+name+" image", err)
		}
		defer f.Close()
		return h.resolver.Decoder().FromReader(name, f)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return imaging.Image{}, apperrors.NewInputError("invalid request format", err)
	}

	if ref := strings.TrimSpace(c.PostForm(name + "_url")); ref != "" {
		return h.resolver.Resolve(ctx, name, ref)
	}
	return imaging.Image{}, nil
}
