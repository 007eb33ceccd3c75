package transport

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "go-attack-planner/internal/errors"
	"go-attack-planner/internal/imaging"
	"go-attack-planner/internal/marker"
	"go-attack-planner/internal/session"

	"github.com/gin-gonic/gin"
)

type ImageRefRequest struct {
	URL string `json:"url" binding:"required"`
}

func (h *handler) createSession(c *gin.Context) {
	c.JSON(http.StatusCreated, h.sessions.Create())
}

func (h *handler) getSession(c *gin.Context) {
	snap, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handler) deleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// putImage accepts a multipart "image" file, a JSON {"url"} reference or the
// raw image bytes as the body.
func (h *handler) putImage(c *gin.Context) {
	slot, err := session.ParseSlot(c.Param("slot"))
	if err != nil {
		c.Error(err)
		return
	}

	img, err := h.requestImage(c, string(slot))
	if err != nil {
		c.Error(err)
		return
	}

	snap, err := h.sessions.SetImage(c.Param("id"), slot, img)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handler) requestImage(c *gin.Context, name string) (imaging.Image, error) {
	decoder := h.resolver.Decoder()

	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm:
		fh, err := c.FormFile("image")
		if err != nil {
			return imaging.Image{}, apperrors.NewInputError("multipart upload must contain an image file", err)
		}
		f, err := fh.Open()
		if err != nil {
			return imaging.Image{}, apperrors.NewInputError("failed to read "+name+" image", err)
		}
		defer f.Close()
		return decoder.FromReader(name, f)

	case gin.MIMEJSON:
		var req ImageRefRequest
		if err := bindJSON(c, &req); err != nil {
			return imaging.Image{}, err
		}
		ctx := c.Request.Context()
		return h.resolver.Resolve(ctx, name, strings.TrimSpace(req.URL))

	default:
		return decoder.FromReader(name, c.Request.Body)
	}
}

func (h *handler) getImage(c *gin.Context) {
	slot, err := session.ParseSlot(c.Param("slot"))
	if err != nil {
		c.Error(err)
		return
	}
	img, err := h.sessions.Image(c.Param("id"), slot)
	if err != nil {
		c.Error(err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, img.MIMEType, img.Data)
}

func (h *handler) deleteImage(c *gin.Context) {
	slot, err := session.ParseSlot(c.Param("slot"))
	if err != nil {
		c.Error(err)
		return
	}
	snap, err := h.sessions.ClearImage(c.Param("id"), slot)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handler) putGoal(c *gin.Context) {
	var req GoalRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	snap, err := h.sessions.SetGoal(c.Param("id"), req.Goal)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// generate starts the background generation and answers 202 with the
// analyzing snapshot; progress is read from events or by polling.
func (h *handler) generate(c *gin.Context) {
	snap, err := h.sessions.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, snap)
}

func (h *handler) reset(c *gin.Context) {
	snap, err := h.sessions.Reset(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// events streams snapshots as server-sent events. The stream ends once no
// generation is running, or right after the first event if none was.
func (h *handler) events(c *gin.Context) {
	id := c.Param("id")
	updates, cancel, err := h.sessions.Subscribe(id)
	if err != nil {
		c.Error(err)
		return
	}
	defer cancel()

	last, err := h.sessions.Get(id)
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(s session.Snapshot) {
		c.SSEvent("snapshot", s)
		c.Writer.Flush()
	}
	send(last)
	if !last.Generating {
		return
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			// Changes queued before the initial read are already reflected in it.
			if s.UpdatedAt.Before(last.UpdatedAt) {
				continue
			}
			last = s
			send(s)
			if !s.Generating {
				return
			}
		}
	}
}

func (h *handler) overlay(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		c.Error(apperrors.NewNotFoundError(fmt.Sprintf("Invalid phase %q", c.Param("n")), err))
		return
	}

	snap, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	if snap.Result == nil {
		c.Error(apperrors.NewNotFoundError("No plan has been generated for this session", nil))
		return
	}
	phase, ok := snap.Result.Phase(n)
	if !ok {
		c.Error(apperrors.NewNotFoundError(fmt.Sprintf("Phase %d does not exist", n), nil))
		return
	}

	html, err := marker.RenderOverlay(phase.PhaseName, phase.Markers)
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to render overlay", err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
