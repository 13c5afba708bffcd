package api

import (
	"errors"
	"net/http"

	"shortsfactory/jobs"
	"shortsfactory/types"

	"github.com/gin-gonic/gin"
)

// JobService is the part of the job manager the API needs.
type JobService interface {
	Submit(job types.Job) (types.JobStatus, error)
	Get(id string) (types.JobStatus, error)
	List() ([]types.JobStatus, error)
	Cancel(id string) (types.JobStatus, error)
}

// RegisterJobRoutes registers job endpoints.
func RegisterJobRoutes(r *gin.Engine, svc JobService) {
	h := &jobsController{jobs: svc}
	g := r.Group("/api/jobs")
	g.POST("", h.handleSubmit)
	g.GET("", h.handleList)
	g.GET("/:id", h.handleGet)
	g.DELETE("/:id", h.handleCancel)
	g.GET("/:id/video", h.handleVideo)
}

type jobsController struct {
	jobs JobService
}

// SubmitJobRequest is the body of POST /api/jobs.
type SubmitJobRequest struct {
	Topic        string `json:"topic" binding:"required"`
	DurationHint int    `json:"duration_hint" binding:"required"`
	Style        string `json:"style"`
	Publish      bool   `json:"publish"`
	ImageMode    string `json:"image_mode"`
	SceneCount   int    `json:"scene_count"`
	SourceURL    string `json:"source_url"`
	Privacy      string `json:"privacy"`
}

func (r SubmitJobRequest) job() types.Job {
	return types.Job{
		Topic:        r.Topic,
		DurationHint: r.DurationHint,
		Style:        types.Style(r.Style),
		Publish:      r.Publish,
		ImageMode:    types.ImageMode(r.ImageMode),
		SceneCount:   r.SceneCount,
		SourceURL:    r.SourceURL,
		Privacy:      r.Privacy,
	}
}

// handleSubmit queues a job and returns 202 with its pending status.
func (h *jobsController) handleSubmit(c *gin.Context) {
	var req SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, err := h.jobs.Submit(req.job())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Header("Location", "/api/jobs/"+st.ID)
	c.JSON(http.StatusAccepted, st)
}

func (h *jobsController) handleList(c *gin.Context) {
	list, err := h.jobs.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs: " + err.Error()})
		return
	}
	if state := c.Query("state"); state != "" {
		filtered := list[:0]
		for _, st := range list {
			if string(st.State) == state {
				filtered = append(filtered, st)
			}
		}
		list = filtered
	}
	c.JSON(http.StatusOK, gin.H{"jobs": list, "count": len(list)})
}

func (h *jobsController) handleGet(c *gin.Context) {
	st, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

// handleCancel cancels a job that has not committed its video yet.
func (h *jobsController) handleCancel(c *gin.Context) {
	st, err := h.jobs.Cancel(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "job": st})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancel requested", "job": st})
}

// handleVideo streams the committed video file.
func (h *jobsController) handleVideo(c *gin.Context) {
	st, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if !st.Committed || st.Artifact == nil || st.Artifact.Path == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "video not ready", "state": st.State})
		return
	}
	c.FileAttachment(st.Artifact.Path, st.ID+".mp4")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrInvalidJob):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrTooManyJobs):
		return http.StatusTooManyRequests
	case errors.Is(err, jobs.ErrAlreadyCommitted), errors.Is(err, jobs.ErrJobFinished):
		return http.StatusConflict
	case errors.Is(err, jobs.ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
