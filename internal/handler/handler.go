package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"memorybook/internal/gate"
	"memorybook/internal/guestbook"
	"memorybook/internal/lookup"
)

// HealthFunc reports reachability of one collaborator. A nil HealthFunc
// means the collaborator is not in play for this deployment.
type HealthFunc func(ctx context.Context) bool

// Handler exposes the memorial site endpoints.
type Handler struct {
	lookup       *lookup.Service
	guestbook    *guestbook.Service
	pagePath     string
	storeHealthy HealthFunc
	redisHealthy HealthFunc
}

func New(lk *lookup.Service, gb *guestbook.Service, pagePath string, storeHealthy, redisHealthy HealthFunc) *Handler {
	if pagePath == "" {
		pagePath = "web/index.html"
	}
	return &Handler{
		lookup:       lk,
		guestbook:    gb,
		pagePath:     pagePath,
		storeHealthy: storeHealthy,
		redisHealthy: redisHealthy,
	}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	storeOK := h.storeHealthy == nil || h.storeHealthy(c.Request.Context())
	redisOK := h.redisHealthy == nil || h.redisHealthy(c.Request.Context())
	status := http.StatusOK
	if !storeOK || !redisOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "store": storeOK, "redis": redisOK})
}

// ---------- Page / guestbook feed ----------

// Root serves the memorial page, or the guestbook feed when the page script
// asks with ?action=getGuestbook.
func (h *Handler) Root(c *gin.Context) {
	if c.Query("action") == "getGuestbook" {
		c.JSON(http.StatusOK, h.guestbook.Recent(c.Request.Context()))
		return
	}
	c.File(h.pagePath)
}

// ---------- Guestbook submission ----------

// SubmitEntry accepts a JSON guestbook post and answers with the fixed
// {result: success|error} shape the page expects.
func (h *Handler) SubmitEntry(c *gin.Context) {
	var in guestbook.Submission
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"result": "error", "error": "invalid request body"})
		return
	}

	if _, err := h.guestbook.Submit(c.Request.Context(), in); err != nil {
		var vErr *guestbook.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"result": "error", "error": vErr.Message})
		case errors.Is(err, gate.ErrBusy):
			c.JSON(http.StatusServiceUnavailable, gin.H{"result": "error", "error": "Server is busy, please try again later."})
		default:
			log.Printf("handler: guestbook submit: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"result": "error", "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

// ---------- Student lookup ----------

// Student resolves a student ID to that student's private content. The
// outcome is tagged in the body, so the page script gets one response shape
// for success, not_found, and error alike.
func (h *Handler) Student(c *gin.Context) {
	res := h.lookup.FindStudent(c.Request.Context(), c.Query("id"))
	c.JSON(http.StatusOK, res)
}
