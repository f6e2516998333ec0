package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/cogniscan/internal/visuals"
)

func (s *Server) SessionJSON(c *gin.Context) {
	sess, ok := workspaceOf(c).Session()
	c.JSON(http.StatusOK, gin.H{"signedIn": ok, "session": sess})
}

func (s *Server) StateJSON(c *gin.Context) {
	v := viewOf(c)
	c.JSON(http.StatusOK, gin.H{
		"snapshot":       v.Pipeline.Snapshot(),
		"canSubmit":      v.Pipeline.CanSubmit(),
		"canViewResults": v.Pipeline.CanViewResults(),
		"notices":        workspaceOf(c).TakeNotices(),
	})
}

func (s *Server) ResultsJSON(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	rp, ok := viewOf(c).Page(s.cfg.Results.PageSize, page)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No results yet"})
		return
	}
	c.JSON(http.StatusOK, rp)
}

func (s *Server) DistributionJSON(c *gin.Context) {
	batch := viewOf(c).Pipeline.Batch()
	if batch == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No results yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"generation":   batch.Generation,
		"total":        batch.Len(),
		"valid":        batch.ValidCount(),
		"distribution": batch.Distribution,
		"breakdowns":   batch.Breakdowns,
	})
}

func (s *Server) TrainingJSON(c *gin.Context) {
	v := viewOf(c)
	res := v.Trainer.Result()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No training result yet", "state": v.Trainer.State()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": v.Trainer.State(), "result": res})
}

// Events streams pipeline snapshots as server-sent events until the client
// goes away or the view is closed. An open stream keeps the workspace from
// being evicted as idle.
func (s *Server) Events(c *gin.Context) {
	w := workspaceOf(c)
	snapshots, cancel := viewOf(c).Pipeline.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return false
			}
			data, err := json.Marshal(snap)
			if err != nil {
				s.logger.Error("failed to encode snapshot", "error", err)
				return true
			}
			w.touch(s.Workspaces.now())
			c.SSEvent("state", string(data))
			return true
		case <-ping.C:
			w.touch(s.Workspaces.now())
			c.SSEvent("ping", `{"status":"alive","timestamp":"`+time.Now().Format(time.RFC3339)+`"}`)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// Visual serves the bytes behind a handle owned by the signed-in user.
func (s *Server) Visual(c *gin.Context) {
	h, ok := viewOf(c).Registry.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Visualization not found"})
		return
	}
	data, err := h.Bytes()
	if errors.Is(err, visuals.ErrReleased) {
		c.JSON(http.StatusGone, gin.H{"error": "Visualization released"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Visualization unavailable"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, h.ContentType(), data)
}
