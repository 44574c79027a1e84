package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tomatolover555/windrose-ai/internal/domain"
	"github.com/tomatolover555/windrose-ai/internal/engine"
	"github.com/tomatolover555/windrose-ai/internal/query"
	"github.com/tomatolover555/windrose-ai/internal/submission"
	"github.com/tomatolover555/windrose-ai/internal/types"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleQuery(c *gin.Context) {
	var req query.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request: " + err.Error()})
		return
	}
	s.search(c, req)
}

// handleList is the query-string form of handleQuery:
// ?q=&status=&type=a,b&min_confidence=&limit=
func (s *Server) handleList(c *gin.Context) {
	req := query.Request{
		Query:   c.Query("q"),
		Filters: query.Filters{Status: types.Status(c.Query("status"))},
	}
	for _, raw := range c.QueryArray("type") {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				req.Filters.Type = append(req.Filters.Type, types.ItemType(t))
			}
		}
	}

	var err error
	if v := c.Query("min_confidence"); v != "" {
		if req.Filters.MinConfidence, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request: min_confidence must be an integer"})
			return
		}
	}
	if v := c.Query("limit"); v != "" {
		if req.Limit, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request: limit must be an integer"})
			return
		}
	}
	s.search(c, req)
}

func (s *Server) search(c *gin.Context, req query.Request) {
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap := s.directory.Current()
	c.JSON(http.StatusOK, query.Search(snap.Items, req))
}

func (s *Server) handleItem(c *gin.Context) {
	host, err := domain.Normalize(c.Param("domain"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, ok := s.directory.Current().Find(host)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "domain": host})
		return
	}
	c.JSON(http.StatusOK, item)
}

type submitRequest struct {
	Domain   string `json:"domain" binding:"required"`
	ProofURL string `json:"proof_url"`
	Notes    string `json:"notes"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.RecordSubmission("invalid")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request: " + err.Error()})
		return
	}

	sub, err := s.submissions.Submit(req.Domain, req.ProofURL, req.Notes)
	switch {
	case errors.Is(err, submission.ErrQueueFull):
		s.metrics.RecordSubmission("queue_full")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.metrics.RecordSubmission("invalid")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.metrics.RecordSubmission("accepted")
	log.WithFields(log.Fields{"id": sub.ID, "domain": sub.Domain}).Info("Submission queued")
	c.JSON(http.StatusAccepted, sub)
}

func (s *Server) handleStat(c *gin.Context) {
	snap := s.directory.Current()

	response := gin.H{
		"total_items":   len(snap.Items),
		"status_counts": engine.CountStatuses(snap.Items),
		"updated":       snap.UpdatedAt.Format(time.RFC3339),
		"run_active":    s.runs.Running(),
		"pending":       s.submissions.Len(),
	}
	if report, ok := s.runs.LastReport(); ok {
		response["last_run"] = report
		response["last_run_duration_ms"] = report.Duration().Milliseconds()
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) handleReload(c *gin.Context) {
	if !s.runs.Trigger() {
		c.JSON(http.StatusConflict, gin.H{
			"error": "run already in progress",
		})
		return
	}

	log.Info("Manual run triggered via API")
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Run triggered",
	})
}
