package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/agenthands/beacon/internal/core"
	"github.com/agenthands/beacon/internal/core/ingest"
	"github.com/agenthands/beacon/internal/core/registry"
	"github.com/agenthands/beacon/internal/core/survey"
	"github.com/gin-gonic/gin"
)

type Server struct {
	Pipeline *core.Pipeline
}

func NewServer(p *core.Pipeline) *Server {
	return &Server{Pipeline: p}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()
	// event and concept uris arrive path-escaped
	r.UseRawPath = true
	r.UnescapePathValues = true

	r.POST("/sync", s.Sync)
	r.POST("/publish", s.Publish)
	r.POST("/run", s.Run)
	r.GET("/events/:uri/score", s.Score)
	r.POST("/events/:uri/novelty", s.Novelty)
	r.POST("/concepts/approve", s.ApproveConcept)
	r.POST("/categories/approve", s.ApproveCategory)
	r.POST("/survey", s.Survey)

	return r
}

type SyncRequest struct {
	Concepts     []string `json:"concepts"`
	Categories   []string `json:"categories"`
	BackfillDays int      `json:"backfill_days"`
	Force        bool     `json:"force"`
	Trials       bool     `json:"trials"`
}

func (s *Server) Sync(c *gin.Context) {
	var req SyncRequest
	if err := bindOptional(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	opts := ingest.Options{Categories: req.Categories, BackfillDays: req.BackfillDays, Force: req.Force}
	syncFn := s.Pipeline.Sync
	if req.Trials {
		syncFn = s.Pipeline.SyncTrials
	}
	res, err := syncFn(c.Request.Context(), req.Concepts, opts)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync"})
		return
	}

	fresh := make([]string, 0, len(res.New))
	for _, e := range res.New {
		fresh = append(fresh, e.URI)
	}
	c.JSON(http.StatusOK, gin.H{"events": len(res.All), "new": fresh})
}

type PublishRequest struct {
	Threshold float64 `json:"threshold"`
	MaxPosts  int     `json:"max_posts"`
}

func (s *Server) Publish(c *gin.Context) {
	var req PublishRequest
	if err := bindOptional(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	report, err := s.Pipeline.Publish(c.Request.Context(), req.Threshold, req.MaxPosts)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "publish failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to publish", "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) Run(c *gin.Context) {
	var req core.RunOptions
	if err := bindOptional(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	report, err := s.Pipeline.Run(c.Request.Context(), req)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run", "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) Score(c *gin.Context) {
	score, err := s.Pipeline.Score(c.Request.Context(), c.Param("uri"))
	if err != nil {
		s.fail(c, "score", err)
		return
	}
	c.JSON(http.StatusOK, score)
}

func (s *Server) Novelty(c *gin.Context) {
	e, important, err := s.Pipeline.EvaluateNovelty(c.Request.Context(), c.Param("uri"))
	if err != nil {
		s.fail(c, "novelty", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uri": e.URI, "important": important, "bullets": e.Bullets})
}

type ApproveRequest struct {
	URI      string `json:"uri" binding:"required"`
	Approved *bool  `json:"approved"`
}

func (r ApproveRequest) approved() bool {
	return r.Approved == nil || *r.Approved
}

func (s *Server) ApproveConcept(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	concept, err := s.Pipeline.Concepts.Approve(c.Request.Context(), req.URI, req.approved())
	if err != nil {
		s.fail(c, "approve concept", err)
		return
	}
	c.JSON(http.StatusOK, concept)
}

func (s *Server) ApproveCategory(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	category, err := s.Pipeline.Categories.Approve(c.Request.Context(), req.URI, req.approved())
	if err != nil {
		s.fail(c, "approve category", err)
		return
	}
	c.JSON(http.StatusOK, category)
}

type SurveyRequest struct {
	Question string `json:"question" binding:"required"`
}

func (s *Server) Survey(c *gin.Context) {
	var req SurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := s.Pipeline.Surveyor.Ask(c.Request.Context(), req.Question)
	if err != nil {
		s.fail(c, "survey", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, core.ErrEventNotFound), errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, survey.ErrNoProperty):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), op+" failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + op})
	}
}

// bindOptional binds a JSON body when there is one.
func bindOptional(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(v)
}
