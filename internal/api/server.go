// Package api exposes the triage core over HTTP: submit a questionnaire
// completion, fetch diagnostic records, and list the (optionally
// patient-friendly) question bank.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kccq-triage-server/internal/domain"
	"github.com/kccq-triage-server/internal/questionbank"
	"github.com/kccq-triage-server/internal/service"
	"github.com/kccq-triage-server/pkg/llm"
)

// Server represents the HTTP server.
type Server struct {
	cfg      domain.ServerConfig
	pipeline *service.Pipeline
	bank     *questionbank.Bank
	adapter  *service.QuestionAdapter
	gateway  *llm.Gateway
	store    domain.RecordStore
	log      *logrus.Logger
	router   *gin.Engine
	server   *http.Server
}

// NewServer creates a new HTTP server instance.
func NewServer(
	cfg domain.ServerConfig,
	pipeline *service.Pipeline,
	bank *questionbank.Bank,
	adapter *service.QuestionAdapter,
	gateway *llm.Gateway,
	store domain.RecordStore,
	logger *logrus.Logger,
) *Server {
	if logger.GetLevel() == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		bank:     bank,
		adapter:  adapter,
		gateway:  gateway,
		store:    store,
		log:      logger,
		router:   router,
	}
	s.setupRoutes()
	return s
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/assessments", s.handleSubmitAssessment)
		v1.GET("/assessments/:id", s.handleGetAssessment)
		v1.GET("/patients/:ref/assessments", s.handleListPatientAssessments)
		v1.GET("/questions", s.handleListQuestions)
	}
}

type responsePayload struct {
	QuestionID      int `json:"question_id"`
	SelectedOrdinal int `json:"selected_ordinal"`
}

type submitRequest struct {
	PatientRef string            `json:"patient_ref"`
	Responses  []responsePayload `json:"responses"`
}

// handleSubmitAssessment runs the diagnostic pipeline for one questionnaire
// completion. Invalid submissions get 400 before any record exists; a
// degraded enrichment is still a 201 with the failure reason on the record.
func (s *Server) handleSubmitAssessment(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	responses := make([]domain.Response, len(req.Responses))
	for i, r := range req.Responses {
		responses[i] = domain.Response{QuestionID: r.QuestionID, SelectedOrdinal: r.SelectedOrdinal}
	}

	record, err := s.pipeline.Submit(c.Request.Context(), req.PatientRef, responses)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "validation failed",
				"field":  vErr.Field,
				"detail": vErr.Message,
			})
			return
		}
		s.log.WithError(err).Error("Submission failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, record)
}

// handleGetAssessment returns a single diagnostic record.
func (s *Server) handleGetAssessment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	record, err := s.pipeline.Fetch(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		s.log.WithError(err).Error("Record fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// handleListPatientAssessments returns a patient's records, newest first.
func (s *Server) handleListPatientAssessments(c *gin.Context) {
	records, err := s.pipeline.History(c.Request.Context(), c.Param("ref"), 50)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message})
			return
		}
		s.log.WithError(err).Error("History fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if records == nil {
		records = []*domain.DiagnosticRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

type questionView struct {
	ID      int                  `json:"id"`
	Domain  string               `json:"domain"`
	Text    string               `json:"text"`
	Adapted bool                 `json:"adapted"`
	Scale   []domain.ScaleOption `json:"response_scale"`
}

// handleListQuestions returns the instrument items in canonical order. With
// ?adapted=true each item is rewritten into patient-friendly phrasing; a
// gateway failure falls back to the canonical text for that item.
func (s *Server) handleListQuestions(c *gin.Context) {
	adapted := c.Query("adapted") == "true"

	items := s.bank.List()
	views := make([]questionView, len(items))
	for i, q := range items {
		view := questionView{
			ID:     q.ID,
			Domain: q.Domain.String(),
			Text:   q.CanonicalText,
			Scale:  q.Scale,
		}
		if adapted {
			text, err := s.adapter.Adapt(c.Request.Context(), q)
			if err != nil {
				s.log.WithError(err).WithField("question_id", q.ID).
					Warn("Question adaptation failed, using canonical text")
			} else {
				view.Text = text
				view.Adapted = true
			}
		}
		views[i] = view
	}

	c.JSON(http.StatusOK, gin.H{
		"version":   questionbank.Version,
		"questions": views,
	})
}

// handleHealth reports store connectivity and the gateway breaker state.
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	storeStatus := "healthy"
	if err := s.store.Health(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		storeStatus = "unavailable"
	}

	c.JSON(status, gin.H{
		"status":    storeStatus,
		"gateway":   s.gateway.BreakerState().String(),
		"timestamp": time.Now().UTC(),
	})
}

// corsMiddleware adds CORS headers to responses.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware adds a unique request ID to each request.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
