package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clinical-reasoning-server/internal/audit"
	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/service"
)

// handleRoute classifies a normalized request as a simple action or a
// clinical pipeline run. Pure classification; the action itself is executed
// by the external collaborator.
func (s *Server) handleRoute(c *gin.Context) {
	var request domain.RouteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "invalid route request: " + err.Error(),
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}

	decision := s.toolRoute.Route(&request)
	c.JSON(http.StatusOK, decision)
}

type encounterResponse struct {
	Note     *domain.EnhancedSOAPNote `json:"note"`
	Markdown string                   `json:"markdown,omitempty"`
}

// handleProcessEncounter runs the full pipeline for one encounter and
// returns the assembled note. When the note repository is configured the
// note is also persisted for the approval workflow.
func (s *Server) handleProcessEncounter(c *gin.Context) {
	var encounter domain.EncounterCase
	if err := c.ShouldBindJSON(&encounter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "invalid encounter payload: " + err.Error(),
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}

	note, err := s.pipeline.ProcessEncounter(c.Request.Context(), &encounter)
	if err != nil {
		s.renderPipelineError(c, err)
		return
	}

	if s.notes != nil {
		if err := s.notes.Create(c.Request.Context(), note); err != nil {
			s.logger.WithError(err).WithField("note_id", note.NoteID).
				Warn("Failed to persist note for approval workflow")
		}
	}

	response := encounterResponse{Note: note}
	if c.Query("render") == "markdown" {
		response.Markdown = service.RenderMarkdown(note)
	}
	c.JSON(http.StatusOK, response)
}

// handleGetNote returns a persisted note by ID.
func (s *Server) handleGetNote(c *gin.Context) {
	if s.notes == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "note persistence is not configured"})
		return
	}

	note, err := s.notes.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "note not found"})
			return
		}
		s.renderPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

// handleSaveFeedback records the physician's approval decision for a note.
func (s *Server) handleSaveFeedback(c *gin.Context) {
	var approval domain.ApprovalFeedback
	if err := c.ShouldBindJSON(&approval); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feedback payload: " + err.Error()})
		return
	}
	approval.NoteID = c.Param("id")
	if approval.NoteID == "" || approval.EncounterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "note_id and encounter_id are required"})
		return
	}

	if err := s.flagStore.SaveApproval(c.Request.Context(), &approval); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          "failed to save feedback",
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}
	c.JSON(http.StatusOK, approval)
}

// handleGetFeedback returns the physician's recorded decision for a note.
func (s *Server) handleGetFeedback(c *gin.Context) {
	approval, err := s.flagStore.GetApproval(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no feedback recorded for note"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          "failed to load feedback",
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}
	c.JSON(http.StatusOK, approval)
}

// handleComplianceReport returns the aggregate compliance rate computed
// from persisted flags.
func (s *Server) handleComplianceReport(c *gin.Context) {
	limit := 20
	if raw := c.Query("recent"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			limit = parsed
		}
	}

	report, err := audit.BuildReport(c.Request.Context(), s.flagStore, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          "failed to build compliance report",
			"correlation_id": c.GetString("correlation_id"),
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

// renderPipelineError maps the pipeline error taxonomy to HTTP statuses
// with enough structure for a precise physician-facing message.
func (s *Server) renderPipelineError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := gin.H{
		"error":          err.Error(),
		"correlation_id": c.GetString("correlation_id"),
	}

	var pipelineErr *domain.PipelineError
	if errors.As(err, &pipelineErr) {
		body["code"] = pipelineErr.Code
		body["stage"] = pipelineErr.Stage
		if pipelineErr.EntityID != "" {
			body["entity_id"] = pipelineErr.EntityID
		}
		switch pipelineErr.Code {
		case domain.ErrInvalidInput:
			status = http.StatusBadRequest
		case domain.ErrUpstreamUnavailable, domain.ErrInsufficientOpinions:
			status = http.StatusBadGateway
		case domain.ErrConfiguration:
			status = http.StatusInternalServerError
		}
	}

	s.logger.WithError(err).WithField("status", status).Error("Encounter pipeline failed")
	c.JSON(status, body)
}
