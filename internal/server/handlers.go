package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ca-recon-service/internal/reconciler"
	"ca-recon-service/pkg/errors"
	"ca-recon-service/pkg/logger"
)

// errorResponse is the JSON error envelope for all failed requests
type errorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// handleReconcile runs one reconciliation for the posted request body.
// Degraded inputs (missing files, malformed amounts) still produce a 200
// response; only an unreadable existing file or a bad body is an error.
func (s *Server) handleReconcile(c *gin.Context) {
	var request reconciler.Request
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:      "invalid request body: " + err.Error(),
			Code:       string(errors.CodeBadRequest),
			RequestID:  c.GetString("request_id"),
			Suggestion: "Send JSON with optional ledger, payments_file and payments fields",
		})
		return
	}

	result, err := s.service.ProcessReconciliation(c.Request.Context(), &request)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// writeError maps service errors onto HTTP statuses by category.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	response := errorResponse{
		Error:     err.Error(),
		RequestID: c.GetString("request_id"),
	}

	if recErr, ok := errors.AsReconcilerError(err); ok {
		response.Error = recErr.Message
		response.Code = string(recErr.Code)
		response.Suggestion = recErr.Suggestion

		switch recErr.Category {
		case errors.CategoryValidation, errors.CategoryParse:
			status = http.StatusBadRequest
		case errors.CategoryFile:
			status = http.StatusUnprocessableEntity
		}
	}

	s.logger.WithFields(logger.Fields{
		"request_id": c.GetString("request_id"),
		"status":     status,
	}).WithError(err).Error("Reconciliation request failed")

	c.JSON(status, response)
}
