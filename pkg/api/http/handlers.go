package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aescanero/challenge/internal/application/challenge"
	"github.com/aescanero/challenge/internal/application/workers"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	snap := s.pool.Snapshot()

	if snap.Saturated() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "degraded",
			"timestamp": snap.Timestamp,
			"checks": gin.H{
				"pool": "saturated",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": snap.Timestamp,
		"checks": gin.H{
			"pool": "ok",
		},
	})
}

// handleListChallenges handles listing all challenges
func (s *Server) handleListChallenges(c *gin.Context) {
	result, err := s.execute(c, func(ctx context.Context) (interface{}, error) {
		return s.challenges.ListAll(ctx)
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleGetChallenge handles getting a challenge by id
func (s *Server) handleGetChallenge(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Challenge not found",
				Details: "id must be an integer",
			},
		})
		return
	}

	result, err := s.execute(c, func(ctx context.Context) (interface{}, error) {
		items, err := s.challenges.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, challenge.ErrNotFound
		}
		return items, nil
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handlePoolStatus returns the current worker pool snapshot
func (s *Server) handlePoolStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.pool.Snapshot())
}

// execute submits task to the pool and waits for it with the request
// context. A client that goes away stops the wait, not the task. The task
// keeps the pool's context for cancellation and only inherits the request
// span as its trace parent.
func (s *Server) execute(c *gin.Context, task workers.Task) (interface{}, error) {
	parent := trace.SpanContextFromContext(c.Request.Context())

	future, err := s.pool.Submit(func(ctx context.Context) (interface{}, error) {
		return task(trace.ContextWithSpanContext(ctx, parent))
	})
	if err != nil {
		if errors.Is(err, workers.ErrPoolSaturated) && s.metrics != nil {
			s.metrics.RecordRejection()
		}
		return nil, err
	}

	return future.Wait(c.Request.Context())
}

// writeError maps handler errors onto HTTP responses
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	detail := ErrorDetail{Code: "INTERNAL", Message: "Internal server error"}

	switch {
	case errors.Is(err, challenge.ErrNotFound):
		status = http.StatusNotFound
		detail = ErrorDetail{Code: "NOT_FOUND", Message: "Challenge not found"}
	case errors.Is(err, workers.ErrPoolSaturated):
		status = http.StatusServiceUnavailable
		detail = ErrorDetail{Code: "POOL_SATURATED", Message: "Worker pool is saturated, try again later"}
	case errors.Is(err, workers.ErrPoolClosed):
		status = http.StatusServiceUnavailable
		detail = ErrorDetail{Code: "SHUTTING_DOWN", Message: "Server is shutting down"}
	case errors.Is(err, challenge.ErrInterrupted):
		status = http.StatusServiceUnavailable
		detail = ErrorDetail{Code: "INTERRUPTED", Message: "Request was interrupted"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		detail = ErrorDetail{Code: "CANCELLED", Message: "Request was cancelled"}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}

	c.JSON(status, ErrorResponse{Error: detail})
}
