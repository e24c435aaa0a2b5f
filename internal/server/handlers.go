package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mira/internal/media"
)

// APIResponse is the uniform envelope for JSON endpoints.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type processMediaRequest struct {
	Data           string `json:"data" binding:"required"`
	FileName       string `json:"file_name"`
	Kind           string `json:"kind" binding:"required"`
	ProjectID      string `json:"project_id"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleProcessMedia(c *gin.Context) {
	var req processMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   fmt.Sprintf("invalid request: %v", err),
		})
		return
	}

	payload, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   "data must be base64 encoded",
		})
		return
	}
	if len(payload) == 0 {
		c.JSON(http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   "media payload is empty",
		})
		return
	}

	mediaCtx := media.Context{
		ProjectID:      req.ProjectID,
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
	}
	file := media.File{Bytes: payload, OriginalName: req.FileName}

	result, err := s.pipeline.ProcessMedia(c.Request.Context(), file, media.Kind(req.Kind), mediaCtx)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedKind) {
			c.JSON(http.StatusBadRequest, APIResponse{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
		s.logger.Error("media processing failed",
			slog.String("kind", req.Kind),
			slog.String("file", req.FileName),
			slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, APIResponse{
			Success: false,
			Error:   fmt.Sprintf("analysis failed: %v", err),
		})
		return
	}

	s.hub.broadcast(mediaEvent{
		Kind:           req.Kind,
		FileName:       req.FileName,
		ConversationID: req.ConversationID,
		Text:           result.Text,
		Timestamp:      time.Now(),
	})

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: result})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: gin.H{
			"status": "ok",
			"uptime": time.Since(s.startTime).String(),
		},
	})
}
