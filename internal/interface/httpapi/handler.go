package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/mo"

	coreask "github.com/jinford/faq-rag/internal/core/ask"
	coreingestion "github.com/jinford/faq-rag/internal/core/ingestion"
	"github.com/jinford/faq-rag/internal/core/knowledge"
)

type crawlRequest struct {
	URL      string  `json:"url"`
	Selector *string `json:"selector"`
	MaxPages *int    `json:"maxPages"`
}

type crawlResponse struct {
	Success      bool   `json:"success"`
	JobID        string `json:"jobId"`
	PagesCrawled int    `json:"pagesCrawled"`
	Message      string `json:"message"`
}

type chatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversationId"`
	UserID         *string `json:"userId"`
}

type chatResponse struct {
	Message        string                    `json:"message"`
	ConversationID *string                   `json:"conversationId,omitempty"`
	Sources        []coreask.SourceReference `json:"sources"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCrawl(c *gin.Context) {
	var req crawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, knowledge.ValidationError("crawl", "Invalid JSON body"))
		return
	}

	params := coreingestion.CrawlParams{
		URL:      strings.TrimSpace(req.URL),
		Selector: mo.PointerToOption(req.Selector),
	}
	if req.MaxPages != nil {
		params.MaxPages = *req.MaxPages
	}

	result, err := s.crawler.Crawl(c.Request.Context(), params)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, crawlResponse{
		Success:      true,
		JobID:        result.JobID.String(),
		PagesCrawled: result.PagesCrawled,
		Message:      result.Message,
	})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, knowledge.ValidationError("chat", "Invalid JSON body"))
		return
	}

	params := coreask.AnswerParams{
		Message:        req.Message,
		ConversationID: mo.None[uuid.UUID](),
		UserID:         mo.PointerToOption(req.UserID),
	}
	if req.ConversationID != nil && *req.ConversationID != "" {
		id, err := uuid.Parse(*req.ConversationID)
		if err != nil {
			s.writeError(c, knowledge.ValidationError("chat", "conversationId must be a UUID"))
			return
		}
		params.ConversationID = mo.Some(id)
	}

	result, err := s.answerer.Answer(c.Request.Context(), params)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := chatResponse{
		Message: result.Message,
		Sources: result.Sources,
	}
	if id, ok := result.ConversationID.Get(); ok {
		idStr := id.String()
		resp.ConversationID = &idStr
	}
	if resp.Sources == nil {
		resp.Sources = []coreask.SourceReference{}
	}

	c.JSON(http.StatusOK, resp)
}

// writeError はエラー分類に応じたステータスで応答する
func (s *Server) writeError(c *gin.Context, err error) {
	kind := knowledge.KindOf(err)
	status := statusFor(kind)

	resp := errorResponse{
		Error: knowledge.UserMessage(err),
		Code:  string(kind),
	}
	if status >= http.StatusInternalServerError {
		resp.Message = err.Error()
		s.logger.Error("request failed", "path", c.Request.URL.Path, "code", kind, "error", err)
	} else {
		s.logger.Warn("request rejected", "path", c.Request.URL.Path, "code", kind, "error", err)
	}

	c.JSON(status, resp)
}

func statusFor(kind knowledge.Kind) int {
	switch kind {
	case knowledge.KindValidation, knowledge.KindEmptyContent:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
