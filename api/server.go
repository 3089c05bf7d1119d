// Package api serves stored articles over a read-only HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pevans/ydnscraper/article"
	"github.com/pevans/ydnscraper/sink"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
	queryDate    = "2006-01-02"
)

// Store is the read side of the article store.
type Store interface {
	Get(ctx context.Context, url string) (*sink.StoredArticle, error)
	List(ctx context.Context, filter sink.ArticleFilter) ([]sink.StoredArticle, int, error)
}

// Server handles the article API.
type Server struct {
	store  Store
	logger zerolog.Logger
}

// NewServer creates a server backed by store.
func NewServer(store Store, logger zerolog.Logger) *Server {
	return &Server{
		store:  store,
		logger: logger,
	}
}

// SetupRouter configures the Gin router with the article routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1/articles")
	api.GET("", s.HandleListArticles)
	api.GET("/lookup", s.HandleLookupArticle)

	return router
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// ListArticlesResponse is the body of GET /api/v1/articles.
type ListArticlesResponse struct {
	Articles []sink.StoredArticle `json:"articles"`
	Total    int                  `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// HandleListArticles handles GET /api/v1/articles.
func (s *Server) HandleListArticles(c *gin.Context) {
	filter := sink.ArticleFilter{Limit: defaultLimit}

	if typeParam := c.Query("type"); typeParam != "" {
		t, err := article.ParseType(typeParam)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_parameter", "Invalid type parameter: must be Regular, Feature or YTV")
			return
		}
		filter.Type = &t
	}

	if since := c.Query("since"); since != "" {
		day, err := time.Parse(queryDate, since)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_parameter", "Invalid since parameter: must be YYYY-MM-DD")
			return
		}
		filter.Since = day.Format(article.DateLayout)
	}

	if until := c.Query("until"); until != "" {
		day, err := time.Parse(queryDate, until)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_parameter", "Invalid until parameter: must be YYYY-MM-DD")
			return
		}
		// Inclusive of the whole day
		filter.Until = day.Add(24*time.Hour - time.Second).Format(article.DateLayout)
	}

	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 1 {
			writeError(c, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
			return
		}
		filter.Limit = min(limit, maxLimit)
	}

	if offsetParam := c.Query("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil || offset < 0 {
			writeError(c, http.StatusBadRequest, "invalid_parameter", "Invalid offset parameter")
			return
		}
		filter.Offset = offset
	}

	articles, total, err := s.store.List(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list articles")
		writeError(c, http.StatusInternalServerError, "internal_error", "Failed to list articles")
		return
	}

	c.JSON(http.StatusOK, ListArticlesResponse{
		Articles: articles,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// HandleLookupArticle handles GET /api/v1/articles/lookup?url=.
func (s *Server) HandleLookupArticle(c *gin.Context) {
	pageURL := c.Query("url")
	if pageURL == "" {
		writeError(c, http.StatusBadRequest, "missing_parameter", "url parameter is required")
		return
	}

	stored, err := s.store.Get(c.Request.Context(), pageURL)
	if errors.Is(err, sink.ErrNotFound) {
		writeError(c, http.StatusNotFound, "not_found", "Article not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("url", pageURL).Msg("failed to get article")
		writeError(c, http.StatusInternalServerError, "internal_error", "Failed to get article")
		return
	}

	c.JSON(http.StatusOK, stored)
}
