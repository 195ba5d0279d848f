package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Kosench/shortlinks/internal/errors"
	"github.com/Kosench/shortlinks/internal/model"
)

// LinkService is the lifecycle manager as seen by the HTTP layer.
type LinkService interface {
	Create(ctx context.Context, req model.CreateLinkRequest, caller model.Identity) (*model.CreateLinkResponse, error)
	Resolve(ctx context.Context, shortCode string) (string, error)
	Update(ctx context.Context, shortCode string, req model.UpdateLinkRequest, caller model.Identity) (*model.UpdateLinkResponse, error)
	Delete(ctx context.Context, shortCode string, caller model.Identity) error
	Search(ctx context.Context, originalURL, tagName string) ([]model.SearchResult, error)
	Stats(ctx context.Context, shortCode string) (*model.LinkStats, error)
	ExpiredLinksForOwner(ctx context.Context, caller model.Identity) (*model.InactiveLinks, error)
}

type LinkHandler struct {
	linkService LinkService
}

func NewLinkHandler(linkService LinkService) *LinkHandler {
	return &LinkHandler{
		linkService: linkService,
	}
}

// RegisterRoutes mounts the link API on r. Static segments win over :code.
func (h *LinkHandler) RegisterRoutes(r gin.IRouter) {
	links := r.Group("/links")
	{
		links.POST("/shorten", h.CreateLink)
		links.GET("/search", h.SearchLinks)
		links.GET("/exp_links", h.ExpiredLinks)
		links.GET("/:code", h.RedirectLink)
		links.PUT("/:code", h.UpdateLink)
		links.DELETE("/:code", h.DeleteLink)
		links.GET("/:code/stats", h.LinkStats)
	}
}

func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req model.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format",
		})
		return
	}

	// Мутации доводим до конца даже при обрыве соединения клиентом
	ctx := context.WithoutCancel(c.Request.Context())

	response, err := h.linkService.Create(ctx, req, IdentityFrom(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

func (h *LinkHandler) RedirectLink(c *gin.Context) {
	shortCode := c.Param("code")

	originalURL, err := h.linkService.Resolve(context.WithoutCancel(c.Request.Context()), shortCode)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, originalURL)
}

func (h *LinkHandler) UpdateLink(c *gin.Context) {
	var req model.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format",
		})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())

	response, err := h.linkService.Update(ctx, c.Param("code"), req, IdentityFrom(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *LinkHandler) DeleteLink(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())

	if err := h.linkService.Delete(ctx, c.Param("code"), IdentityFrom(c)); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "link deleted"})
}

func (h *LinkHandler) SearchLinks(c *gin.Context) {
	results, err := h.linkService.Search(c.Request.Context(), c.Query("original_url"), c.Query("tag_name"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *LinkHandler) ExpiredLinks(c *gin.Context) {
	result, err := h.linkService.ExpiredLinksForOwner(c.Request.Context(), IdentityFrom(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	if result.None() {
		c.JSON(http.StatusOK, gin.H{"message": "no inactive links"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result.Links})
}

func (h *LinkHandler) LinkStats(c *gin.Context) {
	stats, err := h.linkService.Stats(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleError обрабатывает ошибки и возвращает соответствующие HTTP коды
func (h *LinkHandler) handleError(c *gin.Context, err error) {
	// Проверяем ValidationError
	if validationErr := apperrors.GetValidationError(err); validationErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": validationErr.Message,
			"field":   validationErr.Field,
			"code":    apperrors.Kind(err),
		})
		return
	}

	businessErr := apperrors.GetBusinessError(err)
	if businessErr == nil {
		// Неизвестная ошибка
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrAliasTaken):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrNotFoundOrForbidden):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrExpired):
		status = http.StatusGone
	case errors.Is(err, apperrors.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrGenerationExhausted):
		status = http.StatusServiceUnavailable
	default:
		// причина уходит только в лог запроса
		_ = c.Error(err)
	}

	c.JSON(status, gin.H{
		"error":   "business_error",
		"message": businessErr.Message,
		"code":    businessErr.Code,
	})
}
