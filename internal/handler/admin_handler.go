package handler

import (
	"errors"
	"net/http"
	"strconv"

	"wax-intake/internal/repository"
	"wax-intake/internal/transport/httpdto"
	wax_errors "wax-intake/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler exposes the reviewer read surface. It carries no auth;
// deployment keeps it behind the operator's network boundary.
type AdminHandler struct {
	repo repository.SubmissionRepository
}

func NewAdminHandler(repo repository.SubmissionRepository) *AdminHandler {
	return &AdminHandler{repo: repo}
}

func (h *AdminHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, total, err := h.repo.List(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewMessageResponse("Failed to list submissions"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": items, "total": total})
}

func (h *AdminHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewMessageResponse("Invalid submission id"))
		return
	}
	item, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, wax_errors.ErrNotFound) {
			c.JSON(http.StatusNotFound, httpdto.NewMessageResponse("Submission not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, httpdto.NewMessageResponse("Failed to load submission"))
		return
	}
	c.JSON(http.StatusOK, item)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
