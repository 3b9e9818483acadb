package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"spielebasar/internal/repository"
)

type ClubHandler struct {
	Repo repository.MatchRepository
}

func (h *ClubHandler) Register(r *gin.Engine) {
	g := r.Group("/api/clubs")
	g.GET("/:id", h.get)
	g.PUT("/:id/visibility", h.putVisibility)
}

// @Summary Get a club
// @Tags clubs
// @Param id path int true "club id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/clubs/{id} [get]
func (h *ClubHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := clubIDParam(c)
	if !ok {
		return
	}
	item, err := h.Repo.GetClub(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "club not found", nil)
		return
	}
	Ok(c, item, nil)
}

type putVisibilityRequest struct {
	Hidden *bool `json:"hidden" binding:"required"`
}

// @Summary Hide or show a club's matches
// @Tags clubs
// @Param id path int true "club id"
// @Param body body putVisibilityRequest true "visibility"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/clubs/{id}/visibility [put]
func (h *ClubHandler) putVisibility(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, ok := clubIDParam(c)
	if !ok {
		return
	}
	var req putVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Repo.SetClubHidden(c.Request.Context(), id, *req.Hidden)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "club not found", nil)
		return
	}
	Ok(c, item, nil)
}

func clubIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		Error(c, http.StatusBadRequest, "invalid club id", nil)
		return 0, false
	}
	return id, true
}
