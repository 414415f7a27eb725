package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/careerpilot/careerpilot/internal/common"
	"github.com/careerpilot/careerpilot/internal/httpapi/middleware"
)

func (h *Handler) ListPages(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40100, "not authenticated")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	pages, err := h.ChatRepo.ListPages(c.Request.Context(), userID, limit)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, gin.H{"pages": pages})
}

func (h *Handler) ListPageMessages(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40100, "not authenticated")
		return
	}
	pageID := c.Param("page_id")
	if pageID == "" {
		common.Fail(c, http.StatusBadRequest, 10005, "page_id required")
		return
	}

	if _, err := h.ChatRepo.GetPage(c.Request.Context(), userID, pageID); err != nil {
		common.Fail(c, http.StatusNotFound, 40402, "page not found")
		return
	}
	msgs, err := h.ChatRepo.ListMessagesAsc(c.Request.Context(), userID, &pageID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, gin.H{"messages": msgs})
}
