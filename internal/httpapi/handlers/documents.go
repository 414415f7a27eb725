package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/careerpilot/careerpilot/internal/common"
	"github.com/careerpilot/careerpilot/internal/docs"
	"github.com/careerpilot/careerpilot/internal/httpapi/middleware"
)

const maxUploadBytes = 10 << 20

func (h *Handler) UploadDocument(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40100, "not authenticated")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10006, "file field required")
		return
	}
	if fh.Size > maxUploadBytes {
		common.Fail(c, http.StatusRequestEntityTooLarge, 10007, "file too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20010, "failed to read upload")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20010, "failed to read upload")
		return
	}

	mime := fh.Header.Get("Content-Type")
	text, err := h.Extractor.Extract(c.Request.Context(), data, mime)
	if err != nil {
		if errors.Is(err, docs.ErrUnsupportedType) {
			common.Fail(c, http.StatusUnsupportedMediaType, 10008, "unsupported document type")
			return
		}
		common.Fail(c, http.StatusBadRequest, 10009, "could not extract text from document")
		return
	}

	doc, err := h.Documents.Save(c.Request.Context(), userID, fh.Filename, mime, data, text)
	if err != nil {
		h.Logger.Error("save document failed", "err", err)
		common.Fail(c, http.StatusInternalServerError, 20011, "failed to store document")
		return
	}
	common.OK(c, doc)
}

func (h *Handler) ListDocuments(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40100, "not authenticated")
		return
	}
	out, err := h.Documents.ListByUser(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, gin.H{"documents": out})
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40100, "not authenticated")
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10010, "invalid document id")
		return
	}
	if err := h.Documents.Delete(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "document not found")
			return
		}
		h.Logger.Error("delete document failed", "err", err)
		common.Fail(c, http.StatusInternalServerError, 20012, "failed to delete document")
		return
	}
	common.OK(c, gin.H{"deleted": id})
}
