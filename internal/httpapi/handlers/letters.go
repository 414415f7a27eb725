package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/careerpilot/careerpilot/internal/common"
	"github.com/careerpilot/careerpilot/internal/httpapi/middleware"
	"github.com/careerpilot/careerpilot/internal/letters"
)

type createLetterJobReq struct {
	JobTitle   string `json:"job_title"`
	Company    string `json:"company"`
	JobPosting string `json:"job_posting"`
	Tone       string `json:"tone"`
}

// CreateLetterJob queues generation directly, outside the conversation.
// An Idempotency-Key header makes retries return the original job.
func (h *Handler) CreateLetterJob(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40100, "not authenticated")
		return
	}
	var req createLetterJobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.JobTitle == "" || req.Company == "" {
		common.Fail(c, http.StatusBadRequest, 10011, "job_title and company required")
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20020, "failed to allocate job id")
		return
	}
	job := letters.GenerationJob{
		ID:         jobID,
		UserID:     userID,
		JobTitle:   req.JobTitle,
		Company:    req.Company,
		JobPosting: req.JobPosting,
		Tone:       req.Tone,
		Status:     letters.JobQueued,
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		job.IdempotencyKey = &key
	}

	created, existed, err := h.Letters.CreateJobOrGetExisting(c.Request.Context(), &job)
	if err != nil {
		h.Logger.Error("create letter job failed", "err", err)
		common.Fail(c, http.StatusInternalServerError, 20021, "failed to create job")
		return
	}
	if !existed {
		if err := h.Queue.EnqueueLetterJob(c.Request.Context(), created.ID); err != nil {
			h.Logger.Error("enqueue letter job failed", "job_id", created.ID, "err", err)
			common.Fail(c, http.StatusInternalServerError, 20022, "failed to enqueue job")
			return
		}
	}
	common.OK(c, created)
}

func (h *Handler) GetLetterJob(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40100, "not authenticated")
		return
	}
	job, err := h.Letters.GetJobByID(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40404, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	if job.UserID != userID {
		common.Fail(c, http.StatusNotFound, 40404, "job not found")
		return
	}
	common.OK(c, job)
}

func (h *Handler) ListLetters(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40100, "not authenticated")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	out, err := h.Letters.ListLetters(c.Request.Context(), userID, limit)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, gin.H{"letters": out})
}
