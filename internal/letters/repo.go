package letters

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) WithTx(tx *gorm.DB) *Repo { return &Repo{db: tx} }

func (r *Repo) InsertLetter(ctx context.Context, l *GeneratedCoverLetter) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *Repo) ListLetters(ctx context.Context, userID uint64, limit int) ([]GeneratedCoverLetter, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []GeneratedCoverLetter
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *Repo) CreateJob(ctx context.Context, job *GenerationJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*GenerationJob, error) {
	var j GenerationJob
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&GenerationJob{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string, letterID uint64) error {
	return r.db.WithContext(ctx).Model(&GenerationJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           JobSucceeded,
			"result_letter_id": letterID,
			"error":            nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&GenerationJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           JobFailed,
			"error":            errMsg,
			"result_letter_id": nil,
		}).Error
}

// CreateJobOrGetExisting creates a job unless one with the same
// (user_id, idempotency_key) already exists, in which case the existing
// job wins. The bool reports whether an existing job was returned.
func (r *Repo) CreateJobOrGetExisting(ctx context.Context, job *GenerationJob) (*GenerationJob, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, err
		}
		return job, false, nil
	}

	err := r.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, false, nil
	}

	var existing GenerationJob
	getErr := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", job.UserID, *job.IdempotencyKey).
		First(&existing).Error
	if getErr == nil {
		return &existing, true, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}
